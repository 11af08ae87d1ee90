// SPDX-License-Identifier: Apache-2.0

package ast

// Operator is a comparison/test operator usable inside a Condition.
type Operator string

const (
	OpEq         Operator = "EQ"
	OpNe         Operator = "NE"
	OpGt         Operator = "GT"
	OpGte        Operator = "GTE"
	OpLt         Operator = "LT"
	OpLte        Operator = "LTE"
	OpFuzzy      Operator = "FUZZY"
	OpIn         Operator = "IN"
	OpNotIn      Operator = "NOT_IN"
	OpIsNull     Operator = "IS_NULL"
	OpIsNotNull  Operator = "IS_NOT_NULL"
	OpContains   Operator = "CONTAINS"
	OpKeyExists  Operator = "KEY_EXISTS"
	OpJSONExists Operator = "JSON_EXISTS"
	OpJSONQuery  Operator = "JSON_QUERY"
	OpJSONValue  Operator = "JSON_VALUE"
	OpLike       Operator = "LIKE"
	OpNotLike    Operator = "NOT_LIKE"
	OpILike      Operator = "ILIKE"
	OpNotILike   Operator = "NOT_ILIKE"
	OpBetween    Operator = "BETWEEN"
	OpNotBetween Operator = "NOT_BETWEEN"
	OpExists     Operator = "EXISTS"
	OpNotExists  Operator = "NOT_EXISTS"
	OpRegex      Operator = "REGEX"
	OpRegexI     Operator = "REGEX_I"
	OpSimilarTo  Operator = "SIMILAR_TO"
	OpContainedBy Operator = "CONTAINED_BY"
	OpOverlaps   Operator = "OVERLAPS"
)

// SQLSymbol returns the literal SQL text for simple operators, or the
// keyword for compound ones (BETWEEN, EXISTS...).
func (o Operator) SQLSymbol() string {
	switch o {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpFuzzy:
		return "ILIKE"
	case OpIn:
		return "IN"
	case OpNotIn:
		return "NOT IN"
	case OpIsNull:
		return "IS NULL"
	case OpIsNotNull:
		return "IS NOT NULL"
	case OpContains:
		return "@>"
	case OpKeyExists:
		return "?"
	case OpJSONExists:
		return "JSON_EXISTS"
	case OpJSONQuery:
		return "JSON_QUERY"
	case OpJSONValue:
		return "JSON_VALUE"
	case OpLike:
		return "LIKE"
	case OpNotLike:
		return "NOT LIKE"
	case OpILike:
		return "ILIKE"
	case OpNotILike:
		return "NOT ILIKE"
	case OpBetween:
		return "BETWEEN"
	case OpNotBetween:
		return "NOT BETWEEN"
	case OpExists:
		return "EXISTS"
	case OpNotExists:
		return "NOT EXISTS"
	case OpRegex:
		return "~"
	case OpRegexI:
		return "~*"
	case OpSimilarTo:
		return "SIMILAR TO"
	case OpContainedBy:
		return "<@"
	case OpOverlaps:
		return "&&"
	default:
		return string(o)
	}
}

// NeedsValue reports whether the operator requires a right-hand value.
// IS NULL, IS NOT NULL, EXISTS and NOT EXISTS stand alone.
func (o Operator) NeedsValue() bool {
	switch o {
	case OpIsNull, OpIsNotNull, OpExists, OpNotExists:
		return false
	default:
		return true
	}
}

// IsSimpleBinary reports whether the operator renders as `left OP right`
// with no special grouping (contrast BETWEEN, IN, EXISTS).
func (o Operator) IsSimpleBinary() bool {
	switch o {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpLike, OpNotLike, OpILike, OpNotILike:
		return true
	default:
		return false
	}
}

// LogicalOp joins conditions within a Cage.
type LogicalOp string

const (
	LogicalAnd LogicalOp = "AND"
	LogicalOr  LogicalOp = "OR"
)

// SortOrder is the direction (and NULLS placement) of an ORDER BY term.
type SortOrder string

const (
	SortAsc            SortOrder = "ASC"
	SortDesc           SortOrder = "DESC"
	SortAscNullsFirst  SortOrder = "ASC_NULLS_FIRST"
	SortAscNullsLast   SortOrder = "ASC_NULLS_LAST"
	SortDescNullsFirst SortOrder = "DESC_NULLS_FIRST"
	SortDescNullsLast  SortOrder = "DESC_NULLS_LAST"
)

// SQL renders the ORDER BY tail for this sort order given a quoted column.
func (s SortOrder) SQL(quotedColumn string) string {
	switch s {
	case SortAsc:
		return quotedColumn + " ASC"
	case SortDesc:
		return quotedColumn + " DESC"
	case SortAscNullsFirst:
		return quotedColumn + " ASC NULLS FIRST"
	case SortAscNullsLast:
		return quotedColumn + " ASC NULLS LAST"
	case SortDescNullsFirst:
		return quotedColumn + " DESC NULLS FIRST"
	case SortDescNullsLast:
		return quotedColumn + " DESC NULLS LAST"
	default:
		return quotedColumn
	}
}

// AggregateFunc is an aggregate function usable in Expr.Aggregate.
type AggregateFunc string

const (
	AggCount     AggregateFunc = "COUNT"
	AggSum       AggregateFunc = "SUM"
	AggAvg       AggregateFunc = "AVG"
	AggMin       AggregateFunc = "MIN"
	AggMax       AggregateFunc = "MAX"
	AggArrayAgg  AggregateFunc = "ARRAY_AGG"
	AggStringAgg AggregateFunc = "STRING_AGG"
	AggJSONAgg   AggregateFunc = "JSON_AGG"
	AggJSONBAgg  AggregateFunc = "JSONB_AGG"
	AggBoolAnd   AggregateFunc = "BOOL_AND"
	AggBoolOr    AggregateFunc = "BOOL_OR"
)

// JoinKind is the kind of SQL join between two tables.
type JoinKind string

const (
	JoinInner   JoinKind = "INNER"
	JoinLeft    JoinKind = "LEFT"
	JoinRight   JoinKind = "RIGHT"
	JoinLateral JoinKind = "LATERAL"
	JoinFull    JoinKind = "FULL"
	JoinCross   JoinKind = "CROSS"
)

// SQL renders the join keyword(s) preceding "JOIN".
func (k JoinKind) SQL() string {
	switch k {
	case JoinInner:
		return "INNER JOIN"
	case JoinLeft:
		return "LEFT JOIN"
	case JoinRight:
		return "RIGHT JOIN"
	case JoinLateral:
		return "JOIN LATERAL"
	case JoinFull:
		return "FULL JOIN"
	case JoinCross:
		return "CROSS JOIN"
	default:
		return "JOIN"
	}
}

// SetOp combines two SELECTs (UNION/INTERSECT/EXCEPT).
type SetOp string

const (
	SetUnion     SetOp = "UNION"
	SetUnionAll  SetOp = "UNION ALL"
	SetIntersect SetOp = "INTERSECT"
	SetExcept    SetOp = "EXCEPT"
)

// ModKind says whether a Mod expression adds or drops its target.
type ModKind string

const (
	ModAdd  ModKind = "ADD"
	ModDrop ModKind = "DROP"
)

// BinaryOp is an arithmetic/concat operator for Expr.Binary.
type BinaryOp string

const (
	BinaryConcat BinaryOp = "||"
	BinaryAdd    BinaryOp = "+"
	BinarySub    BinaryOp = "-"
	BinaryMul    BinaryOp = "*"
	BinaryDiv    BinaryOp = "/"
	BinaryRem    BinaryOp = "%"
)

// GroupByMode selects plain GROUP BY vs. ROLLUP/CUBE/GROUPING SETS.
type GroupByMode struct {
	Kind          GroupByKind
	GroupingSets  [][]string // only meaningful when Kind == GroupByGroupingSets
}

type GroupByKind string

const (
	GroupBySimple       GroupByKind = "SIMPLE"
	GroupByRollup       GroupByKind = "ROLLUP"
	GroupByCube         GroupByKind = "CUBE"
	GroupByGroupingSets GroupByKind = "GROUPING_SETS"
)

// IsSimple reports whether this is the default, unadorned GROUP BY.
func (m GroupByMode) IsSimple() bool { return m.Kind == "" || m.Kind == GroupBySimple }

// LockMode is a SELECT ... FOR <mode> row-locking clause.
type LockMode string

const (
	LockUpdate       LockMode = "UPDATE"
	LockNoKeyUpdate  LockMode = "NO KEY UPDATE"
	LockShare        LockMode = "SHARE"
	LockKeyShare     LockMode = "KEY SHARE"
)

// SQL renders the FOR ... tail.
func (l LockMode) SQL() string {
	if l == "" {
		return ""
	}
	return "FOR " + string(l)
}

// OverridingKind is the OVERRIDING clause on INSERT with identity columns.
type OverridingKind string

const (
	OverridingSystemValue OverridingKind = "SYSTEM VALUE"
	OverridingUserValue   OverridingKind = "USER VALUE"
)

// SampleMethod is a TABLESAMPLE method.
type SampleMethod string

const (
	SampleBernoulli SampleMethod = "BERNOULLI"
	SampleSystem    SampleMethod = "SYSTEM"
)

// TableSample is a TABLESAMPLE clause attached to a Qail.
type TableSample struct {
	Method  SampleMethod
	Percent float64
}

// SQL renders the TABLESAMPLE clause tail.
func (t *TableSample) SQL() string {
	if t == nil {
		return ""
	}
	return "TABLESAMPLE " + string(t.Method) + "(" + formatFloat(t.Percent) + ")"
}

// Distance is a vector similarity metric.
type Distance string

const (
	DistanceCosine Distance = "COSINE"
	DistanceEuclid Distance = "EUCLID"
	DistanceDot    Distance = "DOT"
)
