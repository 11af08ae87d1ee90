// SPDX-License-Identifier: Apache-2.0

package ast

import "fmt"

// Qail is the root node of one parsed command: a query, a DDL statement,
// or a transaction-control statement. Subquery/Exists expressions embed
// further *Qail values as owning, non-shared back-edges, so the tree is
// recursive but never cyclic.
type Qail struct {
	Action Action
	Table  string

	Columns []Expr
	Joins   []Join
	Cages   []Cage

	// CTEs, in declaration order. A recursive CTE carries a union-all
	// pair (Query, RecursiveQuery).
	CTEs []CTE

	Returning []Expr

	Distinct bool

	OnConflict *OnConflict

	IndexDef         *IndexDef
	TableConstraints []TableConstraint

	GroupByMode GroupByMode
	LockMode    LockMode
	TableSample *TableSample

	SetOp       SetOp  // zero value means "not a set operation"
	SetOpWith   *Qail  // right-hand side of the set operation, if any
}

// Join is one joined table in a FROM chain.
type Join struct {
	Table string
	Kind  JoinKind
	On    []Condition
}

// Cage is a clause container: a filter, a SET payload, a sort key, a
// LIMIT/OFFSET, or a PARTITION grouping — the name carries over from
// cmd/query.rs's term for "a fenced-in clause".
type Cage struct {
	Kind       CageKind
	Conditions []Condition
	LogicalOp  LogicalOp
}

// CageKind selects what a Cage represents.
type CageKind interface {
	isCageKind()
}

type CageFilter struct{}
type CagePayload struct{}
type CageSort struct{ Order SortOrder }
type CageLimit struct{ N int64 }
type CageOffset struct{ N int64 }
type CagePartition struct{}

func (CageFilter) isCageKind()    {}
func (CagePayload) isCageKind()   {}
func (CageSort) isCageKind()      {}
func (CageLimit) isCageKind()     {}
func (CageOffset) isCageKind()    {}
func (CagePartition) isCageKind() {}

// Condition is one comparison inside a Cage: `left OP value`.
type Condition struct {
	Left           Expr
	Op             Operator
	Value          Value
	IsArrayUnnest  bool
}

func (c Condition) String() string {
	if !c.Op.NeedsValue() {
		return fmt.Sprintf("%s %s", c.Left, c.Op.SQLSymbol())
	}
	return fmt.Sprintf("%s %s %s", c.Left, c.Op.SQLSymbol(), c.Value)
}

// CTE is one named sub-query in a WITH clause.
type CTE struct {
	Name      string
	Query     *Qail
	Recursive bool
	// UnionQuery is the second half of a recursive CTE's UNION ALL pair.
	UnionQuery *Qail
}

// OnConflict models INSERT ... ON CONFLICT (columns) DO NOTHING | DO
// UPDATE SET assignments.
type OnConflict struct {
	Columns     []string
	DoNothing   bool
	Assignments []Assignment // non-empty implies DO UPDATE
}

// Assignment is one `col = expr` pair inside ON CONFLICT DO UPDATE SET or
// a plain UPDATE payload.
type Assignment struct {
	Column string
	Value  Expr
}

// Hint is an explicit migration intent attached to a new schema document,
// consumed by the differ before it falls back to structural diffing.
type Hint interface {
	isHint()
}

type HintRename struct {
	From string
	To   string
}

type HintTransform struct {
	Expression string
	Target     string // "table.column"
}

type HintDrop struct {
	Target    string // "table" or "table.column"
	Confirmed bool
}

func (HintRename) isHint()    {}
func (HintTransform) isHint() {}
func (HintDrop) isHint()      {}
