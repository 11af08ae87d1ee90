// SPDX-License-Identifier: Apache-2.0

package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr is the algebraic expression sum type: column references,
// function calls, literals, window functions, and the various operator
// forms that can appear in a projection, a condition, or a default.
// Like Value, it is closed via an unexported marker method.
type Expr interface {
	isExpr()
	fmt.Stringer
}

// ExprStar is the `*` projection.
type ExprStar struct{}

func (ExprStar) isExpr()         {}
func (ExprStar) String() string  { return "*" }

// ExprNamed is a bare column/identifier reference.
type ExprNamed struct {
	Name string
}

func (ExprNamed) isExpr()         {}
func (e ExprNamed) String() string { return e.Name }

// ExprAliased renders `name AS alias`.
type ExprAliased struct {
	Name  string
	Alias string
}

func (ExprAliased) isExpr()         {}
func (e ExprAliased) String() string { return e.Name + " AS " + e.Alias }

// ExprAggregate is an aggregate function call over a column, with
// optional DISTINCT and FILTER (WHERE ...).
type ExprAggregate struct {
	Col      string
	Func     AggregateFunc
	Distinct bool
	Filter   []Condition
	Alias    string
}

func (ExprAggregate) isExpr() {}
func (e ExprAggregate) String() string {
	var b strings.Builder
	if e.Distinct {
		fmt.Fprintf(&b, "%s(DISTINCT %s)", e.Func, e.Col)
	} else {
		fmt.Fprintf(&b, "%s(%s)", e.Func, e.Col)
	}
	if len(e.Filter) > 0 {
		parts := make([]string, len(e.Filter))
		for i, c := range e.Filter {
			parts[i] = c.String()
		}
		fmt.Fprintf(&b, " FILTER (WHERE %s)", strings.Join(parts, " AND "))
	}
	if e.Alias != "" {
		fmt.Fprintf(&b, " AS %s", e.Alias)
	}
	return b.String()
}

// ExprCast is a Postgres-style type cast `expr::type`.
type ExprCast struct {
	Inner      Expr
	TargetType string
	Alias      string
}

func (ExprCast) isExpr() {}
func (e ExprCast) String() string {
	s := fmt.Sprintf("%s::%s", e.Inner, e.TargetType)
	if e.Alias != "" {
		s += " AS " + e.Alias
	}
	return s
}

// ExprDef is a column definition used when building CREATE TABLE /
// ALTER TABLE ADD COLUMN commands.
type ExprDef struct {
	Name        string
	DataType    string
	Constraints []Constraint
}

func (ExprDef) isExpr() {}
func (e ExprDef) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%s", e.Name, e.DataType)
	for _, c := range e.Constraints {
		fmt.Fprintf(&b, "^%s", c)
	}
	return b.String()
}

// ExprMod wraps a column in an ADD/DROP modification. pkg/differ does not
// build it: renames are ExprNamed "old -> new" columns and transforms are
// ActionSet commands.
type ExprMod struct {
	Kind ModKind
	Col  Expr
}

func (ExprMod) isExpr() {}
func (e ExprMod) String() string {
	switch e.Kind {
	case ModAdd:
		return "+" + e.Col.String()
	default:
		return "-" + e.Col.String()
	}
}

// ExprWindow is a window function definition: `name:func(args) OVER (...)`.
type ExprWindow struct {
	Name      string
	Func      string
	Params    []Expr
	Partition []string
	Order     []Cage
	Frame     *WindowFrame
}

func (ExprWindow) isExpr() {}
func (e ExprWindow) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%s(", e.Name, e.Func)
	for i, p := range e.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteString(")")
	if len(e.Partition) > 0 {
		fmt.Fprintf(&b, "{Part=%s", strings.Join(e.Partition, ","))
		if e.Frame != nil {
			fmt.Fprintf(&b, ", Frame=%v", *e.Frame)
		}
		b.WriteString("}")
	} else if e.Frame != nil {
		fmt.Fprintf(&b, "{Frame=%v}", *e.Frame)
	}
	return b.String()
}

// ExprCase is a CASE WHEN ... THEN ... ELSE ... END expression.
type ExprCase struct {
	WhenClauses []CaseWhen
	ElseValue   Expr
	Alias       string
}

// CaseWhen pairs a WHEN condition with its THEN expression.
type CaseWhen struct {
	Cond Condition
	Then Expr
}

func (ExprCase) isExpr() {}
func (e ExprCase) String() string {
	var b strings.Builder
	b.WriteString("CASE")
	for _, wc := range e.WhenClauses {
		fmt.Fprintf(&b, " WHEN %s THEN %s", wc.Cond.Left, wc.Then)
	}
	if e.ElseValue != nil {
		fmt.Fprintf(&b, " ELSE %s", e.ElseValue)
	}
	b.WriteString(" END")
	if e.Alias != "" {
		fmt.Fprintf(&b, " AS %s", e.Alias)
	}
	return b.String()
}

// JSONPathSegment is one hop in a JSON accessor chain: `Key` addressed
// with `->` (AsText false) or `->>` (AsText true).
type JSONPathSegment struct {
	Key    string
	AsText bool
}

// ExprJSONAccess is a (possibly chained) JSON accessor:
// `data->'a'->0->>'b'`.
type ExprJSONAccess struct {
	Column       string
	PathSegments []JSONPathSegment
	Alias        string
}

func (ExprJSONAccess) isExpr() {}
func (e ExprJSONAccess) String() string {
	var b strings.Builder
	b.WriteString(e.Column)
	for _, seg := range e.PathSegments {
		op := "->"
		if seg.AsText {
			op = "->>"
		}
		if _, err := strconv.ParseInt(seg.Key, 10, 64); err == nil {
			fmt.Fprintf(&b, "%s%s", op, seg.Key)
		} else {
			fmt.Fprintf(&b, "%s'%s'", op, seg.Key)
		}
	}
	if e.Alias != "" {
		fmt.Fprintf(&b, " AS %s", e.Alias)
	}
	return b.String()
}

// ExprFunctionCall is a plain function call: `NAME(args...)`.
type ExprFunctionCall struct {
	Name  string
	Args  []Expr
	Alias string
}

func (ExprFunctionCall) isExpr() {}
func (e ExprFunctionCall) String() string {
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		parts[i] = a.String()
	}
	s := fmt.Sprintf("%s(%s)", strings.ToUpper(e.Name), strings.Join(parts, ", "))
	if e.Alias != "" {
		s += " AS " + e.Alias
	}
	return s
}

// SpecialFunctionArg is one argument of a SpecialFunction call, optionally
// preceded by a SQL keyword (FROM, FOR...).
type SpecialFunctionArg struct {
	Keyword string // empty if none
	Arg     Expr
}

// ExprSpecialFunction models SQL functions with keyword-separated
// arguments: SUBSTRING(expr FROM pos FOR len), EXTRACT(YEAR FROM date),
// TRIM(...).
type ExprSpecialFunction struct {
	Name  string
	Args  []SpecialFunctionArg
	Alias string
}

func (ExprSpecialFunction) isExpr() {}
func (e ExprSpecialFunction) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s(", strings.ToUpper(e.Name))
	for i, a := range e.Args {
		if i > 0 {
			b.WriteString(" ")
		}
		if a.Keyword != "" {
			fmt.Fprintf(&b, "%s ", a.Keyword)
		}
		b.WriteString(a.Arg.String())
	}
	b.WriteString(")")
	if e.Alias != "" {
		fmt.Fprintf(&b, " AS %s", e.Alias)
	}
	return b.String()
}

// ExprBinary is `left op right`.
type ExprBinary struct {
	Left  Expr
	Op    BinaryOp
	Right Expr
	Alias string
}

func (ExprBinary) isExpr() {}
func (e ExprBinary) String() string {
	s := fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
	if e.Alias != "" {
		s += " AS " + e.Alias
	}
	return s
}

// ExprLiteral wraps a Value for use wherever an expression is expected.
type ExprLiteral struct {
	Value Value
}

func (ExprLiteral) isExpr()         {}
func (e ExprLiteral) String() string { return e.Value.String() }

// ExprArrayConstructor is `ARRAY[e1, e2, ...]`.
type ExprArrayConstructor struct {
	Elements []Expr
	Alias    string
}

func (ExprArrayConstructor) isExpr() {}
func (e ExprArrayConstructor) String() string {
	parts := make([]string, len(e.Elements))
	for i, el := range e.Elements {
		parts[i] = el.String()
	}
	s := "ARRAY[" + strings.Join(parts, ", ") + "]"
	if e.Alias != "" {
		s += " AS " + e.Alias
	}
	return s
}

// ExprRowConstructor is `ROW(e1, e2, ...)`.
type ExprRowConstructor struct {
	Elements []Expr
	Alias    string
}

func (ExprRowConstructor) isExpr() {}
func (e ExprRowConstructor) String() string {
	parts := make([]string, len(e.Elements))
	for i, el := range e.Elements {
		parts[i] = el.String()
	}
	s := "ROW(" + strings.Join(parts, ", ") + ")"
	if e.Alias != "" {
		s += " AS " + e.Alias
	}
	return s
}

// ExprSubscript is array/string subscripting: `expr[index]`.
type ExprSubscript struct {
	Expr  Expr
	Index Expr
	Alias string
}

func (ExprSubscript) isExpr() {}
func (e ExprSubscript) String() string {
	s := fmt.Sprintf("%s[%s]", e.Expr, e.Index)
	if e.Alias != "" {
		s += " AS " + e.Alias
	}
	return s
}

// ExprCollate is `expr COLLATE "name"`.
type ExprCollate struct {
	Expr      Expr
	Collation string
	Alias     string
}

func (ExprCollate) isExpr() {}
func (e ExprCollate) String() string {
	s := fmt.Sprintf(`%s COLLATE "%s"`, e.Expr, e.Collation)
	if e.Alias != "" {
		s += " AS " + e.Alias
	}
	return s
}

// ExprFieldAccess is composite field selection: `(row).field`.
type ExprFieldAccess struct {
	Expr  Expr
	Field string
	Alias string
}

func (ExprFieldAccess) isExpr() {}
func (e ExprFieldAccess) String() string {
	s := fmt.Sprintf("(%s).%s", e.Expr, e.Field)
	if e.Alias != "" {
		s += " AS " + e.Alias
	}
	return s
}

// ExprSubquery is a scalar subquery `(SELECT ...)`. Query is a same-
// package pointer back-edge, never shared/mutated once attached.
type ExprSubquery struct {
	Query *Qail
	Alias string
}

func (ExprSubquery) isExpr() {}
func (e ExprSubquery) String() string {
	s := "(<subquery " + string(e.Query.Action) + ">)"
	if e.Alias != "" {
		s += " AS " + e.Alias
	}
	return s
}

// ExprExists is `[NOT] EXISTS (subquery)`.
type ExprExists struct {
	Query   *Qail
	Negated bool
	Alias   string
}

func (ExprExists) isExpr() {}
func (e ExprExists) String() string {
	var b strings.Builder
	if e.Negated {
		b.WriteString("NOT ")
	}
	fmt.Fprintf(&b, "EXISTS (<subquery %s>)", e.Query.Action)
	if e.Alias != "" {
		fmt.Fprintf(&b, " AS %s", e.Alias)
	}
	return b.String()
}
