// SPDX-License-Identifier: Apache-2.0

package transpile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qail-io/qail/pkg/ast"
)

func (t *transpiler) condition(c ast.Condition) (string, error) {
	left, err := t.expr(c.Left)
	if err != nil {
		return "", err
	}

	op := c.Op
	if op == ast.OpFuzzy && t.dialect == SQLite {
		v, err := t.value(c.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("LOWER(%s) LIKE LOWER(%s)", left, v), nil
	}

	if !op.NeedsValue() {
		return fmt.Sprintf("%s %s", left, op.SQLSymbol()), nil
	}

	if op == ast.OpIn || op == ast.OpNotIn {
		arr, ok := c.Value.(ast.ValueArray)
		if !ok {
			return "", fmt.Errorf("transpile: %s requires an array value", op)
		}
		placeholders := make([]string, len(arr))
		for i, v := range arr {
			p, err := t.value(v)
			if err != nil {
				return "", err
			}
			placeholders[i] = p
		}
		return fmt.Sprintf("%s %s (%s)", left, op.SQLSymbol(), strings.Join(placeholders, ", ")), nil
	}

	v, err := t.value(c.Value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s %s", left, op.SQLSymbol(), v), nil
}

// value renders an ast.Value. Literal values always collapse into a
// positional parameter; columns, raw functions, and existing parameter
// references render as text directly.
func (t *transpiler) value(v ast.Value) (string, error) {
	switch val := v.(type) {
	case nil:
		return "NULL", nil
	case ast.ValueColumn:
		return t.quote(string(val)), nil
	case ast.ValueFunction:
		return string(val), nil
	case ast.ValueParam:
		return "$" + strconv.Itoa(int(val)), nil
	case ast.ValueNamedParam:
		return t.namedParam(string(val)), nil
	case ast.ValueExpr:
		return t.expr(val.Expr)
	case ast.ValueSubquery:
		sub, err := Transpile(val.Query, t.dialect)
		if err != nil {
			return "", err
		}
		return "(" + t.mergeSubquery(sub) + ")", nil
	default:
		return t.addParam(v), nil
	}
}

func (t *transpiler) namedParam(name string) string {
	if pos, ok := t.named[name]; ok {
		return t.placeholder(pos)
	}
	// Named params carry no literal value of their own here; the slot is
	// reserved and resolved by the caller at bind time.
	t.params = append(t.params, ast.ValueNamedParam(name))
	pos := len(t.params)
	t.named[name] = pos
	t.namedOrder = append(t.namedOrder, NamedParamRef{Name: name, Position: pos})
	return t.placeholder(pos)
}

// mergeSubquery inlines a subquery's SQL, renumbering and appending its
// parameters onto the parent's positional list.
func (t *transpiler) mergeSubquery(sub *Result) string {
	sql := sub.SQL
	offset := len(t.params)
	for i := len(sub.Params); i >= 1; i-- {
		old := "$" + strconv.Itoa(i)
		sql = strings.ReplaceAll(sql, old, "$"+strconv.Itoa(offset+i))
	}
	t.params = append(t.params, sub.Params...)
	return sql
}

func (t *transpiler) expr(e ast.Expr) (string, error) {
	switch ex := e.(type) {
	case ast.ExprStar:
		return "*", nil
	case ast.ExprNamed:
		return t.quote(ex.Name), nil
	case ast.ExprAliased:
		return t.quote(ex.Name) + " AS " + t.quote(ex.Alias), nil
	case ast.ExprLiteral:
		return t.value(ex.Value)
	case ast.ExprAggregate:
		return t.aggregate(ex)
	case ast.ExprCast:
		inner, err := t.expr(ex.Inner)
		if err != nil {
			return "", err
		}
		s := fmt.Sprintf("%s::%s", inner, ex.TargetType)
		return withAlias(s, ex.Alias), nil
	case ast.ExprBinary:
		left, err := t.expr(ex.Left)
		if err != nil {
			return "", err
		}
		right, err := t.expr(ex.Right)
		if err != nil {
			return "", err
		}
		s := fmt.Sprintf("(%s %s %s)", left, ex.Op, right)
		return withAlias(s, ex.Alias), nil
	case ast.ExprFunctionCall:
		return t.functionCall(ex)
	case ast.ExprSpecialFunction:
		return t.specialFunction(ex)
	case ast.ExprJSONAccess:
		return t.jsonAccess(ex)
	case ast.ExprCase:
		return t.caseExpr(ex)
	case ast.ExprArrayConstructor:
		return t.exprList("ARRAY[", "]", ex.Elements, ex.Alias)
	case ast.ExprRowConstructor:
		return t.exprList("ROW(", ")", ex.Elements, ex.Alias)
	case ast.ExprSubscript:
		inner, err := t.expr(ex.Expr)
		if err != nil {
			return "", err
		}
		idx, err := t.expr(ex.Index)
		if err != nil {
			return "", err
		}
		return withAlias(fmt.Sprintf("%s[%s]", inner, idx), ex.Alias), nil
	case ast.ExprCollate:
		inner, err := t.expr(ex.Expr)
		if err != nil {
			return "", err
		}
		return withAlias(fmt.Sprintf(`%s COLLATE "%s"`, inner, ex.Collation), ex.Alias), nil
	case ast.ExprFieldAccess:
		inner, err := t.expr(ex.Expr)
		if err != nil {
			return "", err
		}
		return withAlias(fmt.Sprintf("(%s).%s", inner, t.quote(ex.Field)), ex.Alias), nil
	case ast.ExprDef:
		return t.columnDef(ex)
	case ast.ExprWindow:
		return t.windowExpr(ex)
	case ast.ExprSubquery:
		sub, err := Transpile(ex.Query, t.dialect)
		if err != nil {
			return "", err
		}
		return withAlias("("+t.mergeSubquery(sub)+")", ex.Alias), nil
	case ast.ExprExists:
		sub, err := Transpile(ex.Query, t.dialect)
		if err != nil {
			return "", err
		}
		prefix := "EXISTS"
		if ex.Negated {
			prefix = "NOT EXISTS"
		}
		return withAlias(fmt.Sprintf("%s (%s)", prefix, t.mergeSubquery(sub)), ex.Alias), nil
	default:
		return "", fmt.Errorf("transpile: unsupported expression %T", e)
	}
}

func withAlias(s, alias string) string {
	if alias == "" {
		return s
	}
	return s + " AS " + alias
}

func (t *transpiler) exprList(prefix, suffix string, elems []ast.Expr, alias string) (string, error) {
	parts := make([]string, len(elems))
	for i, e := range elems {
		s, err := t.expr(e)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return withAlias(prefix+strings.Join(parts, ", ")+suffix, alias), nil
}

func (t *transpiler) aggregate(ex ast.ExprAggregate) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s(", ex.Func)
	if ex.Distinct {
		b.WriteString("DISTINCT ")
	}
	b.WriteString(t.quote(ex.Col))
	b.WriteString(")")
	if len(ex.Filter) > 0 {
		parts := make([]string, len(ex.Filter))
		for i, c := range ex.Filter {
			s, err := t.condition(c)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		fmt.Fprintf(&b, " FILTER (WHERE %s)", strings.Join(parts, " AND "))
	}
	return withAlias(b.String(), ex.Alias), nil
}

func (t *transpiler) functionCall(ex ast.ExprFunctionCall) (string, error) {
	parts := make([]string, len(ex.Args))
	for i, a := range ex.Args {
		s, err := t.expr(a)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	s := fmt.Sprintf("%s(%s)", strings.ToUpper(ex.Name), strings.Join(parts, ", "))
	return withAlias(s, ex.Alias), nil
}

func (t *transpiler) specialFunction(ex ast.ExprSpecialFunction) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s(", strings.ToUpper(ex.Name))
	for i, a := range ex.Args {
		if i > 0 {
			b.WriteString(" ")
		}
		if a.Keyword != "" {
			fmt.Fprintf(&b, "%s ", a.Keyword)
		}
		s, err := t.expr(a.Arg)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	b.WriteString(")")
	return withAlias(b.String(), ex.Alias), nil
}

func (t *transpiler) jsonAccess(ex ast.ExprJSONAccess) (string, error) {
	var b strings.Builder
	b.WriteString(t.quote(ex.Column))
	for _, seg := range ex.PathSegments {
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
	return withAlias(b.String(), ex.Alias), nil
}

func (t *transpiler) caseExpr(ex ast.ExprCase) (string, error) {
	var b strings.Builder
	b.WriteString("CASE")
	for _, wc := range ex.WhenClauses {
		cond, err := t.condition(wc.Cond)
		if err != nil {
			return "", err
		}
		then, err := t.expr(wc.Then)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, " WHEN %s THEN %s", cond, then)
	}
	if ex.ElseValue != nil {
		elseVal, err := t.expr(ex.ElseValue)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, " ELSE %s", elseVal)
	}
	b.WriteString(" END")
	return withAlias(b.String(), ex.Alias), nil
}

func (t *transpiler) windowExpr(ex ast.ExprWindow) (string, error) {
	params, err := t.exprList("", "", ex.Params, "")
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s(%s) OVER (", strings.ToUpper(ex.Func), params)
	if len(ex.Partition) > 0 {
		quoted := make([]string, len(ex.Partition))
		for i, p := range ex.Partition {
			quoted[i] = t.quote(p)
		}
		fmt.Fprintf(&b, "PARTITION BY %s", strings.Join(quoted, ", "))
	}
	order := t.orderByClause(ex.Order)
	if order != "" {
		if len(ex.Partition) > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "ORDER BY %s", order)
	}
	if ex.Frame != nil {
		fmt.Fprintf(&b, " %s", ex.Frame.SQL())
	}
	b.WriteString(")")
	return withAlias(b.String(), ex.Name), nil
}
