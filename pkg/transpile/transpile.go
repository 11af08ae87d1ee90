// SPDX-License-Identifier: Apache-2.0

package transpile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qail-io/qail/pkg/ast"
)

// NamedParamRef records where a named parameter (`:name`) first appeared
// in positional form, so callers can resolve it by name at bind time.
type NamedParamRef struct {
	Name     string
	Position int
}

// Result is the transpiled form of one ast.Qail: SQL text plus its
// ordered positional parameters. Params[i] corresponds to placeholder
// i+1 (Postgres `$1`-style) or the i-th `?` (SQLite).
type Result struct {
	SQL         string
	Params      []ast.Value
	NamedParams []NamedParamRef
}

// Transpile lowers q into dialect SQL text. Values never appear inline:
// every literal collapses into a positional parameter, and named
// parameters are resolved by first occurrence and reused thereafter.
func Transpile(q *ast.Qail, dialect Dialect) (*Result, error) {
	tp := &transpiler{dialect: dialect, named: map[string]int{}}
	sql, err := tp.statement(q)
	if err != nil {
		return nil, err
	}
	return &Result{SQL: sql, Params: tp.params, NamedParams: tp.namedOrder}, nil
}

type transpiler struct {
	dialect    Dialect
	params     []ast.Value
	named      map[string]int
	namedOrder []NamedParamRef
}

func (t *transpiler) placeholder(pos int) string {
	if t.dialect == SQLite {
		return "?"
	}
	return "$" + strconv.Itoa(pos)
}

func (t *transpiler) addParam(v ast.Value) string {
	t.params = append(t.params, v)
	return t.placeholder(len(t.params))
}

func (t *transpiler) quote(name string) string { return quoteIdent(t.dialect, name) }

func (t *transpiler) statement(q *ast.Qail) (string, error) {
	switch q.Action {
	case ast.ActionGet:
		return t.selectStmt(q)
	case ast.ActionSet:
		return t.updateStmt(q)
	case ast.ActionDel:
		return t.deleteStmt(q)
	case ast.ActionAdd, ast.ActionUpsert:
		return t.insertStmt(q)
	case ast.ActionMake:
		return t.createTableStmt(q)
	case ast.ActionDrop:
		return fmt.Sprintf("DROP TABLE %s", t.quote(q.Table)), nil
	case ast.ActionAlter:
		return t.alterAddColumnStmt(q)
	case ast.ActionAlterDrop:
		return t.alterDropColumnStmt(q)
	case ast.ActionAlterType:
		return t.alterTypeStmt(q)
	case ast.ActionMod:
		return t.renameColumnStmt(q)
	case ast.ActionIndex:
		return t.createIndexStmt(q)
	case ast.ActionDropIndex:
		return fmt.Sprintf("DROP INDEX %s", t.quote(q.Table)), nil
	default:
		return "", fmt.Errorf("transpile: unsupported action %q", q.Action)
	}
}

// --- DML ---

func (t *transpiler) selectStmt(q *ast.Qail) (string, error) {
	var b strings.Builder
	b.WriteString("SELECT ")
	if q.Distinct {
		b.WriteString("DISTINCT ")
	}
	cols, err := t.projection(q.Columns)
	if err != nil {
		return "", err
	}
	b.WriteString(cols)
	fmt.Fprintf(&b, " FROM %s", t.quote(q.Table))
	if q.TableSample != nil {
		fmt.Fprintf(&b, " %s", q.TableSample.SQL())
	}

	for _, j := range q.Joins {
		onParts := make([]string, len(j.On))
		for i, c := range j.On {
			s, err := t.condition(c)
			if err != nil {
				return "", err
			}
			onParts[i] = s
		}
		fmt.Fprintf(&b, " %s %s ON %s", j.Kind.SQL(), t.quote(j.Table), strings.Join(onParts, " AND "))
	}

	where, err := t.filterClause(q.Cages)
	if err != nil {
		return "", err
	}
	if where != "" {
		fmt.Fprintf(&b, " WHERE %s", where)
	}

	groupBy := t.groupByClause(q.Cages, q.GroupByMode)
	if groupBy != "" {
		fmt.Fprintf(&b, " GROUP BY %s", groupBy)
	}

	order := t.orderByClause(q.Cages)
	if order != "" {
		fmt.Fprintf(&b, " ORDER BY %s", order)
	}

	if limit := cageLimit(q.Cages); limit != nil {
		fmt.Fprintf(&b, " LIMIT %d", limit.N)
	}
	if offset := cageOffset(q.Cages); offset != nil {
		fmt.Fprintf(&b, " OFFSET %d", offset.N)
	}

	if q.LockMode != "" {
		fmt.Fprintf(&b, " %s", q.LockMode.SQL())
	}

	return b.String(), nil
}

func (t *transpiler) projection(cols []ast.Expr) (string, error) {
	if len(cols) == 0 {
		return "*", nil
	}
	parts := make([]string, len(cols))
	for i, c := range cols {
		s, err := t.expr(c)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, ", "), nil
}

func (t *transpiler) updateStmt(q *ast.Qail) (string, error) {
	assignments, err := t.payloadAssignments(q.Cages)
	if err != nil {
		return "", err
	}
	if len(assignments) == 0 {
		return "", fmt.Errorf("transpile: update requires at least one SET assignment")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s SET %s", t.quote(q.Table), strings.Join(assignments, ", "))

	where, err := t.filterClause(q.Cages)
	if err != nil {
		return "", err
	}
	if where != "" {
		fmt.Fprintf(&b, " WHERE %s", where)
	}
	if ret := t.returningClause(q.Returning); ret != "" {
		b.WriteString(ret)
	}
	return b.String(), nil
}

func (t *transpiler) deleteStmt(q *ast.Qail) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "DELETE FROM %s", t.quote(q.Table))
	where, err := t.filterClause(q.Cages)
	if err != nil {
		return "", err
	}
	if where != "" {
		fmt.Fprintf(&b, " WHERE %s", where)
	}
	if ret := t.returningClause(q.Returning); ret != "" {
		b.WriteString(ret)
	}
	return b.String(), nil
}

func (t *transpiler) insertStmt(q *ast.Qail) (string, error) {
	cols, vals, err := t.payloadColumnsValues(q.Cages)
	if err != nil {
		return "", err
	}
	if len(cols) == 0 {
		return "", fmt.Errorf("transpile: insert requires at least one column value")
	}

	quotedCols := make([]string, len(cols))
	for i, c := range cols {
		quotedCols[i] = t.quote(c)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s)",
		t.quote(q.Table), strings.Join(quotedCols, ", "), strings.Join(vals, ", "))

	if q.OnConflict != nil {
		onConflictCols := make([]string, len(q.OnConflict.Columns))
		for i, c := range q.OnConflict.Columns {
			onConflictCols[i] = t.quote(c)
		}
		fmt.Fprintf(&b, " ON CONFLICT (%s) ", strings.Join(onConflictCols, ", "))
		if q.OnConflict.DoNothing {
			b.WriteString("DO NOTHING")
		} else {
			sets := make([]string, len(q.OnConflict.Assignments))
			for i, a := range q.OnConflict.Assignments {
				v, err := t.expr(a.Value)
				if err != nil {
					return "", err
				}
				sets[i] = fmt.Sprintf("%s = %s", t.quote(a.Column), v)
			}
			fmt.Fprintf(&b, "DO UPDATE SET %s", strings.Join(sets, ", "))
		}
	}

	if ret := t.returningClause(q.Returning); ret != "" {
		b.WriteString(ret)
	}
	return b.String(), nil
}

func (t *transpiler) returningClause(cols []ast.Expr) string {
	if len(cols) == 0 {
		return ""
	}
	rendered, err := t.projection(cols)
	if err != nil {
		return ""
	}
	return " RETURNING " + rendered
}

// --- cage helpers ---

func (t *transpiler) filterClause(cages []ast.Cage) (string, error) {
	var cageStrs []string
	for _, c := range cages {
		if _, ok := c.Kind.(ast.CageFilter); !ok {
			continue
		}
		parts := make([]string, len(c.Conditions))
		for i, cond := range c.Conditions {
			s, err := t.condition(cond)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		joiner := " AND "
		if c.LogicalOp == ast.LogicalOr {
			joiner = " OR "
		}
		cageStrs = append(cageStrs, "("+strings.Join(parts, joiner)+")")
	}
	if len(cageStrs) == 0 {
		return "", nil
	}
	return strings.Join(cageStrs, " OR "), nil
}

func (t *transpiler) payloadAssignments(cages []ast.Cage) ([]string, error) {
	var out []string
	for _, c := range cages {
		if _, ok := c.Kind.(ast.CagePayload); !ok {
			continue
		}
		for _, cond := range c.Conditions {
			left, err := t.expr(cond.Left)
			if err != nil {
				return nil, err
			}
			v, err := t.value(cond.Value)
			if err != nil {
				return nil, err
			}
			out = append(out, fmt.Sprintf("%s = %s", left, v))
		}
	}
	return out, nil
}

func (t *transpiler) payloadColumnsValues(cages []ast.Cage) ([]string, []string, error) {
	var cols []string
	var vals []string
	for _, c := range cages {
		if _, ok := c.Kind.(ast.CagePayload); !ok {
			continue
		}
		for _, cond := range c.Conditions {
			named, ok := cond.Left.(ast.ExprNamed)
			if !ok {
				return nil, nil, fmt.Errorf("transpile: insert payload column must be a plain identifier")
			}
			v, err := t.value(cond.Value)
			if err != nil {
				return nil, nil, err
			}
			cols = append(cols, named.Name)
			vals = append(vals, v)
		}
	}
	return cols, vals, nil
}

func (t *transpiler) orderByClause(cages []ast.Cage) string {
	var parts []string
	for _, c := range cages {
		sort, ok := c.Kind.(ast.CageSort)
		if !ok || len(c.Conditions) == 0 {
			continue
		}
		col, err := t.expr(c.Conditions[0].Left)
		if err != nil {
			continue
		}
		parts = append(parts, sort.Order.SQL(col))
	}
	return strings.Join(parts, ", ")
}

func (t *transpiler) groupByClause(cages []ast.Cage, mode ast.GroupByMode) string {
	var cols []string
	for _, c := range cages {
		if _, ok := c.Kind.(ast.CagePartition); !ok {
			continue
		}
		for _, cond := range c.Conditions {
			s, err := t.expr(cond.Left)
			if err == nil {
				cols = append(cols, s)
			}
		}
	}
	if len(cols) == 0 {
		return ""
	}
	switch mode.Kind {
	case ast.GroupByRollup:
		return "ROLLUP (" + strings.Join(cols, ", ") + ")"
	case ast.GroupByCube:
		return "CUBE (" + strings.Join(cols, ", ") + ")"
	case ast.GroupByGroupingSets:
		sets := make([]string, len(mode.GroupingSets))
		for i, set := range mode.GroupingSets {
			quoted := make([]string, len(set))
			for j, col := range set {
				quoted[j] = t.quote(col)
			}
			sets[i] = "(" + strings.Join(quoted, ", ") + ")"
		}
		return "GROUPING SETS (" + strings.Join(sets, ", ") + ")"
	default:
		return strings.Join(cols, ", ")
	}
}

func cageLimit(cages []ast.Cage) *ast.CageLimit {
	for _, c := range cages {
		if l, ok := c.Kind.(ast.CageLimit); ok {
			return &l
		}
	}
	return nil
}

func cageOffset(cages []ast.Cage) *ast.CageOffset {
	for _, c := range cages {
		if o, ok := c.Kind.(ast.CageOffset); ok {
			return &o
		}
	}
	return nil
}
