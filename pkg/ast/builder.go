// SPDX-License-Identifier: Apache-2.0

package ast

// This file provides the fluent Qail builder API, mirroring
// cmd/query.rs's method set method-for-method. Every method returns a
// new *Qail (value receiver semantics via copy) so call chains read
// left to right without aliasing surprises.

// Get starts a new SELECT-shaped command against table.
func Get(table string) *Qail { return &Qail{Action: ActionGet, Table: table} }

// Set starts a new UPDATE-shaped command against table.
func Set(table string) *Qail { return &Qail{Action: ActionSet, Table: table} }

// Del starts a new DELETE-shaped command against table.
func Del(table string) *Qail { return &Qail{Action: ActionDel, Table: table} }

// Add starts a new INSERT-shaped command against table.
func Add(table string) *Qail { return &Qail{Action: ActionAdd, Table: table} }

// Make starts a new CREATE TABLE-shaped command.
func Make(table string) *Qail { return &Qail{Action: ActionMake, Table: table} }

func (q *Qail) clone() *Qail {
	cp := *q
	return &cp
}

// SelectAll appends a `*` projection.
func (q *Qail) SelectAll() *Qail {
	n := q.clone()
	n.Columns = append(append([]Expr{}, q.Columns...), ExprStar{})
	return n
}

// Column appends one named column to the projection.
func (q *Qail) Column(col string) *Qail {
	n := q.clone()
	n.Columns = append(append([]Expr{}, q.Columns...), ExprNamed{Name: col})
	return n
}

// WithColumns appends several named columns to the projection.
func (q *Qail) WithColumns(cols ...string) *Qail {
	n := q.clone()
	exprs := append([]Expr{}, q.Columns...)
	for _, c := range cols {
		exprs = append(exprs, ExprNamed{Name: c})
	}
	n.Columns = exprs
	return n
}

func simpleCondition(col string, op Operator, v Value) Condition {
	return Condition{Left: ExprNamed{Name: col}, Op: op, Value: v}
}

// Filter adds (or extends, AND-joined) the filter cage with one
// condition.
func (q *Qail) Filter(col string, op Operator, v Value) *Qail {
	n := q.clone()
	cond := simpleCondition(col, op, v)
	n.Cages = appendToCage(q.Cages, CageFilter{}, LogicalAnd, cond)
	return n
}

// OrFilter adds a new, OR-joined filter cage.
func (q *Qail) OrFilter(col string, op Operator, v Value) *Qail {
	n := q.clone()
	n.Cages = append(append([]Cage{}, q.Cages...), Cage{
		Kind:       CageFilter{},
		Conditions: []Condition{simpleCondition(col, op, v)},
		LogicalOp:  LogicalOr,
	})
	return n
}

func appendToCage(cages []Cage, kind CageKind, logical LogicalOp, cond Condition) []Cage {
	out := append([]Cage{}, cages...)
	for i := range out {
		if sameCageKind(out[i].Kind, kind) {
			conds := append([]Condition{}, out[i].Conditions...)
			conds = append(conds, cond)
			out[i].Conditions = conds
			return out
		}
	}
	return append(out, Cage{Kind: kind, Conditions: []Condition{cond}, LogicalOp: logical})
}

func sameCageKind(a, b CageKind) bool {
	switch a.(type) {
	case CageFilter:
		_, ok := b.(CageFilter)
		return ok
	case CagePayload:
		_, ok := b.(CagePayload)
		return ok
	default:
		return false
	}
}

// Eq/Ne/Gt/Gte/Lt/Lte/Like/ILike are shorthand filters.
func (q *Qail) Eq(col string, v Value) *Qail   { return q.Filter(col, OpEq, v) }
func (q *Qail) Ne(col string, v Value) *Qail   { return q.Filter(col, OpNe, v) }
func (q *Qail) Gt(col string, v Value) *Qail   { return q.Filter(col, OpGt, v) }
func (q *Qail) Gte(col string, v Value) *Qail  { return q.Filter(col, OpGte, v) }
func (q *Qail) Lt(col string, v Value) *Qail   { return q.Filter(col, OpLt, v) }
func (q *Qail) Lte(col string, v Value) *Qail  { return q.Filter(col, OpLte, v) }
func (q *Qail) Like(col string, v Value) *Qail  { return q.Filter(col, OpLike, v) }
func (q *Qail) ILike(col string, v Value) *Qail { return q.Filter(col, OpILike, v) }

// IsNull/IsNotNull need no value.
func (q *Qail) IsNull(col string) *Qail    { return q.Filter(col, OpIsNull, ValueNull{}) }
func (q *Qail) IsNotNull(col string) *Qail { return q.Filter(col, OpIsNotNull, ValueNull{}) }

// InValues filters `col IN (values...)`.
func (q *Qail) InValues(col string, values ...Value) *Qail {
	return q.Filter(col, OpIn, ValueArray(values))
}

// OrderBy appends a sort cage.
func (q *Qail) OrderBy(col string, order SortOrder) *Qail {
	n := q.clone()
	n.Cages = append(append([]Cage{}, q.Cages...), Cage{
		Kind:       CageSort{Order: order},
		Conditions: []Condition{{Left: ExprNamed{Name: col}, Op: OpEq, Value: ValueNull{}}},
		LogicalOp:  LogicalAnd,
	})
	return n
}

func (q *Qail) OrderAsc(col string) *Qail  { return q.OrderBy(col, SortAsc) }
func (q *Qail) OrderDesc(col string) *Qail { return q.OrderBy(col, SortDesc) }

// Limit appends a LIMIT cage.
func (q *Qail) Limit(n int64) *Qail {
	cp := q.clone()
	cp.Cages = append(append([]Cage{}, q.Cages...), Cage{Kind: CageLimit{N: n}})
	return cp
}

// Offset appends an OFFSET cage.
func (q *Qail) Offset(n int64) *Qail {
	cp := q.clone()
	cp.Cages = append(append([]Cage{}, q.Cages...), Cage{Kind: CageOffset{N: n}})
	return cp
}

// GroupBy appends a partition (GROUP BY) cage over the given columns.
func (q *Qail) GroupBy(cols ...string) *Qail {
	conds := make([]Condition, len(cols))
	for i, c := range cols {
		conds[i] = Condition{Left: ExprNamed{Name: c}, Op: OpEq, Value: ValueNull{}}
	}
	cp := q.clone()
	cp.Cages = append(append([]Cage{}, q.Cages...), Cage{Kind: CagePartition{}, Conditions: conds, LogicalOp: LogicalAnd})
	return cp
}

// DistinctOnAll turns on SELECT DISTINCT.
func (q *Qail) DistinctOnAll() *Qail {
	cp := q.clone()
	cp.Distinct = true
	return cp
}

// Join appends a join against table on `leftCol = table.rightCol`.
func (q *Qail) Join(kind JoinKind, table, leftCol, rightCol string) *Qail {
	cp := q.clone()
	cp.Joins = append(append([]Join{}, q.Joins...), Join{
		Table: table,
		Kind:  kind,
		On:    []Condition{{Left: ExprNamed{Name: leftCol}, Op: OpEq, Value: ValueColumn(rightCol)}},
	})
	return cp
}

func (q *Qail) LeftJoin(table, leftCol, rightCol string) *Qail {
	return q.Join(JoinLeft, table, leftCol, rightCol)
}

func (q *Qail) InnerJoin(table, leftCol, rightCol string) *Qail {
	return q.Join(JoinInner, table, leftCol, rightCol)
}

// Returning sets the RETURNING column list.
func (q *Qail) Returning(cols ...string) *Qail {
	cp := q.clone()
	exprs := make([]Expr, len(cols))
	for i, c := range cols {
		exprs[i] = ExprNamed{Name: c}
	}
	cp.Returning = exprs
	return cp
}

// ReturningAll sets `RETURNING *`.
func (q *Qail) ReturningAll() *Qail {
	cp := q.clone()
	cp.Returning = []Expr{ExprStar{}}
	return cp
}

// SetValue sets (or extends) the payload cage with `column = value`, used
// both for INSERT column/value pairs and UPDATE SET assignments.
func (q *Qail) SetValue(col string, v Value) *Qail {
	cp := q.clone()
	cond := Condition{Left: ExprNamed{Name: col}, Op: OpEq, Value: v}
	cp.Cages = appendToCage(q.Cages, CagePayload{}, LogicalAnd, cond)
	return cp
}

// OnConflictUpdate attaches an ON CONFLICT (cols) DO UPDATE SET clause.
func (q *Qail) OnConflictUpdate(conflictCols []string, updates []Assignment) *Qail {
	cp := q.clone()
	cp.OnConflict = &OnConflict{Columns: conflictCols, Assignments: updates}
	return cp
}

// OnConflictNothing attaches an ON CONFLICT (cols) DO NOTHING clause.
func (q *Qail) OnConflictNothing(conflictCols []string) *Qail {
	cp := q.clone()
	cp.OnConflict = &OnConflict{Columns: conflictCols, DoNothing: true}
	return cp
}
