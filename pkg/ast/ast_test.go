// SPDX-License-Identifier: Apache-2.0

package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderPattern(t *testing.T) {
	q := Get("users").
		WithColumns("id", "email").
		Eq("active", ValueBool(true)).
		Limit(10)

	assert.Equal(t, ActionGet, q.Action)
	assert.Equal(t, "users", q.Table)
	require.Len(t, q.Columns, 2)
	assert.Equal(t, "id", q.Columns[0].(ExprNamed).Name)

	require.Len(t, q.Cages, 2)
	filterCage := q.Cages[0]
	_, isFilter := filterCage.Kind.(CageFilter)
	assert.True(t, isFilter)
	require.Len(t, filterCage.Conditions, 1)
	assert.Equal(t, OpEq, filterCage.Conditions[0].Op)

	limitCage := q.Cages[1].Kind.(CageLimit)
	assert.EqualValues(t, 10, limitCage.N)
}

func TestFilterAccumulatesIntoSameCage(t *testing.T) {
	q := Get("users").Eq("active", ValueBool(true)).Gt("age", ValueInt(18))

	require.Len(t, q.Cages, 1)
	assert.Len(t, q.Cages[0].Conditions, 2)
}

func TestOrFilterCreatesSeparateCage(t *testing.T) {
	q := Get("users").Eq("active", ValueBool(true)).OrFilter("role", OpEq, ValueString("admin"))

	require.Len(t, q.Cages, 2)
	assert.Equal(t, LogicalOr, q.Cages[1].LogicalOp)
}

func TestBuilderDoesNotMutateParent(t *testing.T) {
	base := Get("users")
	withFilter := base.Eq("id", ValueInt(1))

	assert.Empty(t, base.Cages)
	assert.Len(t, withFilter.Cages, 1)
}

func TestOperatorSQLSymbol(t *testing.T) {
	tests := map[string]struct {
		op       Operator
		expected string
	}{
		"eq":          {OpEq, "="},
		"fuzzy":       {OpFuzzy, "ILIKE"},
		"contains":    {OpContains, "@>"},
		"is null":     {OpIsNull, "IS NULL"},
		"contained":   {OpContainedBy, "<@"},
		"similar to":  {OpSimilarTo, "SIMILAR TO"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.op.SQLSymbol())
		})
	}
}

func TestOperatorNeedsValue(t *testing.T) {
	assert.False(t, OpIsNull.NeedsValue())
	assert.False(t, OpIsNotNull.NeedsValue())
	assert.False(t, OpExists.NeedsValue())
	assert.True(t, OpEq.NeedsValue())
	assert.True(t, OpIn.NeedsValue())
}

func TestValueStringEscapesQuotes(t *testing.T) {
	v := ValueString("O'Brien")
	assert.Equal(t, "'O''Brien'", v.String())
}

func TestJSONAccessQuotingRules(t *testing.T) {
	e := ExprJSONAccess{
		Column: "data",
		PathSegments: []JSONPathSegment{
			{Key: "a", AsText: false},
			{Key: "0", AsText: false},
			{Key: "b", AsText: true},
		},
	}
	assert.Equal(t, `data->'a'->0->>'b'`, e.String())
}

func TestOnConflictBuilders(t *testing.T) {
	q := Add("users").
		SetValue("id", ValueInt(1)).
		SetValue("name", ValueString("alice")).
		OnConflictUpdate([]string{"id"}, []Assignment{{Column: "name", Value: ExprNamed{Name: "EXCLUDED.name"}}})

	require.NotNil(t, q.OnConflict)
	assert.Equal(t, []string{"id"}, q.OnConflict.Columns)
	assert.False(t, q.OnConflict.DoNothing)
	require.Len(t, q.OnConflict.Assignments, 1)
}

func TestWindowFrameSQL(t *testing.T) {
	f := WindowFrame{
		Mode:  FrameRows,
		Start: FrameBound{Kind: FrameUnboundedPreceding},
		End:   FrameBound{Kind: FrameCurrentRow},
	}
	assert.Equal(t, "ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW", f.SQL())
}
