// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qail-io/qail/pkg/ast"
)

func TestParseSimpleGet(t *testing.T) {
	q, err := Parse("get users fields id, email where age > 18 order by email desc limit 10 offset 5")
	require.NoError(t, err)

	assert.Equal(t, ast.ActionGet, q.Action)
	assert.Equal(t, "users", q.Table)
	require.Len(t, q.Columns, 2)
	assert.Equal(t, ast.ExprNamed{Name: "id"}, q.Columns[0])

	var sawFilter, sawSort, sawLimit, sawOffset bool
	for _, c := range q.Cages {
		switch k := c.Kind.(type) {
		case ast.CageFilter:
			sawFilter = true
			require.Len(t, c.Conditions, 1)
			assert.Equal(t, ast.OpGt, c.Conditions[0].Op)
		case ast.CageSort:
			sawSort = true
			assert.Equal(t, ast.SortDesc, k.Order)
		case ast.CageLimit:
			sawLimit = true
			assert.EqualValues(t, 10, k.N)
		case ast.CageOffset:
			sawOffset = true
			assert.EqualValues(t, 5, k.N)
		}
	}
	assert.True(t, sawFilter)
	assert.True(t, sawSort)
	assert.True(t, sawLimit)
	assert.True(t, sawOffset)
}

func TestParseSelectAll(t *testing.T) {
	q, err := Parse("get users fields *")
	require.NoError(t, err)
	require.Len(t, q.Columns, 1)
	assert.Equal(t, ast.ExprStar{}, q.Columns[0])
}

func TestParseWhereInList(t *testing.T) {
	q, err := Parse("get orders where status in ('open', 'pending')")
	require.NoError(t, err)
	require.Len(t, q.Cages, 1)
	cond := q.Cages[0].Conditions[0]
	assert.Equal(t, ast.OpIn, cond.Op)
	arr, ok := cond.Value.(ast.ValueArray)
	require.True(t, ok)
	require.Len(t, arr, 2)
}

func TestParseWhereAndOrSplitsCages(t *testing.T) {
	q, err := Parse("get orders where status = 'open' and total > 100 or status = 'closed'")
	require.NoError(t, err)
	require.Len(t, q.Cages, 2)
	assert.Equal(t, ast.LogicalAnd, q.Cages[0].LogicalOp)
	require.Len(t, q.Cages[0].Conditions, 2)
	assert.Equal(t, ast.LogicalOr, q.Cages[1].LogicalOp)
	require.Len(t, q.Cages[1].Conditions, 1)
}

func TestParseJSONAccess(t *testing.T) {
	q, err := Parse("get events where payload->'user'->>0 = 'x'")
	require.NoError(t, err)
	cond := q.Cages[0].Conditions[0]
	access, ok := cond.Left.(ast.ExprJSONAccess)
	require.True(t, ok)
	assert.Equal(t, "payload", access.Column)
	require.Len(t, access.PathSegments, 2)
	assert.False(t, access.PathSegments[0].AsText)
	assert.True(t, access.PathSegments[1].AsText)
}

func TestParseArithmeticPrecedence(t *testing.T) {
	q, err := Parse("get orders fields total where id = 1")
	require.NoError(t, err)
	assert.Equal(t, "orders", q.Table)

	q2, err := Parse("get orders where computed > a + b * c")
	require.NoError(t, err)
	cond := q2.Cages[0].Conditions[0]
	col, ok := cond.Value.(ast.ValueColumn)
	require.False(t, ok)
	_ = col
}

func TestParseUnknownActionFails(t *testing.T) {
	_, err := Parse("frobnicate users")
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestParseEmptyProjectionFails(t *testing.T) {
	_, err := Parse("get users fields where id = 1")
	require.Error(t, err)
}

func TestParseUnclosedFunctionArgsFails(t *testing.T) {
	_, err := Parse("get users where lower(email = 'a@example.com'")
	require.Error(t, err)
}

func TestLegacySyntaxRecognized(t *testing.T) {
	stmt, ok := ParseLegacy(`get::users:'id''email'[filter=active]`)
	require.True(t, ok)
	assert.Equal(t, "get", stmt.Action)
	assert.Equal(t, "users", stmt.Table)
	assert.Contains(t, stmt.Columns, "id")
	assert.Contains(t, stmt.Columns, "email")
	assert.Equal(t, "active", stmt.Filters["filter"])
}

func TestIsLegacySyntax(t *testing.T) {
	assert.True(t, IsLegacySyntax(`get::users:'id'`))
	assert.False(t, IsLegacySyntax(`get users fields id`))
}
