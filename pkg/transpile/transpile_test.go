// SPDX-License-Identifier: Apache-2.0

package transpile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qail-io/qail/pkg/ast"
)

func TestTranspileSimpleSelect(t *testing.T) {
	q := ast.Get("users").WithColumns("id", "email").Eq("status", ast.ValueString("active")).Limit(10)

	res, err := Transpile(q, Postgres)
	require.NoError(t, err)
	assert.Contains(t, res.SQL, `SELECT "id", "email" FROM "users"`)
	assert.Contains(t, res.SQL, `WHERE ("status" = $1)`)
	assert.Contains(t, res.SQL, "LIMIT 10")
	require.Len(t, res.Params, 1)
	assert.Equal(t, ast.ValueString("active"), res.Params[0])
}

func TestTranspileInsertWithOnConflict(t *testing.T) {
	q := ast.Add("users").
		SetValue("id", ast.ValueUUID{}).
		SetValue("email", ast.ValueString("a@example.com")).
		OnConflictUpdate([]string{"id"}, []ast.Assignment{
			{Column: "email", Value: ast.ExprLiteral{Value: ast.ValueString("updated@example.com")}},
		}).
		ReturningAll()

	res, err := Transpile(q, Postgres)
	require.NoError(t, err)
	assert.Contains(t, res.SQL, `INSERT INTO "users"`)
	assert.Contains(t, res.SQL, "ON CONFLICT")
	assert.Contains(t, res.SQL, "DO UPDATE SET")
	assert.Contains(t, res.SQL, "RETURNING *")
}

func TestTranspileUpdateRequiresAssignment(t *testing.T) {
	q := ast.Set("users").Eq("id", ast.ValueInt(1))
	_, err := Transpile(q, Postgres)
	assert.Error(t, err)
}

func TestTranspileFuzzyLowersPerDialect(t *testing.T) {
	q := ast.Get("users").Filter("name", ast.OpFuzzy, ast.ValueString("al"))

	pg, err := Transpile(q, Postgres)
	require.NoError(t, err)
	assert.Contains(t, pg.SQL, "ILIKE")

	lite, err := Transpile(q, SQLite)
	require.NoError(t, err)
	assert.Contains(t, lite.SQL, "LOWER(")
}

func TestTranspileInValues(t *testing.T) {
	q := ast.Get("orders").InValues("status", ast.ValueString("open"), ast.ValueString("closed"))
	res, err := Transpile(q, Postgres)
	require.NoError(t, err)
	assert.Contains(t, res.SQL, "IN ($1, $2)")
	require.Len(t, res.Params, 2)
}

func TestTranspileNamedParamsResolveOnce(t *testing.T) {
	q := ast.Get("orders").
		Filter("status", ast.OpEq, ast.ValueNamedParam("status")).
		OrFilter("status", ast.OpEq, ast.ValueNamedParam("status"))

	res, err := Transpile(q, Postgres)
	require.NoError(t, err)
	require.Len(t, res.NamedParams, 1)
	assert.Equal(t, "status", res.NamedParams[0].Name)
}

func TestTranspileCreateTable(t *testing.T) {
	q := ast.Make("accounts")
	q.Columns = []ast.Expr{
		ast.ExprDef{Name: "id", DataType: "uuid", Constraints: []ast.Constraint{ast.ConstraintPrimaryKey{}}},
		ast.ExprDef{Name: "email", DataType: "text", Constraints: []ast.Constraint{ast.ConstraintUnique{}}},
		ast.ExprDef{Name: "note", DataType: "text", Constraints: []ast.Constraint{ast.ConstraintNullable{}}},
	}

	res, err := Transpile(q, Postgres)
	require.NoError(t, err)
	assert.Contains(t, res.SQL, `CREATE TABLE "accounts"`)
	assert.Contains(t, res.SQL, `"id" uuid NOT NULL PRIMARY KEY`)
	assert.Contains(t, res.SQL, `"email" text NOT NULL UNIQUE`)
	assert.Contains(t, res.SQL, `"note" text`)
	assert.NotContains(t, res.SQL, `"note" text NOT NULL`)
}

func TestTranspileRenameColumnMarker(t *testing.T) {
	q := &ast.Qail{
		Action:  ast.ActionMod,
		Table:   "users",
		Columns: []ast.Expr{ast.ExprNamed{Name: "username -> name"}},
	}
	res, err := Transpile(q, Postgres)
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "users" RENAME COLUMN "username" TO "name"`, res.SQL)
}

func TestTranspileCreateIndex(t *testing.T) {
	q := &ast.Qail{
		Action: ast.ActionIndex,
		IndexDef: &ast.IndexDef{
			Name:    "idx_users_email",
			Table:   "users",
			Columns: []string{"email"},
			Unique:  true,
			Method:  "btree",
		},
	}
	res, err := Transpile(q, Postgres)
	require.NoError(t, err)
	assert.Equal(t, `CREATE UNIQUE INDEX "idx_users_email" ON "users" USING btree ("email")`, res.SQL)
}

func TestTranspileJSONAccess(t *testing.T) {
	q := &ast.Qail{
		Action: ast.ActionGet,
		Table:  "events",
		Cages: []ast.Cage{{
			Kind: ast.CageFilter{},
			Conditions: []ast.Condition{{
				Left: ast.ExprJSONAccess{Column: "payload", PathSegments: []ast.JSONPathSegment{
					{Key: "user", AsText: false},
					{Key: "0", AsText: true},
				}},
				Op:    ast.OpEq,
				Value: ast.ValueString("x"),
			}},
			LogicalOp: ast.LogicalAnd,
		}},
	}

	res, err := Transpile(q, Postgres)
	require.NoError(t, err)
	assert.Contains(t, res.SQL, `"payload"->'user'->>0`)
}
