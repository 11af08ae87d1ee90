// SPDX-License-Identifier: Apache-2.0

package shadow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qail-io/qail/pkg/ast"
)

func TestEncodeDecodeDiffCmds_RoundTrip(t *testing.T) {
	t.Parallel()

	cmds := []*ast.Qail{
		{
			Action: ast.ActionMake,
			Table:  "users",
			Columns: []ast.Expr{
				ast.ExprDef{
					Name:     "id",
					DataType: "uuid",
					Constraints: []ast.Constraint{
						ast.ConstraintPrimaryKey{},
						ast.ConstraintDefault{Expr: "gen_random_uuid()"},
					},
				},
				ast.ExprDef{Name: "email", DataType: "text", Constraints: []ast.Constraint{ast.ConstraintUnique{}}},
			},
		},
		{
			Action:  ast.ActionAlterDrop,
			Table:   "users",
			Columns: []ast.Expr{ast.ExprNamed{Name: "legacy_flag"}},
		},
		{
			Action:   ast.ActionIndex,
			IndexDef: &ast.IndexDef{Name: "users_email_idx", Table: "users", Columns: []string{"email"}, Unique: true},
		},
	}

	encoded, err := encodeDiffCmds(cmds)
	require.NoError(t, err)
	assert.NotEmpty(t, encoded)

	decoded, err := decodeDiffCmds(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 3)

	assert.Equal(t, ast.ActionMake, decoded[0].Action)
	assert.Equal(t, "users", decoded[0].Table)
	require.Len(t, decoded[0].Columns, 2)

	def, ok := decoded[0].Columns[0].(ast.ExprDef)
	require.True(t, ok)
	assert.Equal(t, "id", def.Name)
	assert.Equal(t, "uuid", def.DataType)
	require.Len(t, def.Constraints, 2)

	assert.Equal(t, ast.ActionIndex, decoded[2].Action)
	require.NotNil(t, decoded[2].IndexDef)
	assert.Equal(t, "users_email_idx", decoded[2].IndexDef.Name)
}

func TestDecodeDiffCmds_Empty(t *testing.T) {
	t.Parallel()

	cmds, err := decodeDiffCmds("")
	require.NoError(t, err)
	assert.Nil(t, cmds)
}
