// SPDX-License-Identifier: Apache-2.0

package impact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qail-io/qail/pkg/ast"
)

func TestClassify_DroppedTable(t *testing.T) {
	t.Parallel()

	diff := []*ast.Qail{{Action: ast.ActionDrop, Table: "legacy_users"}}
	refs := []CodeReference{
		{File: "app.go", Line: 10, Kind: KindQail, Table: "legacy_users"},
		{File: "app.go", Line: 20, Kind: KindQail, Table: "orders"},
	}

	changes := Classify(diff, refs)
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeDroppedTable, changes[0].Kind)
	assert.Equal(t, "legacy_users", changes[0].Table)
	require.Len(t, changes[0].References, 1)
}

func TestClassify_DroppedColumn(t *testing.T) {
	t.Parallel()

	diff := []*ast.Qail{{
		Action:  ast.ActionAlterDrop,
		Table:   "users",
		Columns: []ast.Expr{ast.ExprNamed{Name: "legacy_flag"}},
	}}
	refs := []CodeReference{
		{File: "app.go", Line: 5, Kind: KindRawSQL, Table: "users", Column: "legacy_flag"},
	}

	changes := Classify(diff, refs)
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeDroppedColumn, changes[0].Kind)
	assert.Equal(t, "legacy_flag", changes[0].Column)
}

func TestClassify_RenamedColumn(t *testing.T) {
	t.Parallel()

	diff := []*ast.Qail{{
		Action:  ast.ActionMod,
		Table:   "users",
		Columns: []ast.Expr{ast.ExprNamed{Name: "email -> email_address"}},
	}}
	refs := []CodeReference{
		{File: "app.go", Line: 8, Kind: KindLegacy, Table: "users", Column: "email"},
	}

	changes := Classify(diff, refs)
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeRenamedColumn, changes[0].Kind)
	assert.Equal(t, "email", changes[0].Column)
	assert.Equal(t, "email_address", changes[0].NewColumn)
}

func TestClassify_NoMatchingReferencesIsSilent(t *testing.T) {
	t.Parallel()

	diff := []*ast.Qail{{Action: ast.ActionDrop, Table: "unused_table"}}
	changes := Classify(diff, nil)
	assert.Empty(t, changes)
}
