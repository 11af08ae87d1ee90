// SPDX-License-Identifier: Apache-2.0

package differ

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qail-io/qail/pkg/ast"
	"github.com/qail-io/qail/pkg/schema"
)

func TestDiffNewTable(t *testing.T) {
	old := schema.New()
	new := schema.New()
	new.AddTable("users", &schema.Table{
		Name: "users",
		Columns: map[string]*schema.Column{
			"id": {Name: "id", ColType: schema.ColumnUUID},
		},
	})
	new.Tables["users"].AddColumn("id", new.Tables["users"].Columns["id"])

	cmds, err := Diff(old, new)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, ast.ActionMake, cmds[0].Action)
	assert.Equal(t, "users", cmds[0].Table)
}

func TestDiffRenameWithHint(t *testing.T) {
	old := schema.New()
	oldUsers := &schema.Table{Name: "users"}
	oldUsers.AddColumn("username", &schema.Column{Name: "username", ColType: schema.ColumnText})
	old.AddTable("users", oldUsers)

	newSchema := schema.New()
	newUsers := &schema.Table{Name: "users"}
	newUsers.AddColumn("name", &schema.Column{Name: "name", ColType: schema.ColumnText})
	newSchema.AddTable("users", newUsers)
	newSchema.Migrations = []ast.Hint{
		ast.HintRename{From: "users.username", To: "users.name"},
	}

	cmds, err := Diff(old, newSchema)
	require.NoError(t, err)

	var modCount, alterDropCount, alterCount int
	for _, c := range cmds {
		switch c.Action {
		case ast.ActionMod:
			modCount++
			require.Len(t, c.Columns, 1)
			named, ok := c.Columns[0].(ast.ExprNamed)
			require.True(t, ok)
			assert.Equal(t, "username -> name", named.Name)
		case ast.ActionAlterDrop:
			alterDropCount++
		case ast.ActionAlter:
			alterCount++
		}
	}
	assert.Equal(t, 1, modCount)
	assert.Zero(t, alterDropCount)
	assert.Zero(t, alterCount)
}

func TestDiffDroppedTable(t *testing.T) {
	old := schema.New()
	old.AddTable("sessions", &schema.Table{Name: "sessions"})
	newSchema := schema.New()

	cmds, err := Diff(old, newSchema)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, ast.ActionDrop, cmds[0].Action)
	assert.Equal(t, "sessions", cmds[0].Table)
}

func TestDiffConfirmedDropHintSuppressesStructuralDrop(t *testing.T) {
	old := schema.New()
	old.AddTable("sessions", &schema.Table{Name: "sessions"})
	newSchema := schema.New()
	newSchema.Migrations = []ast.Hint{
		ast.HintDrop{Target: "sessions", Confirmed: true},
	}

	cmds, err := Diff(old, newSchema)
	require.NoError(t, err)

	var dropCount int
	for _, c := range cmds {
		if c.Action == ast.ActionDrop {
			dropCount++
		}
	}
	assert.Equal(t, 1, dropCount)
}

func TestDiffColumnAddAndDrop(t *testing.T) {
	old := schema.New()
	oldTable := &schema.Table{Name: "accounts"}
	oldTable.AddColumn("legacy_flag", &schema.Column{Name: "legacy_flag", ColType: schema.ColumnBool})
	old.AddTable("accounts", oldTable)

	newSchema := schema.New()
	newTable := &schema.Table{Name: "accounts"}
	newTable.AddColumn("balance", &schema.Column{Name: "balance", ColType: schema.ColumnNumeric})
	newSchema.AddTable("accounts", newTable)

	cmds, err := Diff(old, newSchema)
	require.NoError(t, err)

	var gotAlter, gotAlterDrop bool
	for _, c := range cmds {
		if c.Action == ast.ActionAlter && c.Table == "accounts" {
			gotAlter = true
		}
		if c.Action == ast.ActionAlterDrop && c.Table == "accounts" {
			gotAlterDrop = true
		}
	}
	assert.True(t, gotAlter)
	assert.True(t, gotAlterDrop)
}

func TestDiffColumnTypeChange(t *testing.T) {
	old := schema.New()
	oldTable := &schema.Table{Name: "orders"}
	oldTable.AddColumn("total", &schema.Column{Name: "total", ColType: schema.ColumnInt})
	old.AddTable("orders", oldTable)

	newSchema := schema.New()
	newTable := &schema.Table{Name: "orders"}
	newTable.AddColumn("total", &schema.Column{Name: "total", ColType: schema.ColumnNumeric})
	newSchema.AddTable("orders", newTable)

	cmds, err := Diff(old, newSchema)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, ast.ActionAlterType, cmds[0].Action)
}

func TestDiffIndexAddAndDrop(t *testing.T) {
	old := schema.New()
	oldTable := &schema.Table{Name: "events"}
	oldTable.AddColumn("id", &schema.Column{Name: "id", ColType: schema.ColumnUUID})
	oldTable.AddIndex("events_old_idx", &schema.Index{Name: "events_old_idx", Columns: []string{"id"}})
	old.AddTable("events", oldTable)

	newSchema := schema.New()
	newTable := &schema.Table{Name: "events"}
	newTable.AddColumn("id", &schema.Column{Name: "id", ColType: schema.ColumnUUID})
	newTable.AddIndex("events_new_idx", &schema.Index{Name: "events_new_idx", Columns: []string{"id"}, Unique: true})
	newSchema.AddTable("events", newTable)

	cmds, err := Diff(old, newSchema)
	require.NoError(t, err)

	var gotIndex, gotDropIndex bool
	for _, c := range cmds {
		if c.Action == ast.ActionIndex {
			gotIndex = true
			require.NotNil(t, c.IndexDef)
			assert.Equal(t, "events_new_idx", c.IndexDef.Name)
		}
		if c.Action == ast.ActionDropIndex {
			gotDropIndex = true
		}
	}
	assert.True(t, gotIndex)
	assert.True(t, gotDropIndex)
}

func TestDiffTransformHintEmitsSetAction(t *testing.T) {
	old := schema.New()
	old.AddTable("users", &schema.Table{Name: "users"})
	newSchema := schema.New()
	newSchema.AddTable("users", &schema.Table{Name: "users"})
	newSchema.Migrations = []ast.Hint{
		ast.HintTransform{Expression: "lower(email)", Target: "users.email"},
	}

	cmds, err := Diff(old, newSchema)
	require.NoError(t, err)

	var gotSet bool
	for _, c := range cmds {
		if c.Action == ast.ActionSet && c.Table == "users" {
			gotSet = true
		}
	}
	assert.True(t, gotSet)
}
