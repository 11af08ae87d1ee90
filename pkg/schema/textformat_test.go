// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qail-io/qail/pkg/ast"
)

func TestParseDocument_TableWithConstraints(t *testing.T) {
	t.Parallel()

	doc := `
table users {
  id uuid primary_key default gen_random_uuid()
  email text unique not_null
  org_id uuid references orgs(id)
}

unique index users_email_idx on users (email)
`
	s, err := ParseDocument(doc)
	require.NoError(t, err)

	users := s.GetTable("users")
	require.NotNil(t, users)
	assert.Equal(t, []string{"id"}, users.PrimaryKey)

	id := users.GetColumn("id")
	require.NotNil(t, id)
	assert.False(t, id.Nullable)
	require.True(t, id.Default.IsSpecified())
	assert.Equal(t, "gen_random_uuid()", id.Default.MustGet())

	email := users.GetColumn("email")
	require.NotNil(t, email)
	assert.True(t, email.Unique)
	assert.False(t, email.Nullable)

	idx := users.Indexes["users_email_idx"]
	require.NotNil(t, idx)
	assert.True(t, idx.Unique)
	assert.Equal(t, []string{"email"}, idx.Columns)
}

func TestParseDocument_Hints(t *testing.T) {
	t.Parallel()

	doc := `
table users { name text }
rename users.username -> users.name
transform LOWER(email) -> users.email
drop accounts confirm
`
	s, err := ParseDocument(doc)
	require.NoError(t, err)
	require.Len(t, s.Migrations, 3)

	rename, ok := s.Migrations[0].(ast.HintRename)
	require.True(t, ok)
	assert.Equal(t, "users.username", rename.From)
	assert.Equal(t, "users.name", rename.To)

	transform, ok := s.Migrations[1].(ast.HintTransform)
	require.True(t, ok)
	assert.Equal(t, "users.email", transform.Target)

	drop, ok := s.Migrations[2].(ast.HintDrop)
	require.True(t, ok)
	assert.Equal(t, "accounts", drop.Target)
	assert.True(t, drop.Confirmed)
}

func TestParseDocument_RejectsPrimaryKeyOnUnsupportedType(t *testing.T) {
	t.Parallel()

	_, err := ParseDocument(`table t { body jsonb primary_key }`)
	assert.Error(t, err)
}
