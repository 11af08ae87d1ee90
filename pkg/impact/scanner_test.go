// SPDX-License-Identifier: Apache-2.0

package impact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanFile_FindsQailCall(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "app.go")
	require.NoError(t, os.WriteFile(path, []byte(`package main

func lookup() {
	q := get("users").where("id")
	_ = q
}
`), 0o644))

	refs, err := scanFile(path)
	require.NoError(t, err)

	found := false
	for _, r := range refs {
		if r.Kind == KindQail && r.Table == "users" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestScanFile_FindsLegacySymbol(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "legacy.rb")
	require.NoError(t, os.WriteFile(path, []byte("result = @orders.total\n"), 0o644))

	refs, err := scanFile(path)
	require.NoError(t, err)

	found := false
	for _, r := range refs {
		if r.Kind == KindLegacy && r.Table == "orders" && r.Column == "total" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestScanFile_FindsRawSQL(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "queries.py")
	require.NoError(t, os.WriteFile(path, []byte(`cursor.execute("SELECT id FROM accounts WHERE status = 'active'")`+"\n"), 0o644))

	refs, err := scanFile(path)
	require.NoError(t, err)

	found := false
	for _, r := range refs {
		if r.Kind == KindRawSQL && r.Table == "accounts" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestScanWithRegex_SkipsExcludedDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node_modules", "ignored.js"), []byte(`get("ignored")`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte(`get("kept")`), 0o644))

	refs, err := scanWithRegex(dir)
	require.NoError(t, err)

	for _, r := range refs {
		assert.NotEqual(t, "ignored", r.Table)
	}
}

func TestScanGoFile_ParsesEmbeddedSQL(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "repo.go")
	require.NoError(t, os.WriteFile(path, []byte(`package repo

import "context"

func load(ctx context.Context, conn interface{ ExecContext(context.Context, string, ...any) (any, error) }) {
	conn.ExecContext(ctx, "UPDATE accounts SET status = $1 WHERE id = $2")
}
`), 0o644))

	refs, err := scanGoFile(path)
	require.NoError(t, err)

	found := false
	for _, r := range refs {
		if r.Kind == KindRawSQL && r.Table == "accounts" {
			found = true
		}
	}
	assert.True(t, found)
}
