// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "qail.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad_DefaultsModeToPostgres(t *testing.T) {
	path := writeTempConfig(t, `
[postgres]
url = "postgres://localhost/app"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ModePostgres, cfg.Project.Mode)
	assert.Equal(t, "postgres://localhost/app", cfg.Postgres.URL)
}

func TestLoad_ParsesSyncRules(t *testing.T) {
	path := writeTempConfig(t, `
[project]
mode = "hybrid"

[postgres]
url = "postgres://localhost/app"

[qdrant]
url = "http://localhost:6333"

[[sync]]
source_table = "documents"
target_collection = "documents_vectors"
trigger_column = "body"
embedding_model = "text-embedding-3-small"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Sync, 1)
	assert.Equal(t, "documents", cfg.Sync[0].SourceTable)
	assert.Equal(t, "documents_vectors", cfg.Sync[0].TargetCollection)
	assert.Equal(t, "body", cfg.Sync[0].TriggerColumn)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_RejectsUnknownMode(t *testing.T) {
	path := writeTempConfig(t, `
[project]
mode = "carrier-pigeon"
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_RequiresQdrantURLInHybridMode(t *testing.T) {
	cfg := &Config{Project: ProjectConfig{Mode: ModeHybrid}}
	err := cfg.Validate()
	assert.ErrorContains(t, err, "qdrant.url")
}

func TestValidate_RequiresSyncRuleFields(t *testing.T) {
	cfg := &Config{
		Project:  ProjectConfig{Mode: ModeQdrant},
		Qdrant:   QdrantConfig{URL: "http://localhost:6333"},
		Sync:     []SyncRule{{SourceTable: "documents"}},
	}
	err := cfg.Validate()
	assert.ErrorContains(t, err, "target_collection")
}
