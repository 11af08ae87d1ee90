// SPDX-License-Identifier: Apache-2.0

package outbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qail-io/qail/pkg/config"
)

func TestEmbeddingSource_TriggerColumn(t *testing.T) {
	t.Parallel()

	text, err := embeddingSource(map[string]any{"body": "hello world", "id": "1"}, "body")
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestEmbeddingSource_MissingTriggerColumn(t *testing.T) {
	t.Parallel()

	_, err := embeddingSource(map[string]any{"id": "1"}, "body")
	assert.Error(t, err)
}

func TestEmbeddingSource_WrongType(t *testing.T) {
	t.Parallel()

	_, err := embeddingSource(map[string]any{"body": 42.0}, "body")
	assert.Error(t, err)
}

func TestEmbeddingSource_NoTriggerColumnSerializesPayload(t *testing.T) {
	t.Parallel()

	text, err := embeddingSource(map[string]any{"id": "1"}, "")
	require.NoError(t, err)
	assert.Contains(t, text, "\"id\":\"1\"")
}

func TestNew_BuildsRuleIndexBySourceTable(t *testing.T) {
	t.Parallel()

	rules := []config.SyncRule{
		{SourceTable: "articles", TargetCollection: "articles_vec", TriggerColumn: "body", EmbeddingModel: "text-embedding-3-small"},
		{SourceTable: "comments", TargetCollection: "comments_vec"},
	}
	w := New("postgres://localhost/app", rules, nil, nil, WithBatchSize(50))

	assert.Equal(t, 50, w.batchSize)
	require.Contains(t, w.rules, "articles")
	assert.Equal(t, "articles_vec", w.rules["articles"].TargetCollection)
	require.Contains(t, w.rules, "comments")
}
