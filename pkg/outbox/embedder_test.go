// SPDX-License-Identifier: Apache-2.0

package outbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRESTEmbedder_Embed(t *testing.T) {
	t.Parallel()

	var gotReq embeddingsRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(embeddingsResponse{
			Data: []struct {
				Embedding []float32 `json:"embedding"`
			}{{Embedding: []float32{0.1, 0.2, 0.3}}},
		})
	}))
	defer srv.Close()

	embedder := NewRESTEmbedder(srv.URL, "sk-test")
	vec, err := embedder.Embed(context.Background(), "text-embedding-3-small", "hello world")
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "text-embedding-3-small", gotReq.Model)
	assert.Equal(t, "hello world", gotReq.Input)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestRESTEmbedder_Embed_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	embedder := NewRESTEmbedder(srv.URL, "")
	_, err := embedder.Embed(context.Background(), "model", "text")
	assert.Error(t, err)
}
