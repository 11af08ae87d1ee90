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

func TestQdrantREST_Upsert(t *testing.T) {
	t.Parallel()

	var gotMethod, gotPath string
	var gotBody upsertRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := NewQdrantREST(srv.URL)
	err := store.Upsert(context.Background(), "articles_vec", "42", []float32{0.1, 0.2}, map[string]any{"title": "hi"})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/collections/articles_vec/points", gotPath)
	require.Len(t, gotBody.Points, 1)
	assert.Equal(t, "42", gotBody.Points[0].ID)
	assert.Equal(t, []float32{0.1, 0.2}, gotBody.Points[0].Vector)
}

func TestQdrantREST_Delete(t *testing.T) {
	t.Parallel()

	var gotBody deleteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := NewQdrantREST(srv.URL)
	err := store.Delete(context.Background(), "articles_vec", "42")
	require.NoError(t, err)
	assert.Equal(t, []string{"42"}, gotBody.Points)
}

func TestQdrantREST_Ping_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	store := NewQdrantREST(srv.URL)
	err := store.Ping(context.Background())
	assert.Error(t, err)
}
