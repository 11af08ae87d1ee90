// SPDX-License-Identifier: Apache-2.0

package outbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// VectorStore is the worker's view of the target vector database: an
// upsert and a delete, scoped to one collection. Qdrant's driver
// internals are treated as an external collaborator here, so the
// concrete implementation below is a thin REST client rather than a
// full gRPC driver — enough to exercise the outbox's dispatch path
// against a real Qdrant instance.
type VectorStore interface {
	Upsert(ctx context.Context, collection string, id string, vector []float32, payload map[string]any) error
	Delete(ctx context.Context, collection string, id string) error
	// Ping checks connectivity, used both at worker startup and by the
	// circuit breaker's reconnect path.
	Ping(ctx context.Context) error
}

// QdrantREST is a minimal HTTP client for Qdrant's points API, used when
// the project config names a plain (non-gRPC) Qdrant URL.
type QdrantREST struct {
	baseURL string
	client  *http.Client
}

// NewQdrantREST builds a client against baseURL (e.g. "http://localhost:6333").
func NewQdrantREST(baseURL string) *QdrantREST {
	return &QdrantREST{baseURL: strings.TrimRight(baseURL, "/"), client: http.DefaultClient}
}

type upsertRequest struct {
	Points []point `json:"points"`
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload,omitempty"`
}

func (q *QdrantREST) Upsert(ctx context.Context, collection, id string, vector []float32, payload map[string]any) error {
	body, err := json.Marshal(upsertRequest{Points: []point{{ID: id, Vector: vector, Payload: payload}}})
	if err != nil {
		return fmt.Errorf("outbox: marshaling upsert body: %w", err)
	}
	url := fmt.Sprintf("%s/collections/%s/points?wait=true", q.baseURL, collection)
	return q.do(ctx, http.MethodPut, url, body)
}

type deleteRequest struct {
	Points []string `json:"points"`
}

func (q *QdrantREST) Delete(ctx context.Context, collection, id string) error {
	body, err := json.Marshal(deleteRequest{Points: []string{id}})
	if err != nil {
		return fmt.Errorf("outbox: marshaling delete body: %w", err)
	}
	url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", q.baseURL, collection)
	return q.do(ctx, http.MethodPost, url, body)
}

func (q *QdrantREST) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.baseURL, nil)
	if err != nil {
		return err
	}
	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("outbox: pinging vector store: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("outbox: vector store ping returned status %d", resp.StatusCode)
	}
	return nil
}

func (q *QdrantREST) do(ctx context.Context, method, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("outbox: vector store request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("outbox: vector store returned status %d", resp.StatusCode)
	}
	return nil
}

// EmbeddingProvider turns text into a vector. Like VectorStore, a real
// embedding model's internals are outside this module's scope; callers
// supply whichever implementation their sync rule's embedding_model
// names.
type EmbeddingProvider interface {
	Embed(ctx context.Context, model, text string) ([]float32, error)
}

// EmbeddingFunc adapts a plain function to EmbeddingProvider.
type EmbeddingFunc func(ctx context.Context, model, text string) ([]float32, error)

func (f EmbeddingFunc) Embed(ctx context.Context, model, text string) ([]float32, error) {
	return f(ctx, model, text)
}
