// SPDX-License-Identifier: Apache-2.0

package outbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// RESTEmbedder calls an OpenAI-compatible /embeddings endpoint. It is
// the one concrete EmbeddingProvider this module ships; any other
// embedding model is wired in by implementing the interface directly.
type RESTEmbedder struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewRESTEmbedder(baseURL, apiKey string) *RESTEmbedder {
	return &RESTEmbedder{baseURL: baseURL, apiKey: apiKey, client: http.DefaultClient}
}

type embeddingsRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (r *RESTEmbedder) Embed(ctx context.Context, model, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingsRequest{Model: model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("outbox: encoding embeddings request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("outbox: embeddings request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("outbox: embeddings endpoint returned %s: %s", resp.Status, b)
	}

	var out embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("outbox: decoding embeddings response: %w", err)
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("outbox: embeddings endpoint returned no vectors")
	}
	return out.Data[0].Embedding, nil
}
