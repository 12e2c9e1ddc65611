package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	embedPath      = "/api/embed"
	requestTimeout = 30 * time.Second
)

// Repository embeds text via an Ollama-compatible API. It uses nomic
// task prefixes: "search_document: " when indexing lessons,
// "search_query: " when searching.
type Repository struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewEmbeddingRepository(baseURL, model string) *Repository {
	return &Repository{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// embedRequest is the Ollama /api/embed request body.
type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// embedResponse is the Ollama /api/embed response body.
type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (r *Repository) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return r.embed(ctx, "search_document: "+text)
}

func (r *Repository) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return r.embed(ctx, "search_query: "+query)
}

func (r *Repository) embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	body, err := json.Marshal(embedRequest{
		Model: r.model,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+embedPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read embed response: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding error (%d): %s", res.StatusCode, string(resBody))
	}

	var decoded embedResponse
	if err := json.Unmarshal(resBody, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode embed response: %w", err)
	}
	if len(decoded.Embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}

	return decoded.Embeddings[0], nil
}
