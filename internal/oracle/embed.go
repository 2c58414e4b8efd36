// Package oracle talks to the language-model service. Only query embeddings
// are needed here; results are never cached.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/httpclient"
)

// ErrEmptyEmbedding is returned when the service answers without a vector.
var ErrEmptyEmbedding = errors.New("no embedding returned")

// Config configures an Embedder.
type Config struct {
	BaseURL   string
	Model     string
	Dimension int
}

// Embedder calls an OpenAI-compatible /embeddings endpoint.
type Embedder struct {
	baseURL string
	model   string
	dim     int
	client  *httpclient.Client
}

// NewEmbedder creates an Embedder. A zero Dimension disables the length check.
func NewEmbedder(cfg Config, client *httpclient.Client) *Embedder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	return &Embedder{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		dim:     cfg.Dimension,
		client:  client,
	}
}

// Embed returns the embedding of text. Both the OpenAI (data[0].embedding)
// and Ollama (embedding) response shapes are accepted.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyEmbedding
	}
	req := struct {
		Input  string `json:"input"`
		Prompt string `json:"prompt"`
		Model  string `json:"model"`
	}{Input: text, Prompt: text, Model: e.model}

	var out struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
		Embedding []float32 `json:"embedding"`
	}
	if err := e.client.DoJSON(ctx, http.MethodPost, e.baseURL+"/embeddings", req, &out); err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	v := out.Embedding
	if len(out.Data) > 0 {
		v = out.Data[0].Embedding
	}
	if len(v) == 0 {
		return nil, ErrEmptyEmbedding
	}
	if e.dim > 0 && len(v) != e.dim {
		return nil, fmt.Errorf("embed: got %d dimensions, want %d", len(v), e.dim)
	}
	return v, nil
}
