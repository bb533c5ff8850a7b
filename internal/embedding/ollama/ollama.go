// Package ollama embeds text with a local Ollama server.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/ollama/ollama/api"
)

// Config configures the Ollama embeddings client.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Embedder calls the Ollama embeddings endpoint, one request per text.
type Embedder struct {
	client    *api.Client
	model     string
	dimension atomic.Int64
}

// NewEmbedder creates an embedder for the server at cfg.BaseURL.
func NewEmbedder(cfg Config) (*Embedder, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "bge-m3"
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("ollama base url: %w", err)
	}
	t := cfg.Timeout
	if t == 0 {
		t = 2 * time.Minute
	}
	return &Embedder{
		client: api.NewClient(base, &http.Client{Timeout: t}),
		model:  cfg.Model,
	}, nil
}

// Name returns the provider and model, so snapshots built with another model are rejected.
func (e *Embedder) Name() string { return "ollama:" + e.model }

// Prepare is not required for remote embedding. Dimension is learned on first embed.
func (e *Embedder) Prepare(corpus []string) error { return nil }

// Dimension returns the dimensionality seen so far, or 0 before the first call.
func (e *Embedder) Dimension() int { return int(e.dimension.Load()) }

// Embed returns the embedding vector for text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := e.client.Embeddings(ctx, &api.EmbeddingRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("ollama embeddings: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, errors.New("ollama embeddings: empty embedding")
	}
	e.dimension.CompareAndSwap(0, int64(len(resp.Embedding)))
	return resp.Embedding, nil
}
