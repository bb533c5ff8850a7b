// Package ollama generates answers with a local Ollama model.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// Config configures the Ollama generate client.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Completer calls /api/generate without streaming.
type Completer struct {
	client *api.Client
	model  string
}

func NewCompleter(cfg Config) (*Completer, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3"
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("ollama base url: %w", err)
	}
	t := cfg.Timeout
	if t == 0 {
		t = 5 * time.Minute
	}
	return &Completer{client: api.NewClient(base, &http.Client{Timeout: t}), model: cfg.Model}, nil
}

func (c *Completer) Name() string { return "ollama:" + c.model }

func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	stream := false
	var out strings.Builder
	err := c.client.Generate(ctx, &api.GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: &stream,
	}, func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return out.String(), nil
}
