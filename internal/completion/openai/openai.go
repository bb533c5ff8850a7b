// Package openai generates answers through an OpenAI-compatible chat API
// (OpenAI itself or Groq).
package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"ragqa/internal/domain"
)

// Config configures the chat completion client.
type Config struct {
	Name        string
	BaseURL     string
	APIKeyEnv   string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Completer sends the prompt as a single user message.
type Completer struct {
	client      openai.Client
	name        string
	model       string
	temperature float64
}

// NewCompleter fails with ErrMissingCredential when the API key env is unset.
func NewCompleter(cfg Config) (*Completer, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: env %s is empty", domain.ErrMissingCredential, cfg.APIKeyEnv)
	}
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 60 * time.Second
	}
	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(t),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Completer{
		client:      openai.NewClient(opts...),
		name:        cfg.Name,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

func (c *Completer) Name() string { return c.name + ":" + c.model }

func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if c.temperature > 0 {
		params.Temperature = openai.Float(c.temperature)
	}
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%s chat completion: %w", c.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New(c.name + " chat completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
