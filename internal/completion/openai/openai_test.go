package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ragqa/internal/domain"
)

func TestNewCompleter_MissingKey(t *testing.T) {
	t.Setenv("RAGQA_TEST_GROQ", "")
	_, err := NewCompleter(Config{Name: "groq", APIKeyEnv: "RAGQA_TEST_GROQ", Model: "m"})
	if !errors.Is(err, domain.ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Model != "llama-3.3-70b-versatile" || len(body.Messages) != 1 || body.Messages[0].Content != "the prompt" {
			t.Errorf("unexpected request: %+v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"llama-3.3-70b-versatile",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Answer: insulin"}}]}`))
	}))
	defer srv.Close()

	t.Setenv("RAGQA_TEST_GROQ", "k")
	c, err := NewCompleter(Config{Name: "groq", BaseURL: srv.URL, APIKeyEnv: "RAGQA_TEST_GROQ", Model: "llama-3.3-70b-versatile"})
	if err != nil {
		t.Fatalf("NewCompleter: %v", err)
	}
	got, err := c.Complete(context.Background(), "the prompt")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "Answer: insulin" {
		t.Fatalf("unexpected completion %q", got)
	}
	if c.Name() != "groq:llama-3.3-70b-versatile" {
		t.Fatalf("unexpected name %q", c.Name())
	}
}
