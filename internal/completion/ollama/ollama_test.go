package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["stream"] != false || body["prompt"] != "p" {
			t.Errorf("unexpected body: %v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"model": "llama3", "response": "insulin", "done": true})
	}))
	defer srv.Close()

	c, err := NewCompleter(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewCompleter: %v", err)
	}
	got, err := c.Complete(context.Background(), "p")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "insulin" {
		t.Fatalf("unexpected completion %q", got)
	}
}

func TestComplete_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer srv.Close()

	c, _ := NewCompleter(Config{BaseURL: srv.URL, Model: "missing"})
	if _, err := c.Complete(context.Background(), "p"); err == nil {
		t.Fatalf("expected error")
	}
}
