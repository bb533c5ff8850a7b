package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"ragqa/internal/domain"
)

func TestSaveThenLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "vector_index")
	store := New(dir)
	ctx := context.Background()

	if ok, err := store.Exists(ctx); err != nil || ok {
		t.Fatalf("fresh Exists = %v, %v", ok, err)
	}
	entries := []domain.IndexEntry{
		{Chunk: domain.Chunk{ID: "c1", DocumentID: "d1", SourceURL: "u1", Text: "Diabetes affects insulin regulation."}, Embedding: []float64{0.1, 0.2}},
	}
	header := domain.SnapshotHeader{Version: 1, Embedder: "tfidf", Dimension: 2, Count: 1}
	if err := store.Save(ctx, header, entries); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if ok, _ := store.Exists(ctx); !ok {
		t.Fatalf("expected snapshot to exist")
	}
	h, got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if h.Embedder != "tfidf" || h.Count != 1 {
		t.Fatalf("header mismatch: %+v", h)
	}
	if !reflect.DeepEqual(got, entries) {
		t.Fatalf("entries mismatch: %+v", got)
	}
}

func TestLoad_TruncatedEntries(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	ctx := context.Background()
	_ = store.Save(ctx, domain.SnapshotHeader{Version: 1}, nil)
	if err := os.WriteFile(filepath.Join(dir, entriesFile), []byte(`[{"chunk":`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := store.Load(ctx); err == nil {
		t.Fatalf("expected error for truncated entries")
	}
}
