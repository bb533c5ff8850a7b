package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ragqa/internal/config"
	"ragqa/internal/domain"
	"ragqa/internal/snapshot/sqlite"
)

func offlineConfig(t *testing.T, dir string) *config.AppConfig {
	t.Helper()
	cfg, err := config.Load(filepath.Join(dir, "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Corpus.Path = filepath.Join(dir, "corpus.json")
	cfg.Embedder.Type = "tfidf"
	cfg.Completer.Type = "extractive"
	cfg.VectorStore.Type = "memory"
	cfg.Snapshot.Type = "sqlite"
	cfg.Snapshot.Path = filepath.Join(dir, "index.db")
	return cfg
}

func TestRun_ReturnsStartupErrorInsteadOfExiting(t *testing.T) {
	cfg := offlineConfig(t, t.TempDir())
	err := run(cfg, "what is insulin?", false)
	if !errors.Is(err, domain.ErrFatalInit) || !errors.Is(err, domain.ErrCorpusMissing) {
		t.Fatalf("expected fatal init for a missing corpus, got %v", err)
	}
}

func TestRun_AskPersistsSnapshotAndReleasesIt(t *testing.T) {
	dir := t.TempDir()
	cfg := offlineConfig(t, dir)
	corpus := `[{"url":"https://example.org/diabetes","content":"Diabetes affects insulin regulation. It is managed with diet.","timestamp":"2024-05-01T10:00:00"}]`
	if err := os.WriteFile(cfg.Corpus.Path, []byte(corpus), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := run(cfg, "what does diabetes affect?", false); err != nil {
		t.Fatalf("run: %v", err)
	}

	st, err := sqlite.New(cfg.Snapshot.Path)
	if err != nil {
		t.Fatalf("reopen snapshot: %v", err)
	}
	defer st.Close()
	header, entries, err := st.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if header.Embedder != "tfidf" || len(entries) == 0 {
		t.Fatalf("unexpected snapshot: %+v with %d entries", header, len(entries))
	}
}
