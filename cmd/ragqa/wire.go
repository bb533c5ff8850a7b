package main

import (
	"fmt"
	"io"
	"log"
	"time"

	"ragqa/internal/chunker"
	"ragqa/internal/completion/extractive"
	ollamacompletion "ragqa/internal/completion/ollama"
	openaicompletion "ragqa/internal/completion/openai"
	"ragqa/internal/config"
	"ragqa/internal/corpus"
	"ragqa/internal/domain"
	ollamaembedding "ragqa/internal/embedding/ollama"
	openaiembedding "ragqa/internal/embedding/openai"
	"ragqa/internal/embedding/tfidf"
	"ragqa/internal/service"
	"ragqa/internal/snapshot/jsonfile"
	"ragqa/internal/snapshot/sqlite"
	"ragqa/internal/vectorstore/memory"
	"ragqa/internal/vectorstore/qdrant"
)

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func newChunker(cfg config.ChunkerConfig) domain.Chunker {
	if cfg.Type == "sentence" {
		return chunker.NewSentenceChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	}
	return chunker.NewWindowChunker(cfg.ChunkSize, cfg.ChunkOverlap)
}

func newEmbedder(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "tfidf":
		return tfidf.NewEmbedder(), nil
	case "openai":
		return openaiembedding.NewClient(openaiembedding.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   seconds(cfg.OpenAI.TimeoutSecs),
		})
	case "ollama":
		return ollamaembedding.NewEmbedder(ollamaembedding.Config{
			BaseURL: cfg.Ollama.BaseURL,
			Model:   cfg.Ollama.Model,
			Timeout: seconds(cfg.Ollama.TimeoutSecs),
		})
	}
	return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
}

func newCompleter(cfg config.CompleterConfig) (domain.Completer, error) {
	switch cfg.Type {
	case "groq", "openai":
		return openaicompletion.NewCompleter(openaicompletion.Config{
			Name:        cfg.Type,
			BaseURL:     cfg.OpenAI.BaseURL,
			APIKeyEnv:   cfg.OpenAI.APIKeyEnv,
			Model:       cfg.OpenAI.Model,
			Temperature: cfg.OpenAI.Temperature,
			Timeout:     seconds(cfg.OpenAI.TimeoutSecs),
		})
	case "ollama":
		return ollamacompletion.NewCompleter(ollamacompletion.Config{
			BaseURL: cfg.Ollama.BaseURL,
			Model:   cfg.Ollama.Model,
			Timeout: seconds(cfg.Ollama.TimeoutSecs),
		})
	case "extractive":
		return extractive.NewCompleter(2), nil
	}
	return nil, fmt.Errorf("unknown completer: %s", cfg.Type)
}

func newStore(cfg config.VectorStoreConfig, logger *log.Logger) (domain.VectorStore, io.Closer, error) {
	switch cfg.Type {
	case "memory":
		return memory.NewStorage(), nopCloser{}, nil
	case "qdrant":
		st, err := qdrant.NewStorage(qdrant.Config{
			Host:       cfg.Qdrant.Host,
			Port:       cfg.Qdrant.Port,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			UseTLS:     cfg.Qdrant.UseTLS,
			Logger:     logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	}
	return nil, nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
}

func newSnapshot(cfg config.SnapshotConfig) (domain.Snapshot, io.Closer, error) {
	switch cfg.Type {
	case "sqlite":
		st, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	case "json":
		return jsonfile.New(cfg.Path), nopCloser{}, nil
	}
	return nil, nil, fmt.Errorf("unknown snapshot: %s", cfg.Type)
}

// buildDeps assembles every collaborator named by cfg. The returned closers
// must be closed after the service is done.
func buildDeps(cfg *config.AppConfig, logger *log.Logger) (service.Deps, []io.Closer, error) {
	var closers []io.Closer
	emb, err := newEmbedder(cfg.Embedder)
	if err != nil {
		return service.Deps{}, nil, fmt.Errorf("%w: embedder: %w", domain.ErrFatalInit, err)
	}
	comp, err := newCompleter(cfg.Completer)
	if err != nil {
		return service.Deps{}, nil, fmt.Errorf("%w: completer: %w", domain.ErrFatalInit, err)
	}
	store, c, err := newStore(cfg.VectorStore, logger)
	if err != nil {
		return service.Deps{}, nil, fmt.Errorf("%w: vector store: %w", domain.ErrFatalInit, err)
	}
	closers = append(closers, c)
	snap, c, err := newSnapshot(cfg.Snapshot)
	if err != nil {
		return service.Deps{}, closers, fmt.Errorf("%w: snapshot: %w", domain.ErrFatalInit, err)
	}
	closers = append(closers, c)
	return service.Deps{
		Source:          corpus.NewJSONSource(cfg.Corpus.Path, cfg.Corpus.Lenient, logger),
		Chunker:         newChunker(cfg.Chunker),
		Embedder:        emb,
		Completer:       comp,
		Store:           store,
		Snapshot:        snap,
		TopK:            cfg.Retrieval.TopK,
		PreviewChars:    cfg.Retrieval.PreviewChars,
		LexicalFallback: cfg.UseLexicalFallback(),
		Logger:          logger,
	}, closers, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
