// Package index builds, persists and reloads the chunk embedding index.
package index

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"ragqa/internal/domain"
)

// SnapshotVersion is the layout version written into every snapshot header.
const SnapshotVersion = 2

const defaultNearest = 3

// Index is the set of embedded chunks loaded into a vector store. It is
// read-only once built or reloaded.
type Index struct {
	store    domain.VectorStore
	entries  []domain.IndexEntry
	embedder string
	fp       string
	dim      int
}

// fingerprinter is implemented by embedders whose vectors depend on state
// derived from the corpus, such as a fitted vocabulary.
type fingerprinter interface {
	Fingerprint() string
}

// Fingerprint hashes the sorted chunk IDs together with the embedder name
// and, when available, the embedder's own fingerprint. A snapshot is only
// reusable when it was built under the same fingerprint.
func Fingerprint(chunks []domain.Chunk, embedder domain.Embedder) string {
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	sort.Strings(ids)
	h := sha1.New()
	for _, id := range ids {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	h.Write([]byte{0})
	h.Write([]byte(embedder.Name()))
	if f, ok := embedder.(fingerprinter); ok {
		h.Write([]byte{0})
		h.Write([]byte(f.Fingerprint()))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Build embeds every chunk and loads the vectors into store. Any embedding
// failure aborts the build with domain.ErrEmbeddingUnavailable.
func Build(ctx context.Context, chunks []domain.Chunk, embedder domain.Embedder, store domain.VectorStore) (*Index, error) {
	if len(chunks) == 0 {
		return nil, errors.New("build index: no chunks")
	}
	entries := make([]domain.IndexEntry, 0, len(chunks))
	dim := 0
	for _, c := range chunks {
		vec, err := embedder.Embed(ctx, c.Text)
		if err != nil {
			return nil, fmt.Errorf("%w: embed chunk %s: %w", domain.ErrEmbeddingUnavailable, c.ID, err)
		}
		if dim == 0 {
			dim = len(vec)
		}
		if len(vec) == 0 || len(vec) != dim {
			return nil, fmt.Errorf("build index: chunk %s has dimension %d, want %d", c.ID, len(vec), dim)
		}
		entries = append(entries, domain.IndexEntry{Chunk: c, Embedding: vec})
	}
	return load(ctx, entries, embedder.Name(), Fingerprint(chunks, embedder), dim, store)
}

func load(ctx context.Context, entries []domain.IndexEntry, embedder, fp string, dim int, store domain.VectorStore) (*Index, error) {
	if err := store.Init(ctx, dim); err != nil {
		return nil, fmt.Errorf("init vector store: %w", err)
	}
	if err := store.Upsert(ctx, entries); err != nil {
		return nil, fmt.Errorf("load vector store: %w", err)
	}
	return &Index{store: store, entries: entries, embedder: embedder, fp: fp, dim: dim}, nil
}

// Persist writes the index to snap so Reload needs no re-embedding.
func (ix *Index) Persist(ctx context.Context, snap domain.Snapshot) error {
	header := domain.SnapshotHeader{
		Version:     SnapshotVersion,
		Embedder:    ix.embedder,
		Fingerprint: ix.fp,
		Dimension:   ix.dim,
		Count:       len(ix.entries),
		CreatedAt:   time.Now().UTC(),
	}
	if err := snap.Save(ctx, header, ix.entries); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}
	return nil
}

// Reload restores a persisted index into store. Unreadable or inconsistent
// snapshots, and snapshots built over a different chunk set or embedder
// state than chunks and embedder, fail with domain.ErrIndexCorrupt.
func Reload(ctx context.Context, snap domain.Snapshot, chunks []domain.Chunk, embedder domain.Embedder, store domain.VectorStore) (*Index, error) {
	header, entries, err := snap.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexCorrupt, err)
	}
	fp := Fingerprint(chunks, embedder)
	if err := validate(header, entries, embedder, fp); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexCorrupt, err)
	}
	return load(ctx, entries, header.Embedder, fp, header.Dimension, store)
}

func validate(h domain.SnapshotHeader, entries []domain.IndexEntry, embedder domain.Embedder, fp string) error {
	switch {
	case h.Version != SnapshotVersion:
		return fmt.Errorf("unsupported snapshot version %d", h.Version)
	case h.Embedder != embedder.Name():
		return fmt.Errorf("snapshot built with %q, configured embedder is %q", h.Embedder, embedder.Name())
	case h.Fingerprint != fp:
		return errors.New("snapshot fingerprint does not match the current corpus")
	case h.Dimension <= 0:
		return fmt.Errorf("invalid dimension %d", h.Dimension)
	case embedder.Dimension() > 0 && embedder.Dimension() != h.Dimension:
		return fmt.Errorf("snapshot dimension %d, embedder dimension %d", h.Dimension, embedder.Dimension())
	case len(entries) == 0:
		return errors.New("snapshot has no entries")
	case h.Count != len(entries):
		return fmt.Errorf("header counts %d entries, found %d", h.Count, len(entries))
	}
	for i, e := range entries {
		if len(e.Embedding) != h.Dimension {
			return fmt.Errorf("entry %d has dimension %d", i, len(e.Embedding))
		}
	}
	return nil
}

// Nearest returns the k entries most similar to vector. k <= 0 means 3 and a
// k above the index size returns every entry.
func (ix *Index) Nearest(ctx context.Context, vector []float64, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		k = defaultNearest
	}
	if k > len(ix.entries) {
		k = len(ix.entries)
	}
	return ix.store.Search(ctx, vector, k)
}

// Entries returns the indexed entries in insertion order.
func (ix *Index) Entries() []domain.IndexEntry { return ix.entries }

func (ix *Index) Len() int { return len(ix.entries) }

func (ix *Index) Dimension() int { return ix.dim }

// EnsureReady reloads the snapshot when one exists. A corrupt snapshot is
// logged and rebuilt; a missing one is built and persisted right away.
func EnsureReady(ctx context.Context, chunks []domain.Chunk, embedder domain.Embedder, store domain.VectorStore, snap domain.Snapshot, logger *log.Logger) (*Index, error) {
	if logger == nil {
		logger = log.Default()
	}
	exists, err := snap.Exists(ctx)
	if err != nil {
		logger.Printf("index: cannot stat snapshot, rebuilding: %v", err)
		exists = false
	}
	if exists {
		ix, err := Reload(ctx, snap, chunks, embedder, store)
		if err == nil {
			logger.Printf("index: reloaded %d entries from snapshot", ix.Len())
			return ix, nil
		}
		if !errors.Is(err, domain.ErrIndexCorrupt) {
			return nil, err
		}
		logger.Printf("index: snapshot unusable, rebuilding: %v", err)
	}
	ix, err := Build(ctx, chunks, embedder, store)
	if err != nil {
		return nil, err
	}
	if err := ix.Persist(ctx, snap); err != nil {
		logger.Printf("index: %v", err)
	} else {
		logger.Printf("index: built and persisted %d entries", ix.Len())
	}
	return ix, nil
}
