// Package memory is an in-process vector store using brute-force cosine similarity.
package memory

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"ragqa/internal/domain"
)

const defaultTopK = 3

// Storage keeps entries in insertion order. Equal scores are ordered by
// insertion, so results are deterministic.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	entries   []domain.IndexEntry
	norms     []float64
}

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.entries = nil
	s.norms = nil
	return nil
}

func (s *Storage) Upsert(ctx context.Context, entries []domain.IndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		return errors.New("store not initialized")
	}
	for _, e := range entries {
		if len(e.Embedding) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	for _, e := range entries {
		s.entries = append(s.entries, e)
		s.norms = append(s.norms, norm(e.Embedding))
	}
	return nil
}

// Search returns the topK entries most similar to vector, best first.
// A topK of zero or less falls back to 3; a topK above the size returns everything.
func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = defaultTopK
	}
	if len(s.entries) > 0 && len(vector) != s.dimension {
		return nil, errors.New("query dimension mismatch")
	}
	qn := norm(vector)
	results := make([]domain.SearchResult, len(s.entries))
	for i, e := range s.entries {
		results[i] = domain.SearchResult{Entry: e, Score: cosine(e.Embedding, vector, s.norms[i], qn)}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK], nil
}

func (s *Storage) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.norms = nil
	return nil
}

// Len reports the number of stored entries.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func cosine(a, b []float64, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum / (na * nb)
}

func norm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
