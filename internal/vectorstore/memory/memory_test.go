package memory

import (
	"context"
	"math"
	"testing"

	"ragqa/internal/domain"
)

func entry(id string, vec ...float64) domain.IndexEntry {
	return domain.IndexEntry{Chunk: domain.Chunk{ID: id, Text: id}, Embedding: vec}
}

func TestSearch_OrdersByCosine(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	if err := s.Init(ctx, 2); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := s.Upsert(ctx, []domain.IndexEntry{entry("far", 0, 1), entry("near", 2, 0.1), entry("mid", 1, 1)}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	res, err := s.Search(ctx, []float64{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 2 || res[0].Entry.Chunk.ID != "near" || res[1].Entry.Chunk.ID != "mid" {
		t.Fatalf("unexpected order: %+v", res)
	}
	if math.Abs(res[1].Score-1/math.Sqrt2) > 1e-9 {
		t.Fatalf("expected unnormalized vectors to score by cosine, got %f", res[1].Score)
	}
}

func TestSearch_TopKBounds(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	_ = s.Init(ctx, 1)
	_ = s.Upsert(ctx, []domain.IndexEntry{entry("a", 1), entry("b", 1), entry("c", 1), entry("d", 1)})
	res, _ := s.Search(ctx, []float64{1}, 10)
	if len(res) != 4 {
		t.Fatalf("expected all 4 entries, got %d", len(res))
	}
	res, _ = s.Search(ctx, []float64{1}, 0)
	if len(res) != 3 {
		t.Fatalf("expected default top 3, got %d", len(res))
	}
	for i, want := range []string{"a", "b", "c"} {
		if res[i].Entry.Chunk.ID != want {
			t.Fatalf("ties should keep insertion order, got %+v", res)
		}
	}
}

func TestSearch_ZeroVectorScoresZero(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	_ = s.Init(ctx, 2)
	_ = s.Upsert(ctx, []domain.IndexEntry{entry("a", 1, 0)})
	res, err := s.Search(ctx, []float64{0, 0}, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res[0].Score != 0 {
		t.Fatalf("expected 0 score for zero query, got %f", res[0].Score)
	}
}

func TestUpsert_RejectsWrongDimension(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	_ = s.Init(ctx, 3)
	if err := s.Upsert(ctx, []domain.IndexEntry{entry("a", 1, 2)}); err == nil {
		t.Fatalf("expected dimension error")
	}
	if s.Len() != 0 {
		t.Fatalf("failed upsert should not store entries")
	}
	_ = s.Upsert(ctx, []domain.IndexEntry{entry("a", 1, 2, 3)})
	_ = s.Clear(ctx)
	if s.Len() != 0 {
		t.Fatalf("Clear left %d entries", s.Len())
	}
}
