package tfidf

import (
	"context"
	"math"
	"testing"
)

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func TestEmbed_RequiresPrepare(t *testing.T) {
	if _, err := NewEmbedder().Embed(context.Background(), "x"); err == nil {
		t.Fatalf("expected error before Prepare")
	}
}

func TestPrepare_EmptyCorpus(t *testing.T) {
	if err := NewEmbedder().Prepare(nil); err == nil {
		t.Fatalf("expected error for empty corpus")
	}
}

func TestEmbed_NormalizedAndDeterministic(t *testing.T) {
	e := NewEmbedder()
	corpus := []string{"Diabetes affects insulin regulation.", "Exercise improves heart health."}
	if err := e.Prepare(corpus); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	ctx := context.Background()
	v1, _ := e.Embed(ctx, corpus[0])
	v2, _ := e.Embed(ctx, corpus[0])
	if len(v1) != e.Dimension() {
		t.Fatalf("dimension mismatch: %d vs %d", len(v1), e.Dimension())
	}
	if math.Abs(dot(v1, v1)-1) > 1e-9 {
		t.Fatalf("expected unit norm, got %f", dot(v1, v1))
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("not deterministic at %d", i)
		}
	}
	q, _ := e.Embed(ctx, "What does diabetes affect?")
	other, _ := e.Embed(ctx, corpus[1])
	if dot(q, v1) <= dot(q, other) {
		t.Fatalf("expected question closer to diabetes text: %f vs %f", dot(q, v1), dot(q, other))
	}
}

func TestEmbed_UnknownTermsGiveZeroVector(t *testing.T) {
	e := NewEmbedder()
	_ = e.Prepare([]string{"insulin"})
	v, err := e.Embed(context.Background(), "zzz qqq")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	for _, x := range v {
		if x != 0 {
			t.Fatalf("expected zero vector, got %v", v)
		}
	}
}

func TestFingerprint_TracksVocabulary(t *testing.T) {
	a, b, c := NewEmbedder(), NewEmbedder(), NewEmbedder()
	_ = a.Prepare([]string{"apple banana", "cherry durian"})
	_ = b.Prepare([]string{"cherry durian", "banana apple"})
	_ = c.Prepare([]string{"zebra yak", "cherry durian"})
	if a.Fingerprint() == "" || a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("same vocabulary should share a fingerprint: %q vs %q", a.Fingerprint(), b.Fingerprint())
	}
	if a.Dimension() != c.Dimension() || a.Fingerprint() == c.Fingerprint() {
		t.Fatalf("different vocabulary of equal size must change the fingerprint")
	}
}
