package evaluator

import (
	"bytes"
	"context"
	"errors"
	"log"
	"math"
	"strings"
	"testing"

	"ragqa/internal/domain"
	"ragqa/internal/embedding/tfidf"
)

// downEmbedder fails for every text in fail, or for everything when fail is nil.
type downEmbedder struct {
	inner domain.Embedder
	fail  map[string]bool
	calls map[string]int
}

func (d *downEmbedder) Name() string           { return "down" }
func (d *downEmbedder) Prepare([]string) error { return nil }
func (d *downEmbedder) Dimension() int         { return 0 }
func (d *downEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if d.calls == nil {
		d.calls = map[string]int{}
	}
	d.calls[text]++
	if d.fail == nil || d.fail[text] {
		return nil, errors.New("connection refused")
	}
	return d.inner.Embed(ctx, text)
}

var corpus = []string{
	"Diabetes affects insulin regulation.",
	"Regular exercise improves heart health.",
	"Insulin is produced by the pancreas.",
}

func tfidfEmbedder(t *testing.T) *tfidf.Embedder {
	t.Helper()
	e := tfidf.NewEmbedder()
	if err := e.Prepare(corpus); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	return e
}

func quiet() *log.Logger { return log.New(&bytes.Buffer{}, "", 0) }

func TestSimilarityScore(t *testing.T) {
	cases := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, 0},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0.5},
		{"zero vector", []float64{0, 0}, []float64{1, 1}, 0.5},
		{"dimension mismatch", []float64{1, 0}, []float64{1, 0, 0}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SimilarityScore(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("SimilarityScore = %f, want %f", got, tc.want)
			}
		})
	}
}

func TestAnswerRelevancy_SelfSimilarity(t *testing.T) {
	ev := New(tfidfEmbedder(t), quiet())
	for _, text := range corpus {
		if got := ev.AnswerRelevancy(context.Background(), text, text); math.Abs(got-1) > 1e-9 {
			t.Fatalf("AnswerRelevancy(%q, same) = %f", text, got)
		}
	}
}

func TestEmptyContextsScoreZero(t *testing.T) {
	ev := New(tfidfEmbedder(t), quiet())
	ctx := context.Background()
	if got := ev.ContextPrecision(ctx, "diabetes", nil); got != 0 {
		t.Fatalf("precision with no contexts = %f", got)
	}
	if got := ev.ContextRecall(ctx, "insulin", []string{}); got != 0 {
		t.Fatalf("recall with no contexts = %f", got)
	}
}

func TestEvaluate_RangeAndExactMean(t *testing.T) {
	ev := New(tfidfEmbedder(t), quiet())
	r := ev.Evaluate(context.Background(), "What does diabetes affect?", "Diabetes affects insulin regulation.", corpus)
	for name, v := range map[string]float64{
		"answer_relevancy":  r.AnswerRelevancy,
		"context_precision": r.ContextPrecision,
		"context_recall":    r.ContextRecall,
		"global_score":      r.GlobalScore,
	} {
		if v < 0 || v > 1 {
			t.Fatalf("%s = %f out of range", name, v)
		}
	}
	if r.GlobalScore != (r.AnswerRelevancy+r.ContextPrecision+r.ContextRecall)/3 {
		t.Fatalf("global score %f is not the mean of %+v", r.GlobalScore, r)
	}
	if r.ContextPrecision <= 0.5 {
		t.Fatalf("related contexts should score above the orthogonal midpoint, got %f", r.ContextPrecision)
	}
}

func TestProviderDown_ScoresZero(t *testing.T) {
	var logs bytes.Buffer
	ev := New(&downEmbedder{}, log.New(&logs, "", 0))
	r := ev.Evaluate(context.Background(), "q", "a", []string{"c"})
	if r != (domain.EvaluationResult{}) {
		t.Fatalf("expected all zeros, got %+v", r)
	}
	if !strings.Contains(logs.String(), "embedding failed") {
		t.Fatalf("expected failure to be logged, got %q", logs.String())
	}
}

func TestFailedContextsAreExcludedFromMean(t *testing.T) {
	inner := tfidfEmbedder(t)
	emb := &downEmbedder{inner: inner, fail: map[string]bool{"broken context": true}}
	ev := New(emb, quiet())
	ctx := context.Background()
	q := "insulin regulation"
	only := ev.ContextPrecision(ctx, q, []string{corpus[0]})
	withBroken := ev.ContextPrecision(ctx, q, []string{corpus[0], "broken context"})
	if only != withBroken {
		t.Fatalf("failed context changed the mean: %f vs %f", only, withBroken)
	}
	if got := ev.ContextPrecision(ctx, q, []string{"broken context"}); got != 0 {
		t.Fatalf("all contexts failing should score 0, got %f", got)
	}
}

func TestEvaluate_EmbedsEachTextOnce(t *testing.T) {
	emb := &downEmbedder{inner: tfidfEmbedder(t), fail: map[string]bool{}}
	New(emb, quiet()).Evaluate(context.Background(), "diabetes", "insulin", []string{corpus[0], corpus[1]})
	for text, n := range emb.calls {
		if n != 1 {
			t.Fatalf("%q embedded %d times", text, n)
		}
	}
}

func TestTally(t *testing.T) {
	var tally Tally
	if tally.Average() != (domain.EvaluationResult{}) {
		t.Fatalf("empty tally should average to zero")
	}
	tally.Add(domain.EvaluationResult{AnswerRelevancy: 1, ContextPrecision: 0.5, ContextRecall: 0, GlobalScore: 0.5})
	tally.Add(domain.EvaluationResult{AnswerRelevancy: 0, ContextPrecision: 0.5, ContextRecall: 1, GlobalScore: 0.5})
	avg := tally.Average()
	if tally.Count() != 2 || avg.AnswerRelevancy != 0.5 || avg.ContextRecall != 0.5 || avg.GlobalScore != 0.5 {
		t.Fatalf("unexpected averages %+v over %d", avg, tally.Count())
	}
}
