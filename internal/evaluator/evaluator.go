// Package evaluator scores answers with embedding similarity only. Every
// score lies in [0, 1] and provider failures degrade scores to 0 instead of
// returning errors.
package evaluator

import (
	"context"
	"log"
	"math"
	"sync"

	"ragqa/internal/domain"
)

type Evaluator struct {
	embedder domain.Embedder
	logger   *log.Logger
}

func New(embedder domain.Embedder, logger *log.Logger) *Evaluator {
	if logger == nil {
		logger = log.Default()
	}
	return &Evaluator{embedder: embedder, logger: logger}
}

// embed returns ok=false when the provider fails or yields no vector.
func (e *Evaluator) embed(ctx context.Context, text string) ([]float64, bool) {
	vec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		e.logger.Printf("evaluator: embedding failed, scoring as 0: %v", err)
		return nil, false
	}
	if len(vec) == 0 {
		return nil, false
	}
	return vec, true
}

// SimilarityScore maps cosine similarity from [-1, 1] onto [0, 1].
// Vectors of different length score 0, and a zero vector has cosine 0.
func SimilarityScore(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	cos := 0.0
	if na > 0 && nb > 0 {
		cos = dot / (math.Sqrt(na) * math.Sqrt(nb))
	}
	return clamp((cos + 1) / 2)
}

func clamp(x float64) float64 {
	switch {
	case math.IsNaN(x), x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}

func (e *Evaluator) AnswerRelevancy(ctx context.Context, question, answer string) float64 {
	return e.score(e.embedOnce(ctx), question, answer)
}

func (e *Evaluator) ContextPrecision(ctx context.Context, question string, contexts []string) float64 {
	return e.meanAgainst(e.embedOnce(ctx), question, contexts)
}

func (e *Evaluator) ContextRecall(ctx context.Context, answer string, contexts []string) float64 {
	return e.meanAgainst(e.embedOnce(ctx), answer, contexts)
}

// Evaluate computes all scores, embedding each distinct text once.
// GlobalScore is the plain mean of the three.
func (e *Evaluator) Evaluate(ctx context.Context, question, answer string, contexts []string) domain.EvaluationResult {
	get := e.embedOnce(ctx)
	r := domain.EvaluationResult{
		AnswerRelevancy:  e.score(get, question, answer),
		ContextPrecision: e.meanAgainst(get, question, contexts),
		ContextRecall:    e.meanAgainst(get, answer, contexts),
	}
	r.GlobalScore = (r.AnswerRelevancy + r.ContextPrecision + r.ContextRecall) / 3
	return r
}

type embedFunc func(text string) ([]float64, bool)

// embedOnce memoizes embeddings, including failures, for one evaluation.
func (e *Evaluator) embedOnce(ctx context.Context) embedFunc {
	type result struct {
		vec []float64
		ok  bool
	}
	cache := map[string]result{}
	return func(text string) ([]float64, bool) {
		if r, hit := cache[text]; hit {
			return r.vec, r.ok
		}
		vec, ok := e.embed(ctx, text)
		cache[text] = result{vec, ok}
		return vec, ok
	}
}

func (e *Evaluator) score(get embedFunc, a, b string) float64 {
	va, ok := get(a)
	if !ok {
		return 0
	}
	vb, ok := get(b)
	if !ok {
		return 0
	}
	return SimilarityScore(va, vb)
}

// meanAgainst averages the similarity of anchor to each context. Contexts that
// fail to embed are left out of the mean; no usable context scores 0.
func (e *Evaluator) meanAgainst(get embedFunc, anchor string, contexts []string) float64 {
	if len(contexts) == 0 {
		return 0
	}
	va, ok := get(anchor)
	if !ok {
		return 0
	}
	sum, n := 0.0, 0
	for _, c := range contexts {
		vc, ok := get(c)
		if !ok {
			continue
		}
		sum += SimilarityScore(va, vc)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Tally accumulates evaluation results across a session.
type Tally struct {
	mu    sync.Mutex
	n     int
	total domain.EvaluationResult
}

func (t *Tally) Add(r domain.EvaluationResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n++
	t.total.AnswerRelevancy += r.AnswerRelevancy
	t.total.ContextPrecision += r.ContextPrecision
	t.total.ContextRecall += r.ContextRecall
	t.total.GlobalScore += r.GlobalScore
}

func (t *Tally) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.n
}

// Average returns the per-metric mean, or zeros before the first Add.
func (t *Tally) Average() domain.EvaluationResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.n == 0 {
		return domain.EvaluationResult{}
	}
	n := float64(t.n)
	return domain.EvaluationResult{
		AnswerRelevancy:  t.total.AnswerRelevancy / n,
		ContextPrecision: t.total.ContextPrecision / n,
		ContextRecall:    t.total.ContextRecall / n,
		GlobalScore:      t.total.GlobalScore / n,
	}
}
