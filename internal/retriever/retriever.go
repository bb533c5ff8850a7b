// Package retriever finds the chunks most relevant to a question.
package retriever

import (
	"context"
	"fmt"
	"math"
	"sort"

	"ragqa/internal/domain"
	"ragqa/internal/textproc"
)

const DefaultTopK = 3

// Index is the part of index.Index the retriever needs.
type Index interface {
	Nearest(ctx context.Context, vector []float64, k int) ([]domain.SearchResult, error)
	Entries() []domain.IndexEntry
}

// Retriever embeds questions and ranks chunks by cosine similarity. With the
// lexical fallback enabled, questions whose vector carries no signal are
// ranked by word overlap instead.
type Retriever struct {
	index    Index
	embedder domain.Embedder
	lexical  bool
}

func New(index Index, embedder domain.Embedder, lexicalFallback bool) *Retriever {
	return &Retriever{index: index, embedder: embedder, lexical: lexicalFallback}
}

// Retrieve returns up to k contexts, rank 1 being the most similar.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) ([]domain.RetrievedContext, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	vec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: embed question: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if r.lexical && isZero(vec) {
		return toContexts(r.lexicalSearch(question, k)), nil
	}
	res, err := r.index.Nearest(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	if r.lexical && allNegligible(res) {
		if lex := r.lexicalSearch(question, k); len(lex) > 0 && lex[0].Score > 0 {
			return toContexts(lex), nil
		}
	}
	return toContexts(res), nil
}

func toContexts(res []domain.SearchResult) []domain.RetrievedContext {
	out := make([]domain.RetrievedContext, len(res))
	for i, r := range res {
		out[i] = domain.RetrievedContext{
			ChunkText:  r.Entry.Chunk.Text,
			SourceURL:  r.Entry.Chunk.SourceURL,
			Rank:       i + 1,
			Similarity: r.Score,
		}
	}
	return out
}

func isZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func allNegligible(res []domain.SearchResult) bool {
	for _, r := range res {
		if r.Score > 1e-9 {
			return false
		}
	}
	return true
}

func (r *Retriever) lexicalSearch(question string, k int) []domain.SearchResult {
	qset := textproc.WordSet(question)
	entries := r.index.Entries()
	out := make([]domain.SearchResult, len(entries))
	for i, e := range entries {
		out[i] = domain.SearchResult{Entry: e, Score: ochiai(qset, e.Chunk.Text)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if k > len(out) {
		k = len(out)
	}
	return out[:k]
}

// ochiai is |A∩B| / sqrt(|A||B|) over distinct content words.
func ochiai(qset map[string]struct{}, text string) float64 {
	seen := textproc.WordSet(text)
	if len(qset) == 0 || len(seen) == 0 {
		return 0
	}
	inter := 0
	for t := range seen {
		if _, ok := qset[t]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(qset))*float64(len(seen)))
}
