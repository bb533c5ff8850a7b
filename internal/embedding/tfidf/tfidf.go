// Package tfidf is an offline embedder fitted on the chunk corpus.
package tfidf

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"math"
	"sort"

	"ragqa/internal/textproc"
)

// Embedder implements a TF-IDF vectorizer with sublinear term frequency.
// Prepare must run before Embed; after that the embedder is read-only and safe
// for concurrent use.
type Embedder struct {
	vocabulary  map[string]int
	idf         []float64
	fingerprint string
	prepared    bool
}

// NewEmbedder creates an unprepared TF-IDF embedder.
func NewEmbedder() *Embedder {
	return &Embedder{
		vocabulary: make(map[string]int),
	}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "tfidf" }

// Prepare builds the vocabulary and smoothed IDF values from the corpus.
// The vocabulary is sorted, so the same corpus always yields the same space.
func (e *Embedder) Prepare(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("empty corpus for TF-IDF prepare")
	}
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range e.tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	if len(terms) == 0 {
		return errors.New("no tokens found in corpus; ensure tokenizer supports your language")
	}
	sort.Strings(terms)
	e.vocabulary = make(map[string]int, len(terms))
	e.idf = make([]float64, len(terms))
	n := float64(len(corpus))
	for i, term := range terms {
		e.vocabulary[term] = i
		e.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}
	h := sha1.New()
	for _, term := range terms {
		h.Write([]byte(term))
		h.Write([]byte{0})
	}
	e.fingerprint = hex.EncodeToString(h.Sum(nil))
	e.prepared = true
	return nil
}

// Fingerprint identifies the fitted vocabulary. Two embedders prepared on
// corpora with the same terms share a fingerprint.
func (e *Embedder) Fingerprint() string { return e.fingerprint }

// Dimension returns the vocabulary size.
func (e *Embedder) Dimension() int { return len(e.idf) }

// Embed returns the L2-normalized TF-IDF vector of text. Text without any known
// term maps to the zero vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if !e.prepared {
		return nil, errors.New("tfidf embedder not prepared")
	}
	vec := make([]float64, len(e.idf))
	tf := make(map[int]int)
	for _, tok := range e.tokenize(text) {
		if idx, ok := e.vocabulary[tok]; ok {
			tf[idx]++
		}
	}
	if len(tf) == 0 {
		return vec, nil
	}
	norm := 0.0
	for idx, count := range tf {
		v := (1 + math.Log(float64(count))) * e.idf[idx]
		vec[idx] = v
		norm += v * v
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}

func (e *Embedder) tokenize(text string) []string { return textproc.ContentWords(text) }
