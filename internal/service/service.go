// Package service wires retrieval, synthesis and evaluation into the query
// entry point used by the CLI and TUI.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"ragqa/internal/domain"
	"ragqa/internal/evaluator"
	"ragqa/internal/index"
	"ragqa/internal/retriever"
	"ragqa/internal/synthesizer"
)

var ErrEmptyQuestion = errors.New("question is empty")

// Deps are the collaborators a Service is built from.
type Deps struct {
	Source          domain.CorpusSource
	Chunker         domain.Chunker
	Embedder        domain.Embedder
	Completer       domain.Completer
	Store           domain.VectorStore
	Snapshot        domain.Snapshot
	TopK            int
	PreviewChars    int
	LexicalFallback bool
	Logger          *log.Logger
}

// Answer is a synthesized answer with the contexts it was grounded on.
type Answer struct {
	Text     string                    `json:"answer"`
	Contexts []domain.RetrievedContext `json:"contexts"`
}

// Service is only obtainable in the ready state. Its index is read-only, so
// concurrent queries need no locking.
type Service struct {
	index     *index.Index
	retriever *retriever.Retriever
	synth     *synthesizer.Synthesizer
	eval      *evaluator.Evaluator
	topK      int
	logger    *log.Logger
}

// New loads the corpus, chunks it, prepares the embedder and makes the index
// ready. Every failure is wrapped in domain.ErrFatalInit.
func New(ctx context.Context, d Deps) (*Service, error) {
	logger := d.Logger
	if logger == nil {
		logger = log.Default()
	}
	fatal := func(step string, err error) error {
		return fmt.Errorf("%w: %s: %w", domain.ErrFatalInit, step, err)
	}

	docs, err := d.Source.Load(ctx)
	if err != nil {
		return nil, fatal("load corpus", err)
	}
	if len(docs) == 0 {
		return nil, fatal("load corpus", domain.ErrCorpusMissing)
	}
	var chunks []domain.Chunk
	for _, doc := range docs {
		cs, err := d.Chunker.Chunk(doc)
		if err != nil {
			return nil, fatal("chunk "+doc.SourceURL, err)
		}
		chunks = append(chunks, cs...)
	}
	if len(chunks) == 0 {
		return nil, fatal("chunk corpus", errors.New("no chunks produced"))
	}
	logger.Printf("service: %d documents, %d chunks", len(docs), len(chunks))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	if err := d.Embedder.Prepare(texts); err != nil {
		return nil, fatal("prepare embedder", err)
	}
	ix, err := index.EnsureReady(ctx, chunks, d.Embedder, d.Store, d.Snapshot, logger)
	if err != nil {
		return nil, fatal("index", err)
	}

	topK := d.TopK
	if topK <= 0 {
		topK = retriever.DefaultTopK
	}
	return &Service{
		index:     ix,
		retriever: retriever.New(ix, d.Embedder, d.LexicalFallback),
		synth:     synthesizer.New(d.Completer, d.PreviewChars),
		eval:      evaluator.New(d.Embedder, logger),
		topK:      topK,
		logger:    logger,
	}, nil
}

// AnswerQuestion retrieves contexts and synthesizes one answer. Provider
// failures are returned to the caller.
func (s *Service) AnswerQuestion(ctx context.Context, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, ErrEmptyQuestion
	}
	contexts, err := s.retriever.Retrieve(ctx, question, s.topK)
	if err != nil {
		return Answer{}, fmt.Errorf("retrieve: %w", err)
	}
	text, err := s.synth.Synthesize(ctx, question, contexts)
	if err != nil {
		return Answer{Contexts: contexts}, fmt.Errorf("synthesize: %w", err)
	}
	return Answer{Text: text, Contexts: contexts}, nil
}

// Evaluate scores an answer. It never fails; unavailable embeddings score 0.
func (s *Service) Evaluate(ctx context.Context, question, answer string, contexts []string) domain.EvaluationResult {
	return s.eval.Evaluate(ctx, question, answer, contexts)
}

// IndexSize is the number of indexed chunks.
func (s *Service) IndexSize() int { return s.index.Len() }

// ContextTexts extracts the chunk texts for evaluation.
func ContextTexts(contexts []domain.RetrievedContext) []string {
	out := make([]string, len(contexts))
	for i, c := range contexts {
		out[i] = c.ChunkText
	}
	return out
}
