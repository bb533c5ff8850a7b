package domain

import (
	"context"
	"time"
)

// DocumentRecord is one scraped source entry loaded from the corpus.
// Records are never mutated after load.
type DocumentRecord struct {
	ID         string
	Text       string
	SourceURL  string
	IngestedAt time.Time
}

// Chunk is a contiguous part of a document used as the unit of retrieval.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	SourceURL  string `json:"source_url"`
	Text       string `json:"text"`
	Index      int    `json:"index"`
}

// IndexEntry pairs a chunk with its embedding vector.
type IndexEntry struct {
	Chunk     Chunk     `json:"chunk"`
	Embedding []float64 `json:"embedding"`
}

// SearchResult is an index entry with its cosine similarity to a query vector.
type SearchResult struct {
	Entry IndexEntry
	Score float64
}

// RetrievedContext is a ranked chunk returned for a single question.
type RetrievedContext struct {
	ChunkText  string  `json:"chunk_text"`
	SourceURL  string  `json:"source_url,omitempty"`
	Rank       int     `json:"rank"`
	Similarity float64 `json:"similarity"`
}

// EvaluationResult holds the embedding-based quality scores of an answer.
type EvaluationResult struct {
	AnswerRelevancy  float64 `json:"answer_relevancy"`
	ContextPrecision float64 `json:"context_precision"`
	ContextRecall    float64 `json:"context_recall"`
	GlobalScore      float64 `json:"global_score"`
}

// SnapshotHeader describes a persisted index snapshot.
// Fingerprint identifies the chunk set and embedder state the snapshot was built from.
type SnapshotHeader struct {
	Version     int       `json:"version"`
	Embedder    string    `json:"embedder"`
	Fingerprint string    `json:"fingerprint"`
	Dimension   int       `json:"dimension"`
	Count       int       `json:"count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Completer turns a prompt into generated text.
type Completer interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// CorpusSource loads the document corpus.
type CorpusSource interface {
	Load(ctx context.Context) ([]DocumentRecord, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document DocumentRecord) ([]Chunk, error)
}

// VectorStore holds embedding vectors and supports similarity search.
type VectorStore interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, entries []IndexEntry) error
	Search(ctx context.Context, vector []float64, topK int) ([]SearchResult, error)
	Clear(ctx context.Context) error
}

// Snapshot is a durable location for a built index.
type Snapshot interface {
	Exists(ctx context.Context) (bool, error)
	Save(ctx context.Context, header SnapshotHeader, entries []IndexEntry) error
	Load(ctx context.Context) (SnapshotHeader, []IndexEntry, error)
}
