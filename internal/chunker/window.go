package chunker

import "ragqa/internal/domain"

// WindowChunker performs a sliding window over whitespace tokens.
type WindowChunker struct {
	size    int
	overlap int
}

func NewWindowChunker(size, overlap int) *WindowChunker {
	size, overlap = normalize(size, overlap)
	return &WindowChunker{size: size, overlap: overlap}
}

func (c *WindowChunker) Chunk(document domain.DocumentRecord) ([]domain.Chunk, error) {
	spans := windows(tokenSpans(document.Text, 0, len(document.Text)), c.size, c.overlap)
	chunks := make([]domain.Chunk, 0, len(spans))
	for i, s := range spans {
		chunks = append(chunks, newChunk(document, s, i))
	}
	return chunks, nil
}
