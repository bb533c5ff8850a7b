package chunker

import (
	"ragqa/internal/domain"
	"ragqa/internal/textproc"
)

// SentenceChunker packs whole sentences into chunks of at most size tokens.
// Trailing sentences of up to overlap tokens are repeated at the start of the
// next chunk. A sentence longer than size is split with a token window.
type SentenceChunker struct {
	size    int
	overlap int
}

func NewSentenceChunker(size, overlap int) *SentenceChunker {
	size, overlap = normalize(size, overlap)
	return &SentenceChunker{size: size, overlap: overlap}
}

func (c *SentenceChunker) Chunk(document domain.DocumentRecord) ([]domain.Chunk, error) {
	sentences := sentenceSpans(document.Text)
	if len(sentences) == 0 {
		return nil, nil
	}
	counts := make([]int, len(sentences))
	for i, s := range sentences {
		counts[i] = len(tokenSpans(document.Text, s.start, s.end))
	}

	var chunks []domain.Chunk
	emit := func(s span) {
		chunks = append(chunks, newChunk(document, s, len(chunks)))
	}
	i := 0
	for i < len(sentences) {
		if counts[i] > c.size {
			for _, w := range windows(tokenSpans(document.Text, sentences[i].start, sentences[i].end), c.size, c.overlap) {
				emit(w)
			}
			i++
			continue
		}
		j, words := i, 0
		for j < len(sentences) && counts[j] <= c.size && words+counts[j] <= c.size {
			words += counts[j]
			j++
		}
		emit(span{sentences[i].start, sentences[j-1].end})
		if j == len(sentences) {
			break
		}
		back, carried := j, 0
		for back-1 > i && carried+counts[back-1] <= c.overlap {
			carried += counts[back-1]
			back--
		}
		i = back
	}
	return chunks, nil
}

func sentenceSpans(text string) []span {
	raw := textproc.SentenceSpans(text)
	out := make([]span, len(raw))
	for i, r := range raw {
		out[i] = span{r[0], r[1]}
	}
	return out
}
