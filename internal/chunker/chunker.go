// Package chunker splits DocumentRecords into bounded, overlapping chunks.
// Sizes are measured in whitespace-delimited tokens and every chunk text is an
// exact substring of its document.
package chunker

import (
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"ragqa/internal/domain"
)

const (
	DefaultChunkSize    = 512
	DefaultChunkOverlap = 20
)

// span is a half-open byte range [start, end) into a document's text.
type span struct {
	start int
	end   int
}

// normalize applies defaults and keeps overlap strictly below size.
func normalize(size, overlap int) (int, int) {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return size, overlap
}

// tokenSpans returns the byte ranges of whitespace-delimited tokens in text[from:to].
func tokenSpans(text string, from, to int) []span {
	var out []span
	start := -1
	for i := from; i < to; {
		r, w := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			if start >= 0 {
				out = append(out, span{start, i})
				start = -1
			}
		} else if start < 0 {
			start = i
		}
		i += w
	}
	if start >= 0 {
		out = append(out, span{start, to})
	}
	return out
}

// windows slides a size-token window with the given overlap over tokens.
func windows(tokens []span, size, overlap int) []span {
	if len(tokens) == 0 {
		return nil
	}
	step := size - overlap
	var out []span
	for start := 0; start < len(tokens); start += step {
		end := start + size
		if end > len(tokens) {
			end = len(tokens)
		}
		out = append(out, span{tokens[start].start, tokens[end-1].end})
		if end == len(tokens) {
			break
		}
	}
	return out
}

// chunkID is stable across rebuilds so a reloaded index and a fresh one agree.
func chunkID(documentID string, idx int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(documentID+":"+strconv.Itoa(idx))).String()
}

func newChunk(doc domain.DocumentRecord, s span, idx int) domain.Chunk {
	return domain.Chunk{
		ID:         chunkID(doc.ID, idx),
		DocumentID: doc.ID,
		SourceURL:  doc.SourceURL,
		Text:       doc.Text[s.start:s.end],
		Index:      idx,
	}
}
