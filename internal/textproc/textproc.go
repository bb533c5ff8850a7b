// Package textproc holds the word and sentence splitting shared by the
// embedder, retriever, offline completer and TUI.
package textproc

import (
	"regexp"
	"strings"
)

var (
	wordRe     = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)
	sentenceRe = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"what", "which", "who", "how", "does", "do", "did",
		"le", "la", "les", "de", "des", "du", "un", "une", "et", "est", "en", "que", "qui", "pour", "dans", "sur", "au", "aux",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

func IsStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}

// Words returns the lowercase words of text in order.
func Words(text string) []string {
	return wordRe.FindAllString(strings.ToLower(text), -1)
}

// ContentWords is Words without stopwords.
func ContentWords(text string) []string {
	raw := Words(text)
	out := raw[:0]
	for _, w := range raw {
		if !IsStopword(w) {
			out = append(out, w)
		}
	}
	return out
}

// WordSet returns the distinct content words of text.
func WordSet(text string) map[string]struct{} {
	words := ContentWords(text)
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// SentenceSpans returns trimmed [start, end) byte ranges of the sentences in
// text. Text after the last terminator is kept as a final sentence, and runs
// like "..." stay with the sentence before them.
func SentenceSpans(text string) [][2]int {
	var out [][2]int
	add := func(start, end int) {
		seg := text[start:end]
		trimmed := strings.TrimSpace(seg)
		if trimmed == "" {
			return
		}
		lead := strings.Index(seg, trimmed)
		s := [2]int{start + lead, start + lead + len(trimmed)}
		if len(out) > 0 && strings.Trim(trimmed, ".!?") == "" {
			out[len(out)-1][1] = s[1]
			return
		}
		out = append(out, s)
	}
	last := 0
	for _, m := range sentenceRe.FindAllStringIndex(text, -1) {
		if m[0] > last {
			add(last, m[0])
		}
		add(m[0], m[1])
		last = m[1]
	}
	if last < len(text) {
		add(last, len(text))
	}
	return out
}

// Sentences returns the trimmed sentences of text, including an unterminated tail.
func Sentences(text string) []string {
	spans := SentenceSpans(text)
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = text[s[0]:s[1]]
	}
	return out
}
