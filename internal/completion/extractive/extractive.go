// Package extractive answers offline by selecting context sentences instead of
// generating text. It reads prompts produced by the synthesizer.
package extractive

import (
	"context"
	"math"
	"sort"
	"strings"

	"ragqa/internal/synthesizer"
	"ragqa/internal/textproc"
)

const noAnswer = "The provided context does not contain an answer to this question."

// Completer ranks context sentences by corpus word frequency, weighted by
// overlap with the question, and returns the best ones in reading order.
type Completer struct {
	maxSentences int
}

func NewCompleter(maxSentences int) *Completer {
	if maxSentences <= 0 {
		maxSentences = 2
	}
	return &Completer{maxSentences: maxSentences}
}

func (c *Completer) Name() string { return "extractive" }

func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	contexts, question, ok := synthesizer.ParsePrompt(prompt)
	if !ok {
		contexts, question = []string{prompt}, ""
	}
	var sentences []string
	for _, text := range contexts {
		sentences = append(sentences, textproc.Sentences(text)...)
	}
	if len(sentences) == 0 {
		return noAnswer, nil
	}

	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range c.tokens(sent) {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}
	for k, v := range freq {
		freq[k] = v / maxF
	}
	qset := map[string]struct{}{}
	for _, tok := range c.tokens(question) {
		qset[tok] = struct{}{}
	}

	type pair struct {
		idx     int
		score   float64
		overlap int
	}
	scores := make([]pair, len(sentences))
	for i, sent := range sentences {
		toks := c.tokens(sent)
		p := pair{idx: i}
		for _, tok := range toks {
			p.score += freq[tok]
			if _, ok := qset[tok]; ok {
				p.overlap++
			}
		}
		if l := float64(len(toks)); l > 0 {
			p.score /= math.Sqrt(l)
		}
		p.score *= 1 + float64(p.overlap)
		scores[i] = p
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if len(qset) > 0 && scores[0].overlap == 0 {
		return noAnswer, nil
	}
	n := c.maxSentences
	if n > len(scores) {
		n = len(scores)
	}
	selected := make([]int, 0, n)
	for _, p := range scores[:n] {
		if len(qset) > 0 && p.overlap == 0 {
			break
		}
		selected = append(selected, p.idx)
	}
	sort.Ints(selected)
	out := make([]string, len(selected))
	for i, idx := range selected {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " "), nil
}

func (c *Completer) tokens(text string) []string { return textproc.ContentWords(text) }
