// Package synthesizer builds grounded prompts and turns completions into answers.
package synthesizer

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"ragqa/internal/domain"
)

const DefaultPreviewChars = 1000

const (
	header      = "Context information is below."
	delimiter   = "---------------------"
	instruction = "Given the context information and not prior knowledge, answer the query. If the context does not contain the answer, say so."
	queryLabel  = "Query: "
	answerLabel = "Answer: "
)

var (
	scaffoldRe   = regexp.MustCompile(`(?i)^\s*(answer|response|réponse)\s*:\s*`)
	contextTagRe = regexp.MustCompile(`(?m)^\[\d+\](?: \(source: [^)]*\))?\n`)
)

// Synthesizer produces an answer from retrieved contexts with one completion call.
type Synthesizer struct {
	completer    domain.Completer
	previewChars int
}

func New(completer domain.Completer, previewChars int) *Synthesizer {
	if previewChars <= 0 {
		previewChars = DefaultPreviewChars
	}
	return &Synthesizer{completer: completer, previewChars: previewChars}
}

// Synthesize invokes the completer once. Provider failures are wrapped in
// domain.ErrCompletionUnavailable and returned to the caller.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, contexts []domain.RetrievedContext) (string, error) {
	prompt := s.BuildPrompt(question, contexts)
	out, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrCompletionUnavailable, err)
	}
	return StripScaffold(out), nil
}

// BuildPrompt renders the grounded prompt. Each context is cut to the preview length.
func (s *Synthesizer) BuildPrompt(question string, contexts []domain.RetrievedContext) string {
	var b strings.Builder
	b.WriteString(header + "\n" + delimiter + "\n")
	for i, c := range contexts {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("[" + strconv.Itoa(i+1) + "]")
		if c.SourceURL != "" {
			b.WriteString(" (source: " + c.SourceURL + ")")
		}
		b.WriteString("\n")
		b.WriteString(preview(c.ChunkText, s.previewChars))
	}
	b.WriteString("\n" + delimiter + "\n")
	b.WriteString(instruction + "\n")
	b.WriteString(queryLabel + strings.TrimSpace(question) + "\n")
	b.WriteString(answerLabel)
	return b.String()
}

// ParsePrompt recovers the context texts and question from a prompt made by BuildPrompt.
func ParsePrompt(prompt string) (contexts []string, question string, ok bool) {
	open := strings.Index(prompt, delimiter+"\n")
	if open < 0 {
		return nil, "", false
	}
	rest := prompt[open+len(delimiter)+1:]
	end := strings.Index(rest, "\n"+delimiter+"\n")
	if end < 0 {
		return nil, "", false
	}
	body, tail := rest[:end], rest[end+len(delimiter)+2:]
	q := strings.Index(tail, queryLabel)
	if q < 0 {
		return nil, "", false
	}
	question = tail[q+len(queryLabel):]
	if nl := strings.Index(question, "\n"); nl >= 0 {
		question = question[:nl]
	}
	for _, part := range contextTagRe.Split(body, -1) {
		if t := strings.TrimSpace(part); t != "" {
			contexts = append(contexts, t)
		}
	}
	return contexts, strings.TrimSpace(question), true
}

// StripScaffold removes a leading "Answer:"-style label and surrounding space.
func StripScaffold(s string) string {
	return strings.TrimSpace(scaffoldRe.ReplaceAllString(strings.TrimSpace(s), ""))
}

func preview(text string, n int) string {
	text = strings.TrimSpace(text)
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "…"
}
