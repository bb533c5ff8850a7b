package synthesizer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ragqa/internal/domain"
)

type fakeCompleter struct {
	out    string
	err    error
	calls  int
	prompt string
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	return f.out, f.err
}

func contexts(texts ...string) []domain.RetrievedContext {
	out := make([]domain.RetrievedContext, len(texts))
	for i, t := range texts {
		out[i] = domain.RetrievedContext{ChunkText: t, Rank: i + 1, SourceURL: "u" + string(rune('1'+i))}
	}
	return out
}

func TestSynthesize_StripsLabelAndCallsOnce(t *testing.T) {
	fc := &fakeCompleter{out: "  Answer:  Insulin regulation. "}
	s := New(fc, 0)
	got, err := s.Synthesize(context.Background(), "What does diabetes affect?", contexts("Diabetes affects insulin regulation."))
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got != "Insulin regulation." {
		t.Fatalf("unexpected answer %q", got)
	}
	if fc.calls != 1 {
		t.Fatalf("expected one completion call, got %d", fc.calls)
	}
	if !strings.Contains(fc.prompt, "Diabetes affects insulin regulation.") || !strings.Contains(fc.prompt, "Query: What does diabetes affect?") {
		t.Fatalf("prompt missing context or question:\n%s", fc.prompt)
	}
	if strings.Index(fc.prompt, "Diabetes affects") > strings.Index(fc.prompt, "Query:") {
		t.Fatalf("context must precede the question")
	}
}

func TestSynthesize_PropagatesProviderError(t *testing.T) {
	s := New(&fakeCompleter{err: errors.New("503")}, 0)
	_, err := s.Synthesize(context.Background(), "q", nil)
	if !errors.Is(err, domain.ErrCompletionUnavailable) {
		t.Fatalf("expected ErrCompletionUnavailable, got %v", err)
	}
}

func TestBuildPrompt_TruncatesContexts(t *testing.T) {
	s := New(&fakeCompleter{}, 10)
	p := s.BuildPrompt("q", contexts(strings.Repeat("x", 50)))
	if strings.Contains(p, strings.Repeat("x", 11)) {
		t.Fatalf("context not truncated:\n%s", p)
	}
	if !strings.Contains(p, strings.Repeat("x", 10)+"…") {
		t.Fatalf("expected truncation marker:\n%s", p)
	}
}

func TestParsePrompt_RoundTrip(t *testing.T) {
	s := New(&fakeCompleter{}, 0)
	p := s.BuildPrompt("What does diabetes affect?", contexts("First chunk.\nWith two lines.", "Second chunk."))
	ctxs, q, ok := ParsePrompt(p)
	if !ok {
		t.Fatalf("ParsePrompt failed on:\n%s", p)
	}
	if q != "What does diabetes affect?" {
		t.Fatalf("unexpected question %q", q)
	}
	if len(ctxs) != 2 || ctxs[0] != "First chunk.\nWith two lines." || ctxs[1] != "Second chunk." {
		t.Fatalf("unexpected contexts %q", ctxs)
	}
	if _, _, ok := ParsePrompt("free text"); ok {
		t.Fatalf("expected failure on foreign prompt")
	}
}

func TestStripScaffold(t *testing.T) {
	cases := map[string]string{
		"Answer: yes":    "yes",
		"RESPONSE:no":    "no",
		"Réponse : oui":  "oui",
		"plain answer":   "plain answer",
		"The Answer: 42": "The Answer: 42",
	}
	for in, want := range cases {
		if got := StripScaffold(in); got != want {
			t.Errorf("StripScaffold(%q) = %q, want %q", in, got, want)
		}
	}
}
