package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragqa/internal/domain"
	"ragqa/internal/evaluator"
	"ragqa/internal/service"
	"ragqa/internal/textproc"
)

// QueryPort is the TUI-facing subset of the query service.
type QueryPort interface {
	AnswerQuestion(ctx context.Context, question string) (service.Answer, error)
	Evaluate(ctx context.Context, question, answer string, contexts []string) domain.EvaluationResult
}

type answerMsg struct {
	seq      int
	question string
	answer   service.Answer
	err      error
}

type evalMsg struct {
	seq    int
	result domain.EvaluationResult
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctx      context.Context
	service  QueryPort
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	tally    *evaluator.Tally

	info     string
	status   string
	question string
	answer   service.Answer
	eval     *domain.EvaluationResult
	evalOn   bool
	busy     bool
	seq      int
	cursor   int
	ready    bool
}

// New creates the chat model. info is shown under the title.
func New(ctx context.Context, svc QueryPort, info string, autoEval bool) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	return Model{
		ctx:      ctx,
		service:  svc,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		tally:    &evaluator.Tally{},
		info:     info,
		evalOn:   autoEval,
		status:   "Ready. ↑/↓ cycle contexts, ctrl+e toggles evaluation.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) askCmd(seq int, q string) tea.Cmd {
	return func() tea.Msg {
		ans, err := m.service.AnswerQuestion(m.ctx, q)
		return answerMsg{seq: seq, question: q, answer: ans, err: err}
	}
}

func (m Model) evalCmd(seq int, q string, ans service.Answer) tea.Cmd {
	return func() tea.Msg {
		r := m.service.Evaluate(m.ctx, q, ans.Text, service.ContextTexts(ans.Contexts))
		return evalMsg{seq: seq, result: r}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 2 + qh + 1 // title+info, status+scores, spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderAnswer())
		return m, nil
	case answerMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.busy = false
		m.cursor = 0
		m.question = msg.question
		m.answer = msg.answer
		m.eval = nil
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.viewport.SetContent(m.renderAnswer())
			return m, nil
		}
		m.status = fmt.Sprintf("Answered %q from %d contexts", msg.question, len(msg.answer.Contexts))
		m.viewport.SetContent(m.renderAnswer())
		if m.evalOn {
			m.status += ", evaluating…"
			return m, m.evalCmd(m.seq, msg.question, msg.answer)
		}
		return m, nil
	case evalMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		r := msg.result
		m.eval = &r
		m.tally.Add(r)
		m.status = strings.TrimSuffix(m.status, ", evaluating…")
		return m, nil
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			m.seq++
			m.busy = true
			m.input.SetValue("")
			m.status = fmt.Sprintf("Thinking about %q", q)
			return m, tea.Batch(m.askCmd(m.seq, q), m.spinner.Tick)
		case "ctrl+e":
			m.evalOn = !m.evalOn
			if m.evalOn {
				m.status = "Evaluation on"
				if m.answer.Text != "" && m.eval == nil && !m.busy {
					return m, m.evalCmd(m.seq, m.question, m.answer)
				}
			} else {
				m.status = "Evaluation off"
			}
			return m, nil
		case "down":
			if n := len(m.answer.Contexts); n > 0 {
				m.cursor = (m.cursor + 1) % n
				m.viewport.SetContent(m.renderAnswer())
				return m, nil
			}
		case "up":
			if n := len(m.answer.Contexts); n > 0 {
				m.cursor = (m.cursor - 1 + n) % n
				m.viewport.SetContent(m.renderAnswer())
				return m, nil
			}
		case "pgdown", "pgup":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("RAG Question Answering")
	info := dimStyle.Render(m.info)
	results := resultBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	status = statusStyle.Render(status)
	return header + "\n" + info + "\n" + results + "\n" + input + "\n" + status + "\n" + m.renderScores()
}

func (m Model) renderAnswer() string {
	if m.question == "" {
		return "No question yet."
	}
	var b strings.Builder
	b.WriteString(labelStyle.Render("Q: ") + m.question + "\n\n")
	if m.answer.Text != "" {
		b.WriteString(labelStyle.Render("A: ") + m.answer.Text + "\n\n")
	}
	if len(m.answer.Contexts) == 0 {
		b.WriteString(dimStyle.Render("No contexts."))
		return b.String()
	}
	c := m.answer.Contexts[m.cursor]
	title := fmt.Sprintf("Context %d/%d  similarity=%.3f", m.cursor+1, len(m.answer.Contexts), c.Similarity)
	if c.SourceURL != "" {
		title += "  " + c.SourceURL
	}
	b.WriteString(dimStyle.Render(title) + "\n")
	b.WriteString(highlightBestSentence(c.ChunkText, m.question+" "+m.answer.Text))
	return b.String()
}

func (m Model) renderScores() string {
	if !m.evalOn && m.tally.Count() == 0 {
		return dimStyle.Render("evaluation off")
	}
	line := ""
	if m.eval != nil {
		line = "last " + formatScores(*m.eval) + "   "
	}
	if n := m.tally.Count(); n > 0 {
		line += fmt.Sprintf("avg(%d) %s", n, formatScores(m.tally.Average()))
	}
	if line == "" {
		line = "no evaluations yet"
	}
	return dimStyle.Render(line)
}

func formatScores(r domain.EvaluationResult) string {
	return fmt.Sprintf("rel=%.2f prec=%.2f rec=%.2f global=%.2f",
		r.AnswerRelevancy, r.ContextPrecision, r.ContextRecall, r.GlobalScore)
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// highlightBestSentence marks the sentence sharing the most words with query.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := textproc.Sentences(text)
	qTokens := textproc.WordSet(query)
	bestIdx, bestScore := -1, 0
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			bestScore, bestIdx = score, i
		}
	}
	if bestIdx >= 0 {
		sentences[bestIdx] = highlightStyle.Render(sentences[bestIdx])
	}
	return strings.Join(sentences, " ")
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	for t := range textproc.WordSet(sentence) {
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
