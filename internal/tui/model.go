package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/FAL1989/consultorio-jung/internal/domain"
	"github.com/FAL1989/consultorio-jung/internal/knowledge"
)

// searchPrefix switches a line from chat to knowledge-base search.
const searchPrefix = "/buscar "

// ChatPort is the TUI-facing subset of the analyst.
type ChatPort interface {
	GenerateResponseStream(ctx context.Context, input string) <-chan domain.StreamEvent
}

// QueryPort is the TUI-facing subset of the knowledge store.
type QueryPort interface {
	Query(ctx context.Context, text string, maxResults int) ([]knowledge.QueryResult, error)
}

type entry struct {
	user bool
	text string
}

// streamMsg carries one event of the reply in flight; ok is false once the
// channel is closed.
type streamMsg struct {
	ev domain.StreamEvent
	ok bool
}

type queryMsg struct {
	query   string
	results []knowledge.QueryResult
	err     error
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	ctx       context.Context
	chat      ChatPort
	query     QueryPort
	input     textinput.Model
	viewport  viewport.Model
	history   []entry
	stream    <-chan domain.StreamEvent
	concepts  []domain.ConceptRef
	results   []knowledge.QueryResult
	searching bool
	subtitle  string
	status    string
	cursor    int
	ready     bool
	lastQuery string
}

// New creates a new TUI model instance. subtitle is shown under the header.
func New(ctx context.Context, chat ChatPort, query QueryPort, subtitle string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Escreva e pressione Enter (/buscar <termo> pesquisa a base)"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{ctx: ctx, chat: chat, query: query, input: ti, viewport: vp, subtitle: subtitle, status: "Pronto."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

func waitForEvent(ch <-chan domain.StreamEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		return streamMsg{ev: ev, ok: ok}
	}
}

func (m Model) runQuery(q string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.query.Query(m.ctx, q, 10)
		return queryMsg{query: q, results: res, err: err}
	}
}

// Update handles key, window and stream events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2                                    // header + subtitle
		totalFooterLines := 1                                    // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1 // 1 spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.refresh()
		return m, nil
	case streamMsg:
		return m.onStream(msg)
	case queryMsg:
		if msg.err != nil {
			m.status = "Erro: " + msg.err.Error()
			m.results = nil
		} else {
			m.status = fmt.Sprintf("Resultados para %q (↑/↓ navega, Esc volta)", msg.query)
			m.results = msg.results
			m.cursor = 0
			m.lastQuery = msg.query
		}
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if line == "" || m.stream != nil {
				return m, nil
			}
			m.input.SetValue("")
			if strings.HasPrefix(line+" ", searchPrefix) {
				q := strings.TrimSpace(strings.TrimPrefix(line+" ", searchPrefix))
				if q == "" || m.query == nil {
					return m, nil
				}
				m.searching = true
				m.status = "Buscando..."
				m.refresh()
				return m, m.runQuery(q)
			}
			m.searching = false
			m.history = append(m.history, entry{user: true, text: line}, entry{})
			m.concepts = nil
			m.status = "Jung está respondendo..."
			m.stream = m.chat.GenerateResponseStream(m.ctx, line)
			m.refresh()
			return m, waitForEvent(m.stream)
		case "esc":
			if m.searching {
				m.searching = false
				m.status = "Pronto."
				m.refresh()
				return m, nil
			}
		case "down":
			if m.searching && len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.refresh()
				return m, nil
			}
		case "up":
			if m.searching && len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.refresh()
				return m, nil
			}
		}
	}
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	if !m.searching {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) onStream(msg streamMsg) (tea.Model, tea.Cmd) {
	if !msg.ok {
		m.stream = nil
		m.refresh()
		return m, nil
	}
	last := len(m.history) - 1
	switch msg.ev.Kind {
	case domain.EventTextDelta:
		m.history[last].text += msg.ev.Text
	case domain.EventMetadata:
		m.concepts = msg.ev.Metadata.Concepts
		m.status = "Pronto."
	case domain.EventError:
		m.status = "Erro: " + msg.ev.Err
		if m.history[last].text == "" {
			m.history = m.history[:last]
		}
	}
	m.refresh()
	return m, waitForEvent(m.stream)
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Carregando..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Consultório Jung")
	subtitle := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.subtitle)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	body := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + subtitle + "\n" + body + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	if m.searching {
		m.viewport.SetContent(m.renderCurrentResult())
		return
	}
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

func (m Model) renderConversation() string {
	if len(m.history) == 0 {
		return "Olá. Sobre o que gostaria de conversar hoje?"
	}
	width := max(10, m.viewport.Width-4)
	var b strings.Builder
	for _, e := range m.history {
		label, style := "Jung", analystStyle
		if e.user {
			label, style = "Você", userStyle
		}
		b.WriteString(style.Render(label+":") + " ")
		b.WriteString(lipgloss.NewStyle().Width(width).Render(e.text))
		b.WriteString("\n\n")
	}
	if len(m.concepts) > 0 {
		names := make([]string, 0, len(m.concepts))
		for _, c := range m.concepts {
			names = append(names, c.Name)
		}
		b.WriteString(conceptStyle.Render("Conceitos: " + strings.Join(names, ", ")))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderCurrentResult() string {
	if len(m.results) == 0 {
		return "Nenhum resultado."
	}
	r := m.results[m.cursor]
	title := fmt.Sprintf("Resultado %d/%d  %s", m.cursor+1, len(m.results), r.Title)
	if r.Category != "" {
		title += "  [" + r.Category + "]"
	}
	body := highlightBestSentence(r.Content, m.lastQuery)
	if len(r.References) > 0 {
		body += "\n\nReferências: " + strings.Join(r.References, "; ")
	}
	return title + "\n\n" + body
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	analystStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	conceptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// highlightBestSentence emphasizes the sentence sharing the most words with query.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := tokenOverlapScore(qTokens, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
