package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/recallq/recallq/internal/recall"
	"github.com/recallq/recallq/pkg/orchestrator"
)

// Messages posted into the program by the orchestrator callbacks.
type searchStartedMsg struct{ query string }

type searchResultsMsg struct {
	query     string
	results   recall.Results
	fromCache bool
}

type searchErrorMsg struct {
	query string
	err   error
}

type searchDoneMsg struct{ query string }

// Model is the bubbletea model for the interactive search screen. Typing
// feeds the orchestrator; results arrive asynchronously as messages.
type Model struct {
	input   textinput.Model
	spinner spinner.Model
	styles  Styles

	orch *orchestrator.Orchestrator[recall.Results]

	width     int
	height    int
	searching bool
	quitting  bool
	query     string
	results   recall.Results
	fromCache bool
	err       error
}

// NewModel creates the search model. The orchestrator is attached later via
// SetOrchestrator because its callbacks need the running program.
func NewModel(noColor bool) *Model {
	styles := GetStyles(noColor)

	ti := textinput.New()
	ti.Placeholder = "type to search..."
	ti.Prompt = styles.Header.Render("? ")
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime))

	return &Model{
		input:   ti,
		spinner: sp,
		styles:  styles,
		width:   80,
		height:  24,
	}
}

// SetOrchestrator attaches the query orchestrator. Must be called before the
// program runs.
func (m *Model) SetOrchestrator(orch *orchestrator.Orchestrator[recall.Results]) {
	m.orch = orch
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			if m.orch != nil {
				m.orch.Close()
			}
			return m, tea.Quit
		case "enter":
			if m.orch != nil {
				m.orch.RunImmediate(m.input.Value())
			}
			return m, nil
		}

		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if m.orch != nil {
			m.orch.SetText(m.input.Value())
		}
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 6

	case searchStartedMsg:
		m.searching = true
		m.err = nil
		return m, m.spinner.Tick

	case searchResultsMsg:
		m.query = msg.query
		m.results = msg.results
		m.fromCache = msg.fromCache
		m.err = nil
		return m, nil

	case searchErrorMsg:
		m.query = msg.query
		m.err = msg.err
		return m, nil

	case searchDoneMsg:
		m.searching = false
		return m, nil

	case spinner.TickMsg:
		if !m.searching {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	contentWidth := m.width - 4
	if contentWidth < 40 {
		contentWidth = 40
	}

	var sections []string
	sections = append(sections, m.input.View())
	sections = append(sections, m.renderStatus())

	if len(m.results) > 0 {
		sections = append(sections, m.renderDivider(contentWidth))
		sections = append(sections, m.renderResults(contentWidth))
	}

	content := strings.Join(sections, "\n")

	title := m.styles.Header.Render("RecallQ")
	panel := m.styles.Panel.Width(contentWidth).Render(content)
	hint := m.styles.Dim.Render("enter to search now  │  esc to quit")

	return lipgloss.JoinVertical(lipgloss.Left, title, panel, hint)
}

// renderStatus renders the line between the input and the results.
func (m *Model) renderStatus() string {
	switch {
	case m.searching:
		return m.spinner.View() + m.styles.Status.Render(" searching...")
	case m.err != nil:
		return m.styles.Error.Render("✗ " + m.err.Error())
	case m.query != "":
		status := fmt.Sprintf("%d results for %q", len(m.results), m.query)
		line := m.styles.Status.Render(status)
		if m.fromCache {
			line += m.styles.Cached.Render("  (cached)")
		}
		return line
	default:
		return m.styles.Dim.Render("results appear as you type")
	}
}

// renderResults renders the result list, best match first.
func (m *Model) renderResults(width int) string {
	var lines []string
	for i, r := range m.results {
		head := fmt.Sprintf("%s %s %s",
			m.styles.badge(r.Type),
			m.styles.Title.Render(r.Title),
			m.styles.Score.Render(fmt.Sprintf("%.2f", r.Score)))
		lines = append(lines, head)

		if snippet := truncate(collapseLines(r.Content), width-4); snippet != "" {
			lines = append(lines, "  "+m.styles.Snippet.Render(snippet))
		}
		if len(r.Tags) > 0 {
			lines = append(lines, "  "+m.styles.Tags.Render("#"+strings.Join(r.Tags, " #")))
		}
		if i < len(m.results)-1 {
			lines = append(lines, "")
		}
	}
	return strings.Join(lines, "\n")
}

// renderDivider renders a horizontal divider line.
func (m *Model) renderDivider(width int) string {
	return m.styles.Border.Render(strings.Repeat("─", width))
}

// collapseLines flattens multi-line content into one snippet line.
func collapseLines(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate shortens s to at most max runes, appending an ellipsis.
func truncate(s string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

var _ tea.Model = (*Model)(nil)
