// Package tui is an interactive issue browser built on Bubble Tea.
package tui

import (
	"io"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/leapstack-labs/leapcheck/pkg/core"
)

// Model browses the issues of one run, filtered by kind.
type Model struct {
	source  string
	summary core.Summary
	issues  []core.Issue
	kinds   []core.Kind // filter cycle; index 0 is all kinds
	filter  int
	table   table.Model
	noColor bool
}

// Options configures the browser.
type Options struct {
	NoColor bool
	Height  int
}

// NewModel builds a browser over issues.
func NewModel(source string, summary core.Summary, issues []core.Issue, opts Options) Model {
	height := opts.Height
	if height <= 0 {
		height = 20
	}
	t := table.New(
		table.WithColumns(defaultColumns()),
		table.WithFocused(true),
		table.WithHeight(height),
	)
	t.SetStyles(tableStyles(opts.NoColor))

	kinds := []core.Kind{""}
	for _, kc := range summary.Ranked() {
		kinds = append(kinds, kc.Kind)
	}

	m := Model{
		source:  source,
		summary: summary,
		issues:  issues,
		kinds:   kinds,
		table:   t,
		noColor: opts.NoColor,
	}
	m.table.SetRows(rowsFor(m.visible()))
	return m
}

// Filter returns the kind being shown, or "" for all kinds.
func (m Model) Filter() core.Kind {
	return m.kinds[m.filter]
}

// visible returns the issues passing the current filter.
func (m Model) visible() []core.Issue {
	if k := m.Filter(); k != "" {
		return core.FilterIssues(m.issues, k)
	}
	return m.issues
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles keys and resizes.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(typed.Width)
		m.table.SetHeight(max(typed.Height-6, 1))
		m.table.SetColumns(columnsForWidth(typed.Width))
		return m, nil
	case tea.KeyMsg:
		switch typed.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m = m.cycle(1)
			return m, nil
		case "shift+tab":
			m = m.cycle(-1)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) cycle(step int) Model {
	n := len(m.kinds)
	m.filter = ((m.filter+step)%n + n) % n
	m.table.SetRows(rowsFor(m.visible()))
	m.table.GotoTop()
	return m
}

// View renders the browser.
func (m Model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		renderHeader(m.source, m.summary, m.noColor),
		renderFilter(m.kinds, m.filter, m.noColor),
		m.table.View(),
		renderFooter(len(m.visible()), len(m.issues), m.noColor),
	)
}

// Run starts the browser on the given terminal streams.
func Run(in io.Reader, out io.Writer, m Model) error {
	_, err := tea.NewProgram(m, tea.WithInput(in), tea.WithOutput(out), tea.WithAltScreen()).Run()
	return err
}
