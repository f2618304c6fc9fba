package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/leapstack-labs/leapcheck/pkg/core"
)

func defaultColumns() []table.Column {
	return columnsForWidth(100)
}

// columnsForWidth gives the value column whatever the fixed columns leave.
func columnsForWidth(width int) []table.Column {
	cols := []table.Column{
		{Title: "Row", Width: 6},
		{Title: "Column", Width: 16},
		{Title: "Issue", Width: 34},
	}
	used := 0
	for _, c := range cols {
		used += c.Width + 2
	}
	return append(cols, table.Column{Title: "Value", Width: max(width-used, 10)})
}

func rowsFor(issues []core.Issue) []table.Row {
	rows := make([]table.Row, len(issues))
	for i, is := range issues {
		row := ""
		if r, ok := is.Row.Get(); ok {
			row = strconv.Itoa(r)
		}
		rows[i] = table.Row{row, is.Column.OrElse(""), is.Label(), is.Value.Text()}
	}
	return rows
}

func tableStyles(noColor bool) table.Styles {
	styles := table.DefaultStyles()
	if noColor {
		return styles
	}
	styles.Header = styles.Header.Foreground(lipgloss.Color("252")).Bold(true)
	styles.Selected = styles.Selected.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	return styles
}

func style(noColor bool, color string) lipgloss.Style {
	s := lipgloss.NewStyle()
	if noColor {
		return s
	}
	return s.Foreground(lipgloss.Color(color))
}

func renderHeader(source string, s core.Summary, noColor bool) string {
	title := style(noColor, "12").Bold(!noColor).Render(source)
	return fmt.Sprintf("%s  %d rows, %d columns, %d issues", title, s.Rows, s.Columns, s.TotalIssues)
}

func renderFilter(kinds []core.Kind, current int, noColor bool) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		name := string(k)
		if k == "" {
			name = "all"
		}
		if i == current {
			parts[i] = style(noColor, "10").Render("[" + name + "]")
		} else {
			parts[i] = style(noColor, "8").Render(name)
		}
	}
	return strings.Join(parts, " ")
}

func renderFooter(shown, total int, noColor bool) string {
	return style(noColor, "8").Render(
		fmt.Sprintf("%d of %d issues  tab/shift+tab filter  ↑/↓ scroll  q quit", shown, total))
}
