package output

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used by the text renderer.
type Styles struct {
	Header    lipgloss.Style
	Subheader lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Muted     lipgloss.Style
	Key       lipgloss.Style
	ID        lipgloss.Style
}

// NewStyles builds the styles against a lipgloss renderer so that the
// colour profile follows the output writer.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Header:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Subheader: r.NewStyle().Bold(true),
		Success:   r.NewStyle().Foreground(lipgloss.Color("10")),
		Warning:   r.NewStyle().Foreground(lipgloss.Color("11")),
		Error:     r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Muted:     r.NewStyle().Foreground(lipgloss.Color("8")),
		Key:       r.NewStyle().Foreground(lipgloss.Color("14")),
		ID:        r.NewStyle().Foreground(lipgloss.Color("13")),
	}
}
