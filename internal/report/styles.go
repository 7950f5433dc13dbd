package report

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the colors of a report.
type Theme struct {
	Name    string
	Title   lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}

var (
	ThemeDefault = Theme{
		Name:    "default",
		Title:   lipgloss.Color("#00ffff"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#666688"),
		Success: lipgloss.Color("#00ff88"),
		Warning: lipgloss.Color("#ffaa00"),
		Error:   lipgloss.Color("#ff4444"),
	}

	ThemeMinimal = Theme{
		Name:    "minimal",
		Title:   lipgloss.Color("#ffffff"),
		Text:    lipgloss.Color("#cccccc"),
		Muted:   lipgloss.Color("#888888"),
		Success: lipgloss.Color("#00ff00"),
		Warning: lipgloss.Color("#ffff00"),
		Error:   lipgloss.Color("#ff0000"),
	}
)

var Themes = []Theme{ThemeDefault, ThemeMinimal}

// styles are bound to the renderer of one output, so color is only emitted
// when that output is a terminal.
type styles struct {
	header  lipgloss.Style
	check   lipgloss.Style
	passed  lipgloss.Style
	warning lipgloss.Style
	failed  lipgloss.Style
	detail  lipgloss.Style
	subtle  lipgloss.Style
}

func newStyles(w io.Writer, t Theme) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		header: r.NewStyle().
			Bold(true).
			Foreground(t.Title).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(t.Muted),
		check:   r.NewStyle().Bold(true).Foreground(t.Text),
		passed:  r.NewStyle().Bold(true).Foreground(t.Success),
		warning: r.NewStyle().Bold(true).Foreground(t.Warning),
		failed:  r.NewStyle().Bold(true).Foreground(t.Error),
		detail:  r.NewStyle().Foreground(t.Text).PaddingLeft(4),
		subtle:  r.NewStyle().Foreground(t.Muted),
	}
}

func (s styles) separator(width int) string {
	return s.subtle.Render(strings.Repeat("─", width))
}
