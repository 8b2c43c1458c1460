package tui

import "github.com/charmbracelet/lipgloss"

// Color constants matching the dark dashboard theme
const (
	ColorBg     = "#0d1117"
	ColorBorder = "#30363d"
	ColorBlue   = "#58a6ff"
	ColorRed    = "#f85149"
	ColorGray   = "#8b949e"
	ColorText   = "#c9d1d9"
	ColorBright = "#f0f6fc"
)

// Styles holds all lipgloss styles for the TUI
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Help     lipgloss.Style
	Error    lipgloss.Style

	Label lipgloss.Style
	Value lipgloss.Style

	Border lipgloss.Style

	Tab       lipgloss.Style
	ActiveTab lipgloss.Style
}

// DefaultStyles creates the default style set
func DefaultStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorBright)),

		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorText)),

		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)).
			Italic(true),

		Error: lipgloss.NewStyle().
			Background(lipgloss.Color(ColorRed)).
			Foreground(lipgloss.Color(ColorBg)).
			Padding(0, 1).
			Bold(true),

		Label: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)),

		Value: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorBright)).
			Bold(true),

		Border: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorBorder)).
			Padding(0, 1),

		Tab: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)).
			Padding(0, 2),

		ActiveTab: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorBlue)).
			Bold(true).
			Padding(0, 2).
			BorderStyle(lipgloss.Border{Bottom: "─"}).
			BorderBottom(true).
			BorderForeground(lipgloss.Color(ColorBlue)),
	}
}

// Swatch renders a colored block for a chart legend or bar.
func Swatch(color, text string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(text)
}
