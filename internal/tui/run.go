package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/efebarandurmaz/roadnet/internal/metrics"
)

// Run shows the dashboard until the user quits.
func Run(rep *metrics.Report, refresh RefreshFunc) error {
	p := tea.NewProgram(NewDashboardModel(rep, refresh), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
