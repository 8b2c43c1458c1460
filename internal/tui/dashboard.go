// Package tui is the interactive terminal dashboard.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/efebarandurmaz/roadnet/internal/metrics"
	"github.com/efebarandurmaz/roadnet/internal/report"
)

type Tab int

const (
	TabDegrees Tab = iota
	TabTop
	TabCategories
	TabInsights
)

var tabNames = []string{"Degrees", "Top", "Categories", "Insights"}

func (t Tab) String() string { return tabNames[t] }

// RefreshFunc recomputes the report, typically from the graph store.
type RefreshFunc func(ctx context.Context) (*metrics.Report, error)

type refreshedMsg struct {
	report *metrics.Report
	err    error
}

type keyMap struct {
	Left    key.Binding
	Right   key.Binding
	Up      key.Binding
	Down    key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

func (km keyMap) ShortHelp() []key.Binding {
	return []key.Binding{km.Left, km.Right, km.Up, km.Down, km.Refresh, km.Quit}
}

func (km keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{km.Left, km.Right},
		{km.Up, km.Down},
		{km.Refresh, km.Quit},
	}
}

func newKeyMap() keyMap {
	return keyMap{
		Left: key.NewBinding(
			key.WithKeys("h", "left", "shift+tab"),
			key.WithHelp("h/←", "prev tab"),
		),
		Right: key.NewBinding(
			key.WithKeys("l", "right", "tab"),
			key.WithHelp("l/→", "next tab"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "scroll down"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// DashboardModel shows one report across four tabs.
type DashboardModel struct {
	report   *metrics.Report
	refresh  RefreshFunc
	err      error
	styles   *Styles
	tab      Tab
	viewport viewport.Model
	width    int
	height   int
	quitting bool
	help     help.Model
	keys     keyMap
}

// NewDashboardModel creates the model. refresh may be nil, which disables
// the refresh key.
func NewDashboardModel(rep *metrics.Report, refresh RefreshFunc) DashboardModel {
	m := DashboardModel{
		report:   rep,
		refresh:  refresh,
		styles:   DefaultStyles(),
		viewport: viewport.New(80, 16),
		width:    80,
		height:   24,
		help:     help.New(),
		keys:     newKeyMap(),
	}
	m.keys.Refresh.SetEnabled(refresh != nil)
	m.viewport.SetContent(m.tabContent())
	return m
}

func (m DashboardModel) Init() tea.Cmd {
	return nil
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = max(msg.Height-10, 3)
		m.viewport.SetContent(m.tabContent())
		return m, nil

	case refreshedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.report = msg.report
		}
		m.viewport.SetContent(m.tabContent())
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Right):
			m.tab = (m.tab + 1) % Tab(len(tabNames))
			m.viewport.SetContent(m.tabContent())
			m.viewport.GotoTop()
			return m, nil

		case key.Matches(msg, m.keys.Left):
			m.tab = (m.tab + Tab(len(tabNames)) - 1) % Tab(len(tabNames))
			m.viewport.SetContent(m.tabContent())
			m.viewport.GotoTop()
			return m, nil

		case key.Matches(msg, m.keys.Refresh):
			refresh := m.refresh
			return m, func() tea.Msg {
				rep, err := refresh(context.Background())
				return refreshedMsg{report: rep, err: err}
			}
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m DashboardModel) View() string {
	if m.quitting {
		return ""
	}
	if m.report == nil {
		return m.styles.Error.Render("No report loaded")
	}

	sections := []string{
		m.styles.Title.Render("Road Network Dashboard"),
		m.renderSummary(),
		m.renderTabs(),
		m.styles.Border.Render(m.viewport.View()),
	}
	if m.err != nil {
		sections = append(sections, m.styles.Error.Render("refresh failed: "+m.err.Error()))
	}
	sections = append(sections, m.styles.Help.Render(m.help.ShortHelpView(m.keys.ShortHelp())))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m DashboardModel) renderSummary() string {
	s := m.report.Summary
	item := func(label, value string) string {
		return m.styles.Label.Render(label+" ") + m.styles.Value.Render(value)
	}
	return strings.Join([]string{
		item("Intersections", strconv.Itoa(s.TotalNodes)),
		item("Roads", strconv.Itoa(s.TotalEdges)),
		item("Avg degree", fmt.Sprintf("%.2f", s.AverageDegree)),
		item("Max degree", strconv.Itoa(s.MaxDegree)),
	}, "   ")
}

func (m DashboardModel) renderTabs() string {
	tabs := make([]string, len(tabNames))
	for i, name := range tabNames {
		if Tab(i) == m.tab {
			tabs[i] = m.styles.ActiveTab.Render(name)
		} else {
			tabs[i] = m.styles.Tab.Render(name)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)
}

func (m DashboardModel) tabContent() string {
	if m.report == nil {
		return ""
	}
	switch m.tab {
	case TabDegrees:
		return degreesView(m.report, m.viewport.Width)
	case TabTop:
		return topView(m.report)
	case TabCategories:
		return categoriesView(m.report)
	default:
		return "• " + strings.Join(report.Insights(m.report), "\n• ")
	}
}

func degreesView(rep *metrics.Report, width int) string {
	if len(rep.Histogram) == 0 {
		return "No intersections."
	}
	largest := 0
	for _, h := range rep.Histogram {
		largest = max(largest, h.Count)
	}
	span := max(width-24, 10)

	var b strings.Builder
	for _, h := range rep.Histogram {
		n := h.Count * span / largest
		if n == 0 {
			n = 1
		}
		fmt.Fprintf(&b, "%3d roads │ %s %d\n", h.Degree, Swatch(report.DegreeColor(h.Degree), strings.Repeat("█", n)), h.Count)
	}
	return b.String()
}

func topView(rep *metrics.Report) string {
	if len(rep.TopNodes) == 0 {
		return "No intersections."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%4s  %-14s %s\n", "#", "Intersection", "Roads")
	for i, n := range rep.TopNodes {
		fmt.Fprintf(&b, "%4d  %-14d %d\n", i+1, n.ID, n.Degree)
	}
	return b.String()
}

func categoriesView(rep *metrics.Report) string {
	if len(rep.Categories) == 0 {
		return "No intersections."
	}
	total := rep.Summary.TotalNodes
	var b strings.Builder
	for _, c := range rep.Categories {
		fmt.Fprintf(&b, "%s %-22s %8d  %5.1f%%\n",
			Swatch(report.CategoryColor(c.Category), "■"),
			c.Category.Description(), c.Count, float64(c.Count)/float64(total)*100)
	}
	return b.String()
}
