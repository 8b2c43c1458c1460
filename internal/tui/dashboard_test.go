package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/roadnet/internal/metrics"
	"github.com/efebarandurmaz/roadnet/internal/network"
)

func sampleReport(t *testing.T, extra ...network.Edge) *metrics.Report {
	t.Helper()
	g := &network.Graph{
		Nodes: []network.Node{{ID: 1}, {ID: 2, X: 3}, {ID: 3, X: 3, Y: 4}},
		Edges: append([]network.Edge{{Source: 1, Target: 2, Distance: 3}, {Source: 2, Target: 3, Distance: 4}}, extra...),
	}
	rep, err := metrics.NewEngine().FromSnapshot(metrics.SnapshotOf(g))
	require.NoError(t, err)
	return rep
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m DashboardModel, msg tea.Msg) (DashboardModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(DashboardModel), cmd
}

func TestDashboardModel_TabNavigation(t *testing.T) {
	m := NewDashboardModel(sampleReport(t), nil)
	assert.Equal(t, TabDegrees, m.tab)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, TabTop, m.tab)
	m, _ = update(t, m, runes("l"))
	assert.Equal(t, TabCategories, m.tab)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, TabInsights, m.tab)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, TabDegrees, m.tab, "wraps around")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, TabInsights, m.tab)
}

func TestDashboardModel_TabContent(t *testing.T) {
	m := NewDashboardModel(sampleReport(t), nil)

	assert.Contains(t, m.tabContent(), "1 roads")
	m.tab = TabTop
	assert.Contains(t, m.tabContent(), "Intersection")
	assert.True(t, strings.Contains(m.tabContent(), "   1  2 "), "node 2 ranks first:\n%s", m.tabContent())
	m.tab = TabCategories
	assert.Contains(t, m.tabContent(), "Dead End (1 road)")
	m.tab = TabInsights
	assert.Contains(t, m.tabContent(), "66.7% of intersections are Dead End.")
}

func TestDashboardModel_View(t *testing.T) {
	m := NewDashboardModel(sampleReport(t), nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})

	view := m.View()
	assert.Contains(t, view, "Road Network Dashboard")
	assert.Contains(t, view, "Intersections")
	assert.Contains(t, view, "Degrees")
	assert.Contains(t, view, "quit")
	assert.Equal(t, 96, m.viewport.Width)
	assert.Equal(t, 20, m.viewport.Height)
}

func TestDashboardModel_NoReport(t *testing.T) {
	m := NewDashboardModel(nil, nil)
	assert.Contains(t, m.View(), "No report loaded")
}

func TestDashboardModel_Quit(t *testing.T) {
	m := NewDashboardModel(sampleReport(t), nil)
	m, cmd := update(t, m, runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Empty(t, m.View())
}

func TestDashboardModel_Refresh(t *testing.T) {
	next := sampleReport(t, network.Edge{Source: 1, Target: 3, Distance: 5})
	m := NewDashboardModel(sampleReport(t), func(context.Context) (*metrics.Report, error) {
		return next, nil
	})

	m, cmd := update(t, m, runes("r"))
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	assert.Same(t, next, m.report)
	assert.NoError(t, m.err)
}

func TestDashboardModel_RefreshError(t *testing.T) {
	orig := sampleReport(t)
	m := NewDashboardModel(orig, func(context.Context) (*metrics.Report, error) {
		return nil, errors.New("graph store unavailable")
	})

	m, cmd := update(t, m, runes("r"))
	m, _ = update(t, m, cmd())
	assert.Same(t, orig, m.report, "keeps the last good report")
	assert.Contains(t, m.View(), "refresh failed")
}

func TestDashboardModel_RefreshDisabled(t *testing.T) {
	m := NewDashboardModel(sampleReport(t), nil)
	_, cmd := update(t, m, runes("r"))
	assert.Nil(t, cmd)
}
