package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/efebarandurmaz/roadnet/internal/metrics"
)

const barWidth = 40

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f0f6fc"))
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#58a6ff")).MarginTop(1)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8b949e")).Width(18)
	valueStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#c9d1d9"))
	boxStyle     = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#30363d")).
			Padding(0, 2)
)

// WriteText renders the report for a terminal.
func WriteText(w io.Writer, rep *metrics.Report) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Road Network Dashboard"))
	b.WriteString("\n")
	b.WriteString(boxStyle.Render(summaryBlock(rep.Summary)))
	b.WriteString("\n")

	if rep.Summary.Empty {
		b.WriteString(headingStyle.Render("The graph has no intersections."))
		b.WriteString("\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString(headingStyle.Render("Degree Distribution"))
	b.WriteString("\n")
	b.WriteString(histogramBlock(rep.Histogram))

	b.WriteString(headingStyle.Render(fmt.Sprintf("Top %d Most Connected Intersections", rep.TopK)))
	b.WriteString("\n")
	b.WriteString(topTable(rep.TopNodes).String())
	b.WriteString("\n")

	b.WriteString(headingStyle.Render("Intersection Types"))
	b.WriteString("\n")
	b.WriteString(categoryBlock(rep.Categories, rep.Summary.TotalNodes))

	b.WriteString(headingStyle.Render("Key Insights"))
	b.WriteString("\n")
	for _, line := range Insights(rep) {
		b.WriteString("  • " + line + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func summaryBlock(s metrics.Summary) string {
	rows := [][2]string{
		{"Intersections", strconv.Itoa(s.TotalNodes)},
		{"Roads", strconv.Itoa(s.TotalEdges)},
		{"Average degree", fmt.Sprintf("%.2f", s.AverageDegree)},
		{"Max degree", strconv.Itoa(s.MaxDegree)},
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(r[0]), valueStyle.Render(r[1])))
	}
	return strings.Join(lines, "\n")
}

func bar(count, largest int) string {
	if largest == 0 {
		return ""
	}
	n := count * barWidth / largest
	if n == 0 && count > 0 {
		n = 1
	}
	return strings.Repeat("█", n)
}

func histogramBlock(hist []metrics.DegreeBucket) string {
	largest := 0
	for _, h := range hist {
		largest = max(largest, h.Count)
	}
	var b strings.Builder
	for _, h := range hist {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(DegreeColor(h.Degree)))
		fmt.Fprintf(&b, "  %3d │ %s %d\n", h.Degree, style.Render(bar(h.Count, largest)), h.Count)
	}
	return b.String()
}

func topTable(top []metrics.RankedNode) *table.Table {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#30363d"))).
		Headers("#", "Intersection", "Roads")
	for i, n := range top {
		t.Row(strconv.Itoa(i+1), strconv.FormatInt(int64(n.ID), 10), strconv.Itoa(n.Degree))
	}
	return t
}

func categoryBlock(cats []metrics.CategoryCount, total int) string {
	var b strings.Builder
	for _, c := range cats {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(CategoryColor(c.Category)))
		fmt.Fprintf(&b, "  %s %-22s %8d  %5.1f%%\n",
			style.Render("■"), c.Category.Description(), c.Count, percent(c.Count, total))
	}
	return b.String()
}

func percent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}

// Insights are the sentences of the key insights panel.
func Insights(rep *metrics.Report) []string {
	s := rep.Summary
	if s.Empty {
		return []string{"The graph has no intersections."}
	}
	out := []string{
		fmt.Sprintf("%d intersections connected by %d roads.", s.TotalNodes, s.TotalEdges),
		fmt.Sprintf("On average each intersection meets %.2f roads.", s.AverageDegree),
		fmt.Sprintf("The busiest intersection meets %d roads.", s.MaxDegree),
	}
	if s.DominantCategory != "" {
		out = append(out, fmt.Sprintf("%.1f%% of intersections are %s.", s.DominantCategoryPercent, s.DominantCategory))
	}
	if len(rep.TopNodes) > 0 {
		out = append(out, fmt.Sprintf("Intersection %d is the most connected.", rep.TopNodes[0].ID))
	}
	return out
}
