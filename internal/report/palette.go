package report

import "github.com/efebarandurmaz/roadnet/internal/metrics"

const defaultDegreeColor = "#95A5A6"

var degreeColors = map[int]string{
	1: "#E74C3C",
	2: "#3498DB",
	3: "#2ECC71",
	4: "#9B59B6",
	5: "#F39C12",
	6: "#E67E22",
}

// DegreeColor is the bar color for a degree value.
func DegreeColor(degree int) string {
	if c, ok := degreeColors[degree]; ok {
		return c
	}
	return defaultDegreeColor
}

// CategoryColor reuses the color of the smallest degree in the category.
func CategoryColor(c metrics.Category) string {
	switch c {
	case metrics.Isolated:
		return defaultDegreeColor
	case metrics.MajorHub:
		return DegreeColor(5)
	default:
		return DegreeColor(int(c))
	}
}
