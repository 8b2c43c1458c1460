package metrics

import (
	"fmt"
	"sort"

	"github.com/efebarandurmaz/roadnet/internal/network"
)

// Category is the structural label of an intersection, derived from its
// degree. The numeric order is the tie-break order for display.
type Category int

const (
	Isolated Category = iota
	DeadEnd
	PassThrough
	TJunction
	Crossroad
	MajorHub
)

// Categories lists every category in tie-break order.
var Categories = []Category{Isolated, DeadEnd, PassThrough, TJunction, Crossroad, MajorHub}

var categoryLabels = map[Category]string{
	Isolated:    "Isolated",
	DeadEnd:     "Dead End",
	PassThrough: "Pass Through",
	TJunction:   "T-Junction",
	Crossroad:   "Crossroad",
	MajorHub:    "Major Hub",
}

var categoryRoads = map[Category]string{
	Isolated:    "0 roads",
	DeadEnd:     "1 road",
	PassThrough: "2 roads",
	TJunction:   "3 roads",
	Crossroad:   "4 roads",
	MajorHub:    "5+ roads",
}

// Classify maps a degree to its category. Degree 0 is Isolated; anything
// from 5 up is a Major Hub.
func Classify(degree int) Category {
	switch {
	case degree <= 0:
		return Isolated
	case degree == 1:
		return DeadEnd
	case degree == 2:
		return PassThrough
	case degree == 3:
		return TJunction
	case degree == 4:
		return Crossroad
	default:
		return MajorHub
	}
}

func (c Category) String() string {
	if s, ok := categoryLabels[c]; ok {
		return s
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// Description is the label with its road count, e.g. "Dead End (1 road)".
func (c Category) Description() string {
	return fmt.Sprintf("%s (%s)", c, categoryRoads[c])
}

func (c Category) MarshalText() ([]byte, error) {
	if _, ok := categoryLabels[c]; !ok {
		return nil, fmt.Errorf("unknown category %d", int(c))
	}
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCategory is the inverse of Category.String.
func ParseCategory(label string) (Category, error) {
	for c, l := range categoryLabels {
		if l == label {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", label)
}

// CategoryCount is one row of the category breakdown.
type CategoryCount struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
}

// CategoryCounts classifies every node and returns the non-empty categories
// ordered by count descending, ties in category order. The counts sum to
// len(degrees).
func CategoryCounts(degrees map[network.NodeID]int) []CategoryCount {
	var counts [int(MajorHub) + 1]int
	for _, d := range degrees {
		counts[Classify(d)]++
	}

	out := make([]CategoryCount, 0, len(counts))
	for _, c := range Categories {
		if counts[c] > 0 {
			out = append(out, CategoryCount{Category: c, Count: counts[c]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}
