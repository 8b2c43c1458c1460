package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/roadnet/internal/network"
)

// scenarioA is the three node path 1-2-3.
func scenarioA() *network.Graph {
	return &network.Graph{
		Nodes: []network.Node{{ID: 1}, {ID: 2, X: 3}, {ID: 3, X: 3, Y: 4}},
		Edges: []network.Edge{{Source: 1, Target: 2, Distance: 3}, {Source: 2, Target: 3, Distance: 4}},
	}
}

func TestHistogram_ScenarioA(t *testing.T) {
	got := Histogram(scenarioA().Degrees())
	assert.Equal(t, []DegreeBucket{{Degree: 1, Count: 2}, {Degree: 2, Count: 1}}, got)
}

func TestHistogram_Empty(t *testing.T) {
	assert.Empty(t, Histogram(map[network.NodeID]int{}))
}

func TestMaxDegree(t *testing.T) {
	assert.Equal(t, 0, MaxDegree(nil))
	assert.Equal(t, 2, MaxDegree(scenarioA().Degrees()))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		degree int
		want   Category
	}{
		{0, Isolated},
		{1, DeadEnd},
		{2, PassThrough},
		{3, TJunction},
		{4, Crossroad},
		{5, MajorHub},
		{42, MajorHub},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.degree), "degree %d", tt.degree)
	}
}

func TestCategory_Labels(t *testing.T) {
	assert.Equal(t, "Dead End", DeadEnd.String())
	assert.Equal(t, "Dead End (1 road)", DeadEnd.Description())
	assert.Equal(t, "Major Hub (5+ roads)", MajorHub.Description())
	assert.Equal(t, "Category(9)", Category(9).String())

	for _, c := range Categories {
		text, err := c.MarshalText()
		require.NoError(t, err)
		var back Category
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, c, back)
	}

	_, err := Category(9).MarshalText()
	assert.Error(t, err)
	_, err = ParseCategory("Roundabout")
	assert.Error(t, err)
}

func TestCategoryCounts_Ordering(t *testing.T) {
	degrees := map[network.NodeID]int{
		1: 1, 2: 1, // Dead End x2
		3: 3, 4: 3, // T-Junction x2
		5: 2, // Pass Through
		6: 0, // Isolated
	}
	got := CategoryCounts(degrees)
	assert.Equal(t, []CategoryCount{
		{Category: DeadEnd, Count: 2},
		{Category: TJunction, Count: 2},
		{Category: Isolated, Count: 1},
		{Category: PassThrough, Count: 1},
	}, got)
}

func TestTopK(t *testing.T) {
	degrees := map[network.NodeID]int{7: 3, 2: 3, 9: 5, 1: 1, 4: 3}

	got, err := TopK(degrees, 3)
	require.NoError(t, err)
	assert.Equal(t, []RankedNode{{ID: 9, Degree: 5}, {ID: 2, Degree: 3}, {ID: 4, Degree: 3}}, got)

	all, err := TopK(degrees, 10)
	require.NoError(t, err)
	assert.Len(t, all, 5, "fewer than k nodes returns all of them")
	assert.Equal(t, RankedNode{ID: 1, Degree: 1}, all[4])
}

func TestTopK_InvalidK(t *testing.T) {
	for _, k := range []int{0, -1} {
		_, err := TopK(map[network.NodeID]int{1: 1}, k)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	}
}

func TestTopK_Empty(t *testing.T) {
	got, err := TopK(nil, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSummarize(t *testing.T) {
	degrees := scenarioA().Degrees()
	s := Summarize(3, 2, MaxDegree(degrees), CategoryCounts(degrees))

	assert.Equal(t, Summary{
		TotalNodes:              3,
		TotalEdges:              2,
		AverageDegree:           1.33,
		MaxDegree:               2,
		DominantCategory:        "Dead End",
		DominantCategoryPercent: 66.7,
	}, s)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(0, 0, 0, nil)
	assert.True(t, s.Empty)
	assert.Zero(t, s.AverageDegree)
	assert.Empty(t, s.DominantCategory)
	assert.Zero(t, s.DominantCategoryPercent)
}

func TestSummarize_SingleIsolatedNode(t *testing.T) {
	degrees := map[network.NodeID]int{1: 0}
	s := Summarize(1, 0, MaxDegree(degrees), CategoryCounts(degrees))
	assert.False(t, s.Empty)
	assert.Zero(t, s.AverageDegree)
	assert.Equal(t, "Isolated", s.DominantCategory)
	assert.Equal(t, 100.0, s.DominantCategoryPercent)
}

func TestSnapshotCheck(t *testing.T) {
	ok := SnapshotOf(scenarioA())
	require.NoError(t, ok.Check())

	tests := []struct {
		name string
		snap Snapshot
	}{
		{"missing degree entry", Snapshot{Nodes: 2, Edges: 0, Degrees: map[network.NodeID]int{1: 0}}},
		{"negative degree", Snapshot{Nodes: 1, Edges: 0, Degrees: map[network.NodeID]int{1: -2}}},
		{"sum mismatch", Snapshot{Nodes: 2, Edges: 2, Degrees: map[network.NodeID]int{1: 1, 2: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.snap.Check(), ErrInconsistentSnapshot)
		})
	}
}
