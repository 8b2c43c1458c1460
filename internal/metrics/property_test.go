package metrics

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/efebarandurmaz/roadnet/internal/network"
)

// buildGraph makes n nodes and pairs up ends into edges modulo n.
func buildGraph(n int, ends []int) *network.Graph {
	g := &network.Graph{}
	for i := 1; i <= n; i++ {
		g.Nodes = append(g.Nodes, network.Node{ID: network.NodeID(i)})
	}
	if n == 0 {
		return g
	}
	for i := 0; i+1 < len(ends); i += 2 {
		g.Edges = append(g.Edges, network.Edge{
			Source: network.NodeID(ends[i]%n + 1),
			Target: network.NodeID(ends[i+1]%n + 1),
		})
	}
	return g
}

// TestMetricInvariants checks the aggregate invariants over random graphs,
// including self-loops and parallel edges.
func TestMetricInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	nodes := gen.IntRange(0, 40)
	ends := gen.SliceOf(gen.IntRange(0, 1000))

	properties.Property("degrees sum to twice the edge count", prop.ForAll(
		func(n int, ends []int) bool {
			return SnapshotOf(buildGraph(n, ends)).Check() == nil
		},
		nodes, ends,
	))

	properties.Property("histogram counts sum to node count", prop.ForAll(
		func(n int, ends []int) bool {
			total := 0
			for _, b := range Histogram(buildGraph(n, ends).Degrees()) {
				total += b.Count
			}
			return total == n
		},
		nodes, ends,
	))

	properties.Property("category counts sum to node count", prop.ForAll(
		func(n int, ends []int) bool {
			total := 0
			for _, c := range CategoryCounts(buildGraph(n, ends).Degrees()) {
				total += c.Count
			}
			return total == n
		},
		nodes, ends,
	))

	properties.Property("top-k is ordered and bounded", prop.ForAll(
		func(n int, ends []int, k int) bool {
			degrees := buildGraph(n, ends).Degrees()
			top, err := TopK(degrees, k)
			if err != nil {
				return false
			}
			want := k
			if n < k {
				want = n
			}
			if len(top) != want {
				return false
			}
			for i := 1; i < len(top); i++ {
				if !ranksBefore(top[i-1], top[i]) {
					return false
				}
			}
			if len(top) > 0 && len(top) < n {
				// nothing left out may outrank the last entry
				last := top[len(top)-1]
				in := map[network.NodeID]bool{}
				for _, r := range top {
					in[r.ID] = true
				}
				for id, d := range degrees {
					if !in[id] && ranksBefore(RankedNode{ID: id, Degree: d}, last) {
						return false
					}
				}
			}
			return true
		},
		nodes, ends, gen.IntRange(1, 15),
	))

	properties.Property("computation is idempotent", prop.ForAll(
		func(n int, ends []int) bool {
			snap := SnapshotOf(buildGraph(n, ends))
			e := NewEngine()
			a, errA := e.FromSnapshot(snap)
			b, errB := e.FromSnapshot(snap)
			if errA != nil || errB != nil {
				return false
			}
			if a.Summary != b.Summary || len(a.TopNodes) != len(b.TopNodes) {
				return false
			}
			for i := range a.TopNodes {
				if a.TopNodes[i] != b.TopNodes[i] {
					return false
				}
			}
			return true
		},
		nodes, ends,
	))

	properties.TestingRun(t)
}
