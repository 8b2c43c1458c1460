// Package metrics computes the road network dashboard figures: per-node
// degree, the degree histogram, the most connected intersections, the
// category breakdown and the summary block.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/efebarandurmaz/roadnet/internal/network"
)

var (
	// ErrInvalidArgument reports a caller error such as a non-positive K.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInconsistentSnapshot reports store answers that contradict each other.
	ErrInconsistentSnapshot = errors.New("inconsistent graph snapshot")
)

// Source is the read side of a graph store.
type Source interface {
	CountNodes(ctx context.Context) (int, error)
	CountEdges(ctx context.Context) (int, error)
	AllDegrees(ctx context.Context) (map[network.NodeID]int, error)
}

// Snapshot is the immutable input to every metric: totals plus the degree
// of every node.
type Snapshot struct {
	Nodes   int
	Edges   int
	Degrees map[network.NodeID]int
}

// LoadSnapshot queries src concurrently and checks that the answers agree:
// one degree entry per node and degrees summing to twice the edge count.
// Store failures are returned unchanged and no snapshot is produced.
func LoadSnapshot(ctx context.Context, src Source) (*Snapshot, error) {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := src.CountNodes(gctx)
		snap.Nodes = n
		return err
	})
	g.Go(func() error {
		n, err := src.CountEdges(gctx)
		snap.Edges = n
		return err
	})
	g.Go(func() error {
		d, err := src.AllDegrees(gctx)
		snap.Degrees = d
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if snap.Degrees == nil {
		snap.Degrees = map[network.NodeID]int{}
	}
	if err := snap.Check(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// SnapshotOf builds a snapshot straight from an in-memory graph.
func SnapshotOf(g *network.Graph) *Snapshot {
	return &Snapshot{Nodes: g.NodeCount(), Edges: g.EdgeCount(), Degrees: g.Degrees()}
}

// Check verifies the degree-sum and coverage invariants.
func (s *Snapshot) Check() error {
	if len(s.Degrees) != s.Nodes {
		return fmt.Errorf("%w: %d intersections but %d degree entries", ErrInconsistentSnapshot, s.Nodes, len(s.Degrees))
	}
	sum := 0
	for id, d := range s.Degrees {
		if d < 0 {
			return fmt.Errorf("%w: intersection %d has degree %d", ErrInconsistentSnapshot, id, d)
		}
		sum += d
	}
	if sum != 2*s.Edges {
		return fmt.Errorf("%w: degrees sum to %d, want 2 x %d roads", ErrInconsistentSnapshot, sum, s.Edges)
	}
	return nil
}

// DegreeBucket is one histogram bar.
type DegreeBucket struct {
	Degree int `json:"degree"`
	Count  int `json:"count"`
}

// Histogram counts nodes per degree, ascending by degree. The counts sum to
// len(degrees).
func Histogram(degrees map[network.NodeID]int) []DegreeBucket {
	counts := make(map[int]int)
	for _, d := range degrees {
		counts[d]++
	}
	out := make([]DegreeBucket, 0, len(counts))
	for d, c := range counts {
		out = append(out, DegreeBucket{Degree: d, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Degree < out[j].Degree })
	return out
}

// MaxDegree returns the largest degree, or 0 for an empty map.
func MaxDegree(degrees map[network.NodeID]int) int {
	highest := 0
	for _, d := range degrees {
		if d > highest {
			highest = d
		}
	}
	return highest
}
