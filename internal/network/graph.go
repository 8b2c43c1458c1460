// Package network holds the in-memory road network model shared by the
// loader, the graph stores and the metrics engine.
package network

import (
	"errors"
	"fmt"
	"math"
)

// NodeID identifies an intersection.
type NodeID int64

// Node is an intersection with integer planar coordinates.
type Node struct {
	ID NodeID `json:"id"`
	X  int64  `json:"x"`
	Y  int64  `json:"y"`
}

// Edge is an undirected road segment between two intersections.
type Edge struct {
	Source   NodeID  `json:"source"`
	Target   NodeID  `json:"target"`
	Distance float64 `json:"distance"`
}

// Graph is a fully loaded road network. It is never mutated once a loader
// hands it over.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

var (
	// ErrDanglingEdge is matched by every DanglingEdgeError.
	ErrDanglingEdge = errors.New("dangling edge reference")
	// ErrDuplicateNode reports a node id that appears more than once.
	ErrDuplicateNode = errors.New("duplicate node id")
	// ErrNegativeDistance reports an edge whose distance is below zero.
	ErrNegativeDistance = errors.New("negative edge distance")
)

// DanglingEdgeError names the edge that references an unknown node.
type DanglingEdgeError struct {
	Line    int // 1-based input line, 0 when the edge did not come from a file
	Source  NodeID
	Target  NodeID
	Missing NodeID
}

func (e *DanglingEdgeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: edge (%d, %d) references unknown node %d", e.Line, e.Source, e.Target, e.Missing)
	}
	return fmt.Sprintf("edge (%d, %d) references unknown node %d", e.Source, e.Target, e.Missing)
}

func (e *DanglingEdgeError) Is(target error) bool { return target == ErrDanglingEdge }

// NodeCount returns the number of intersections.
func (g *Graph) NodeCount() int { return len(g.Nodes) }

// EdgeCount returns the number of road segments.
func (g *Graph) EdgeCount() int { return len(g.Edges) }

// Index maps node ids to their coordinates.
func (g *Graph) Index() map[NodeID]Node {
	idx := make(map[NodeID]Node, len(g.Nodes))
	for _, n := range g.Nodes {
		idx[n.ID] = n
	}
	return idx
}

// Validate checks that node ids are unique, that every edge endpoint exists
// and that no distance is negative.
func (g *Graph) Validate() error {
	seen := make(map[NodeID]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicateNode, n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	for _, e := range g.Edges {
		if _, ok := seen[e.Source]; !ok {
			return &DanglingEdgeError{Source: e.Source, Target: e.Target, Missing: e.Source}
		}
		if _, ok := seen[e.Target]; !ok {
			return &DanglingEdgeError{Source: e.Source, Target: e.Target, Missing: e.Target}
		}
		if e.Distance < 0 || math.IsNaN(e.Distance) {
			return fmt.Errorf("%w: edge (%d, %d) = %v", ErrNegativeDistance, e.Source, e.Target, e.Distance)
		}
	}
	return nil
}

// Degrees derives the degree of every node from the edge list. Isolated
// nodes are present with degree 0, multi-edges count once per edge and a
// self-loop counts twice for its node.
func (g *Graph) Degrees() map[NodeID]int {
	degrees := make(map[NodeID]int, len(g.Nodes))
	for _, n := range g.Nodes {
		degrees[n.ID] = 0
	}
	for _, e := range g.Edges {
		degrees[e.Source]++
		degrees[e.Target]++
	}
	return degrees
}

// WithDistances returns a copy of the graph whose edge distances are
// recomputed from node coordinates. Edges with unknown endpoints are left
// at distance 0; Validate catches those.
func (g *Graph) WithDistances() *Graph {
	idx := g.Index()
	out := &Graph{
		Nodes: append([]Node(nil), g.Nodes...),
		Edges: make([]Edge, len(g.Edges)),
	}
	for i, e := range g.Edges {
		a, okA := idx[e.Source]
		b, okB := idx[e.Target]
		if okA && okB {
			e.Distance = Distance(a, b)
		}
		out.Edges[i] = e
	}
	return out
}

// Distance is the Euclidean distance between two nodes rounded to two
// decimal places.
func Distance(a, b Node) float64 {
	dx := float64(b.X) - float64(a.X)
	dy := float64(b.Y) - float64(a.Y)
	return Round(math.Sqrt(dx*dx+dy*dy), 2)
}

// Round rounds v to the given number of decimal places, half away from zero.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
