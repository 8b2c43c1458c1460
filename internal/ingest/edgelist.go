// Package ingest reads DIMACS-style road network edge lists.
//
// The format is a header line "<nodeCount> <edgeCount>", followed by
// nodeCount lines "<id> <x> <y>" and then edgeCount lines
// "<source> <target>" (further fields on an edge line are ignored).
package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/efebarandurmaz/roadnet/internal/network"
)

const (
	maxLineBytes = 1 << 20
	// Header counts are unchecked until the records are read, so they only
	// hint the initial capacity.
	maxPrealloc = 1 << 16
)

// ErrMalformedInput is matched by every MalformedInputError.
var ErrMalformedInput = errors.New("malformed input")

// MalformedInputError points at the offending input line.
type MalformedInputError struct {
	Line   int // 1-based; 0 when the problem is not tied to a single line
	Reason string
}

func (e *MalformedInputError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed input at line %d: %s", e.Line, e.Reason)
	}
	return "malformed input: " + e.Reason
}

func (e *MalformedInputError) Is(target error) bool { return target == ErrMalformedInput }

func malformed(line int, format string, args ...any) error {
	return &MalformedInputError{Line: line, Reason: fmt.Sprintf(format, args...)}
}

// ParseFile opens path and parses it with Parse.
func ParseFile(path string) (*network.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open edge list: %w", err)
	}
	defer f.Close()

	slog.Info("Reading edge list", "path", path)
	return Parse(f)
}

// Parse reads a complete edge list. Edge distances are computed from the
// node coordinates. Nothing is returned unless the whole input is valid.
func Parse(r io.Reader) (*network.Graph, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	next := func() ([]string, bool) {
		for sc.Scan() {
			lineNo++
			fields := strings.Fields(sc.Text())
			if len(fields) == 0 {
				continue
			}
			return fields, true
		}
		return nil, false
	}

	header, ok := next()
	if !ok {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read edge list: %w", err)
		}
		return nil, malformed(0, "missing header line")
	}
	if len(header) < 2 {
		return nil, malformed(lineNo, "header needs node and edge counts, got %d field(s)", len(header))
	}
	nodeCount, err := parseCount(header[0])
	if err != nil {
		return nil, malformed(lineNo, "node count %q: %v", header[0], err)
	}
	edgeCount, err := parseCount(header[1])
	if err != nil {
		return nil, malformed(lineNo, "edge count %q: %v", header[1], err)
	}
	slog.Info("Parsed header", "intersections", nodeCount, "roads", edgeCount)

	g := &network.Graph{
		Nodes: make([]network.Node, 0, min(nodeCount, maxPrealloc)),
		Edges: make([]network.Edge, 0, min(edgeCount, maxPrealloc)),
	}
	index := make(map[network.NodeID]struct{}, min(nodeCount, maxPrealloc))

	for i := 0; i < nodeCount; i++ {
		fields, ok := next()
		if !ok {
			if err := sc.Err(); err != nil {
				return nil, fmt.Errorf("read edge list: %w", err)
			}
			return nil, malformed(lineNo, "header declares %d intersections, found %d", nodeCount, i)
		}
		if len(fields) < 3 {
			return nil, malformed(lineNo, "intersection record needs id, x and y, got %d field(s)", len(fields))
		}
		vals, err := parseInts(fields[:3])
		if err != nil {
			return nil, malformed(lineNo, "intersection record: %v", err)
		}
		n := network.Node{ID: network.NodeID(vals[0]), X: vals[1], Y: vals[2]}
		if _, dup := index[n.ID]; dup {
			return nil, malformed(lineNo, "intersection %d declared twice", n.ID)
		}
		index[n.ID] = struct{}{}
		g.Nodes = append(g.Nodes, n)
	}

	for {
		fields, ok := next()
		if !ok {
			break
		}
		if len(g.Edges) == edgeCount {
			return nil, malformed(lineNo, "header declares %d roads but more records follow", edgeCount)
		}
		if len(fields) < 2 {
			return nil, malformed(lineNo, "road record needs source and target, got %d field(s)", len(fields))
		}
		vals, err := parseInts(fields[:2])
		if err != nil {
			return nil, malformed(lineNo, "road record: %v", err)
		}
		src, dst := network.NodeID(vals[0]), network.NodeID(vals[1])
		if _, ok := index[src]; !ok {
			return nil, &network.DanglingEdgeError{Line: lineNo, Source: src, Target: dst, Missing: src}
		}
		if _, ok := index[dst]; !ok {
			return nil, &network.DanglingEdgeError{Line: lineNo, Source: src, Target: dst, Missing: dst}
		}
		g.Edges = append(g.Edges, network.Edge{Source: src, Target: dst})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read edge list: %w", err)
	}
	if len(g.Edges) != edgeCount {
		return nil, malformed(0, "header declares %d roads, found %d", edgeCount, len(g.Edges))
	}

	slog.Info("Parsed road network", "intersections", g.NodeCount(), "roads", g.EdgeCount())
	return g.WithDistances(), nil
}

func parseCount(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.New("must not be negative")
	}
	return n, nil
}

func parseInts(fields []string) ([]int64, error) {
	out := make([]int64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("field %d %q is not an integer", i+1, f)
		}
		out[i] = v
	}
	return out, nil
}
