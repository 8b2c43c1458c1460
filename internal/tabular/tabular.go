// Package tabular writes and reads the CSV export of a road network: one
// table of intersections and one table of roads, each with a header row.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/efebarandurmaz/roadnet/internal/network"
)

const (
	// IntersectionsFile holds the node table.
	IntersectionsFile = "intersections.csv"
	// RoadsFile holds the edge table.
	RoadsFile = "roads.csv"
)

var (
	// NodeHeader is the exact header row of the node table.
	NodeHeader = []string{"id", "x", "y"}
	// EdgeHeader is the exact header row of the edge table.
	EdgeHeader = []string{"source", "target", "distance"}
)

// ErrBadTable reports a table that does not follow the export contract.
var ErrBadTable = errors.New("bad table")

// WriteDir writes both tables into dir, creating it if needed.
func WriteDir(dir string, g *network.Graph) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	if err := writeFile(filepath.Join(dir, IntersectionsFile), func(w io.Writer) error { return WriteNodes(w, g.Nodes) }); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, RoadsFile), func(w io.Writer) error { return WriteEdges(w, g.Edges) }); err != nil {
		return err
	}
	slog.Info("Wrote tabular export", "dir", dir, "intersections", g.NodeCount(), "roads", g.EdgeCount())
	return nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// WriteNodes writes the node table.
func WriteNodes(w io.Writer, nodes []network.Node) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(NodeHeader); err != nil {
		return err
	}
	for _, n := range nodes {
		rec := []string{
			strconv.FormatInt(int64(n.ID), 10),
			strconv.FormatInt(n.X, 10),
			strconv.FormatInt(n.Y, 10),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEdges writes the edge table. Distances carry two decimals.
func WriteEdges(w io.Writer, edges []network.Edge) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(EdgeHeader); err != nil {
		return err
	}
	for _, e := range edges {
		rec := []string{
			strconv.FormatInt(int64(e.Source), 10),
			strconv.FormatInt(int64(e.Target), 10),
			strconv.FormatFloat(e.Distance, 'f', 2, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadDir reads both tables from dir and validates the resulting graph.
func ReadDir(dir string) (*network.Graph, error) {
	nf, err := os.Open(filepath.Join(dir, IntersectionsFile))
	if err != nil {
		return nil, fmt.Errorf("open node table: %w", err)
	}
	defer nf.Close()
	nodes, err := ReadNodes(nf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", IntersectionsFile, err)
	}

	ef, err := os.Open(filepath.Join(dir, RoadsFile))
	if err != nil {
		return nil, fmt.Errorf("open edge table: %w", err)
	}
	defer ef.Close()
	edges, err := ReadEdges(ef)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", RoadsFile, err)
	}

	g := &network.Graph{Nodes: nodes, Edges: edges}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// ReadNodes reads a node table written by WriteNodes.
func ReadNodes(r io.Reader) ([]network.Node, error) {
	rows, err := readTable(r, NodeHeader)
	if err != nil {
		return nil, err
	}
	nodes := make([]network.Node, 0, len(rows))
	for i, row := range rows {
		vals, err := parseInts(row)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrBadTable, i+2, err)
		}
		nodes = append(nodes, network.Node{ID: network.NodeID(vals[0]), X: vals[1], Y: vals[2]})
	}
	return nodes, nil
}

// ReadEdges reads an edge table written by WriteEdges.
func ReadEdges(r io.Reader) ([]network.Edge, error) {
	rows, err := readTable(r, EdgeHeader)
	if err != nil {
		return nil, err
	}
	edges := make([]network.Edge, 0, len(rows))
	for i, row := range rows {
		ends, err := parseInts(row[:2])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrBadTable, i+2, err)
		}
		dist, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: distance %q", ErrBadTable, i+2, row[2])
		}
		edges = append(edges, network.Edge{
			Source:   network.NodeID(ends[0]),
			Target:   network.NodeID(ends[1]),
			Distance: dist,
		})
	}
	return edges, nil
}

func readTable(r io.Reader, header []string) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)
	cr.ReuseRecord = false

	got, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: missing header row", ErrBadTable)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadTable, err)
	}
	for i := range header {
		if got[i] != header[i] {
			return nil, fmt.Errorf("%w: header column %d is %q, want %q", ErrBadTable, i+1, got[i], header[i])
		}
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadTable, err)
	}
	return rows, nil
}

func parseInts(fields []string) ([]int64, error) {
	out := make([]int64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("column %d %q is not an integer", i+1, f)
		}
		out[i] = v
	}
	return out, nil
}
