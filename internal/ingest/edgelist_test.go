package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/roadnet/internal/network"
)

const scenarioA = "3 2\n1 0 0\n2 3 0\n3 3 4\n1 2\n2 3\n"

func TestParse_ScenarioA(t *testing.T) {
	g, err := Parse(strings.NewReader(scenarioA))
	require.NoError(t, err)

	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 2, g.EdgeCount())
	assert.Equal(t, network.Node{ID: 3, X: 3, Y: 4}, g.Nodes[2])
	assert.Equal(t, network.Edge{Source: 1, Target: 2, Distance: 3.00}, g.Edges[0])
	assert.Equal(t, network.Edge{Source: 2, Target: 3, Distance: 4.00}, g.Edges[1])
	assert.Equal(t, map[network.NodeID]int{1: 1, 2: 2, 3: 1}, g.Degrees())
}

func TestParse_DuplicateEdgesKept(t *testing.T) {
	g, err := Parse(strings.NewReader("2 2\n1 0 0\n2 1 0\n1 2\n1 2\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, g.EdgeCount())
	assert.Equal(t, 2, g.Degrees()[1])
}

func TestParse_IsolatedNode(t *testing.T) {
	g, err := Parse(strings.NewReader("3 1\n1 0 0\n2 1 0\n3 5 5\n1 2\n"))
	require.NoError(t, err)
	deg := g.Degrees()
	assert.Len(t, deg, 3)
	assert.Equal(t, 0, deg[3])
}

func TestParse_TolerantInput(t *testing.T) {
	input := "\n  3 2  \n1 0 0\n\n2 3 0\n3 3 4\n1 2 7.5 extra\n2\t3\n\n"
	g, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, g.EdgeCount())
	assert.Equal(t, network.NodeID(3), g.Edges[1].Target)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
	}{
		{"empty", "", 0},
		{"short header", "3\n", 1},
		{"non-numeric header", "three 2\n", 1},
		{"negative count", "-1 0\n", 1},
		{"missing nodes", "3 0\n1 0 0\n2 1 1\n", 3},
		{"short node record", "1 0\n1 0\n", 2},
		{"non-numeric coordinate", "1 0\n1 0 y\n", 2},
		{"duplicate node", "2 0\n1 0 0\n1 2 2\n", 3},
		{"short edge record", "2 1\n1 0 0\n2 1 1\n1\n", 4},
		{"non-numeric edge", "2 1\n1 0 0\n2 1 1\n1 b\n", 4},
		{"too few edges", "2 2\n1 0 0\n2 1 1\n1 2\n", 0},
		{"too many edges", "2 1\n1 0 0\n2 1 1\n1 2\n2 1\n", 5},
		{"huge node count", "4611686018427387904 0\n", 1},
		{"huge edge count", "0 4611686018427387904\n", 0},
		{"node count beyond records", "2000000000 0\n1 0 0\n", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Nil(t, g, "no partial graph on failure")
			assert.True(t, errors.Is(err, ErrMalformedInput), "got %v", err)

			var me *MalformedInputError
			require.True(t, errors.As(err, &me))
			assert.Equal(t, tt.wantLine, me.Line)
		})
	}
}

func TestParse_DanglingEdge(t *testing.T) {
	_, err := Parse(strings.NewReader("2 1\n1 0 0\n2 1 1\n1 9\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, network.ErrDanglingEdge))

	var de *network.DanglingEdgeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 4, de.Line)
	assert.Equal(t, network.NodeID(9), de.Missing)
	assert.Contains(t, err.Error(), "line 4")
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usa.txt")
	require.NoError(t, os.WriteFile(path, []byte(scenarioA), 0o644))

	g, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, g.NodeCount())

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
