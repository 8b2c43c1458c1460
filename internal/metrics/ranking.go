package metrics

import (
	"container/heap"
	"fmt"
	"sort"

	"github.com/efebarandurmaz/roadnet/internal/network"
)

// DefaultTopK is the ranking length used when none is configured.
const DefaultTopK = 10

// RankedNode is one entry of the most-connected ranking.
type RankedNode struct {
	ID     network.NodeID `json:"intersection_id"`
	Degree int            `json:"degree"`
}

// ranksBefore orders by degree descending, then id ascending.
func ranksBefore(a, b RankedNode) bool {
	if a.Degree != b.Degree {
		return a.Degree > b.Degree
	}
	return a.ID < b.ID
}

// rankHeap keeps the current worst entry of the top k on top.
type rankHeap []RankedNode

func (h rankHeap) Len() int           { return len(h) }
func (h rankHeap) Less(i, j int) bool { return ranksBefore(h[j], h[i]) }
func (h rankHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *rankHeap) Push(x any)        { *h = append(*h, x.(RankedNode)) }
func (h *rankHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// TopK returns the k nodes with the highest degree, degree descending and
// node id ascending among equal degrees. Fewer than k nodes yields all of
// them. k must be positive.
func TopK(degrees map[network.NodeID]int, k int) ([]RankedNode, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: top-k requires k > 0, got %d", ErrInvalidArgument, k)
	}
	if k > len(degrees) {
		k = len(degrees)
	}

	h := make(rankHeap, 0, k+1)
	for id, d := range degrees {
		n := RankedNode{ID: id, Degree: d}
		if len(h) < k {
			heap.Push(&h, n)
			continue
		}
		if ranksBefore(n, h[0]) {
			h[0] = n
			heap.Fix(&h, 0)
		}
	}

	out := []RankedNode(h)
	sort.Slice(out, func(i, j int) bool { return ranksBefore(out[i], out[j]) })
	return out, nil
}
