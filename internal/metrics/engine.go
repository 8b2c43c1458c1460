package metrics

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/efebarandurmaz/roadnet/internal/network"
	"github.com/efebarandurmaz/roadnet/internal/observability"
)

// Summary is the key figures block of the dashboard.
type Summary struct {
	TotalNodes    int     `json:"total_intersections"`
	TotalEdges    int     `json:"total_roads"`
	AverageDegree float64 `json:"average_degree"`
	MaxDegree     int     `json:"max_degree"`

	DominantCategory        string  `json:"dominant_category,omitempty"`
	DominantCategoryPercent float64 `json:"dominant_category_percent"`

	// Empty is set for a graph without nodes; the figures above are then 0.
	Empty bool `json:"empty"`
}

// Summarize derives the summary block. cats must be ordered as returned by
// CategoryCounts; its first entry is the dominant category.
func Summarize(nodes, edges, maxDegree int, cats []CategoryCount) Summary {
	s := Summary{TotalNodes: nodes, TotalEdges: edges, MaxDegree: maxDegree}
	if nodes == 0 {
		s.Empty = true
		s.MaxDegree = 0
		return s
	}
	s.AverageDegree = network.Round(float64(2*edges)/float64(nodes), 2)
	if len(cats) > 0 {
		s.DominantCategory = cats[0].Category.String()
		s.DominantCategoryPercent = network.Round(float64(cats[0].Count)/float64(nodes)*100, 1)
	}
	return s
}

// Report bundles every computed aggregate for presentation.
type Report struct {
	Summary    Summary         `json:"summary"`
	Histogram  []DegreeBucket  `json:"degree_distribution"`
	TopK       int             `json:"top_k"`
	TopNodes   []RankedNode    `json:"top_intersections"`
	Categories []CategoryCount `json:"categories"`
}

// JSON returns the report as indented JSON.
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Engine computes reports from a graph source.
type Engine struct {
	topK int
}

// Option configures an Engine.
type Option func(*Engine)

// WithTopK sets the ranking length. Compute rejects non-positive values.
func WithTopK(k int) Option {
	return func(e *Engine) { e.topK = k }
}

// NewEngine creates an engine ranking DefaultTopK nodes unless configured.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{topK: DefaultTopK}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compute loads a snapshot from src and derives the full report.
func (e *Engine) Compute(ctx context.Context, src Source) (*Report, error) {
	_, rep, err := e.ComputeSnapshot(ctx, src)
	return rep, err
}

// ComputeSnapshot is Compute that also returns the snapshot the report was
// derived from, for callers that answer further queries against it.
func (e *Engine) ComputeSnapshot(ctx context.Context, src Source) (*Snapshot, *Report, error) {
	ctx, span := observability.StartComputeSpan(ctx, e.topK)
	defer span.End()

	if e.topK <= 0 {
		err := fmt.Errorf("%w: top-k requires k > 0, got %d", ErrInvalidArgument, e.topK)
		observability.RecordError(span, err)
		return nil, nil, err
	}

	snap, err := LoadSnapshot(ctx, src)
	if err != nil {
		observability.RecordError(span, err)
		return nil, nil, err
	}

	rep, err := e.FromSnapshot(snap)
	if err != nil {
		observability.RecordError(span, err)
		return nil, nil, err
	}
	observability.RecordComputeResult(span, rep.Summary.TotalNodes, rep.Summary.TotalEdges, rep.Summary.MaxDegree)
	return snap, rep, nil
}

// TopK returns the configured ranking length.
func (e *Engine) TopK() int { return e.topK }

// FromSnapshot runs the histogram, ranking, category and max-degree passes
// concurrently over the read-only snapshot and joins them into a report.
func (e *Engine) FromSnapshot(snap *Snapshot) (*Report, error) {
	var (
		hist []DegreeBucket
		top  []RankedNode
		cats []CategoryCount
		maxD int
	)

	var g errgroup.Group
	g.Go(func() error {
		hist = Histogram(snap.Degrees)
		return nil
	})
	g.Go(func() error {
		var err error
		top, err = TopK(snap.Degrees, e.topK)
		return err
	})
	g.Go(func() error {
		cats = CategoryCounts(snap.Degrees)
		return nil
	})
	g.Go(func() error {
		maxD = MaxDegree(snap.Degrees)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Report{
		Summary:    Summarize(snap.Nodes, snap.Edges, maxD, cats),
		Histogram:  hist,
		TopK:       e.topK,
		TopNodes:   top,
		Categories: cats,
	}, nil
}

// Publish copies the report figures into the Prometheus collectors.
func (r *Report) Publish(m *observability.Metrics) {
	m.SetGraph(r.Summary.TotalNodes, r.Summary.TotalEdges, r.Summary.AverageDegree, r.Summary.MaxDegree)

	degrees := make(map[int]int, len(r.Histogram))
	for _, b := range r.Histogram {
		degrees[b.Degree] = b.Count
	}
	m.SetDegreeDistribution(degrees)

	cats := make(map[string]int, len(r.Categories))
	for _, c := range r.Categories {
		cats[c.Category.String()] = c.Count
	}
	m.SetCategories(cats)
}
