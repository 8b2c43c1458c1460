// Package pipeline wires the loader, the graph store and the metrics engine
// into the load, import and analyze stages shared by the CLI, the dashboard
// and the workflow activities.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/efebarandurmaz/roadnet/internal/config"
	"github.com/efebarandurmaz/roadnet/internal/graph"
	"github.com/efebarandurmaz/roadnet/internal/graph/memory"
	"github.com/efebarandurmaz/roadnet/internal/graph/neo4j"
	"github.com/efebarandurmaz/roadnet/internal/ingest"
	"github.com/efebarandurmaz/roadnet/internal/metrics"
	"github.com/efebarandurmaz/roadnet/internal/network"
	"github.com/efebarandurmaz/roadnet/internal/observability"
	"github.com/efebarandurmaz/roadnet/internal/report"
	"github.com/efebarandurmaz/roadnet/internal/secrets"
	"github.com/efebarandurmaz/roadnet/internal/tabular"
)

// Backend names accepted in graph.backend.
const (
	BackendMemory = "memory"
	BackendNeo4j  = "neo4j"
)

// OpenStore opens the configured graph store. The password is resolved
// through resolver, so it may be an env: or file: reference. The caller
// owns the returned store and must Close it.
func OpenStore(ctx context.Context, cfg config.GraphConfig, resolver *secrets.Resolver) (graph.Store, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return memory.New(), nil
	case BackendNeo4j:
		if resolver == nil {
			resolver = secrets.NewResolver(config.EnvPrefix + "_")
		}
		password, err := resolver.Resolve(ctx, cfg.Password)
		if err != nil {
			return nil, fmt.Errorf("graph password: %w", err)
		}
		slog.Info("Connecting to graph store", "backend", cfg.Backend, "uri", cfg.URI)
		store, err := neo4j.New(ctx, neo4j.Config{
			URI:       cfg.URI,
			Username:  cfg.Username,
			Password:  password,
			Database:  cfg.Database,
			BatchSize: cfg.BatchSize,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown graph backend %q", cfg.Backend)
	}
}

// Load reads a road network from path: a directory is read as a tabular
// export, anything else is parsed as an edge list.
func Load(ctx context.Context, path string) (*network.Graph, error) {
	_, span := observability.StartParseSpan(ctx, path)
	defer span.End()

	info, err := os.Stat(path)
	if err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	var g *network.Graph
	if info.IsDir() {
		slog.Info("Reading tabular export", "dir", path)
		g, err = tabular.ReadDir(path)
	} else {
		g, err = ingest.ParseFile(path)
	}
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	observability.RecordParseResult(span, g.NodeCount(), g.EdgeCount())
	return g, nil
}

// Export writes g as a tabular export into dir.
func Export(ctx context.Context, dir string, g *network.Graph) error {
	_, span := observability.StartReportSpan(ctx, "csv", dir)
	defer span.End()

	if err := tabular.WriteDir(dir, g); err != nil {
		observability.RecordError(span, err)
		return err
	}
	slog.Info("Exported road network", "dir", dir, "intersections", g.NodeCount(), "roads", g.EdgeCount())
	return nil
}

// Pipeline runs the stages against one open store.
type Pipeline struct {
	store   graph.Store
	backend string
	metrics *observability.Metrics
}

// New creates a pipeline over store. m may be nil.
func New(store graph.Store, backend string, m *observability.Metrics) *Pipeline {
	if backend == "" {
		backend = BackendMemory
	}
	if m == nil {
		m = observability.DefaultMetrics()
	}
	return &Pipeline{store: store, backend: backend, metrics: m}
}

// Store returns the underlying graph store.
func (p *Pipeline) Store() graph.Store { return p.store }

// Import replaces the stored network with g.
func (p *Pipeline) Import(ctx context.Context, g *network.Graph) error {
	ctx, span := observability.StartImportSpan(ctx, p.backend, g.NodeCount(), g.EdgeCount())
	defer span.End()

	start := time.Now()
	err := p.store.Import(ctx, g)
	p.metrics.ObserveImport(p.backend, time.Since(start), err)
	if err != nil {
		observability.RecordError(span, err)
		return fmt.Errorf("import into %s: %w", p.backend, err)
	}
	slog.Info("Road network imported",
		"backend", p.backend,
		"intersections", g.NodeCount(),
		"roads", g.EdgeCount(),
		"duration", time.Since(start),
	)
	return nil
}

// Analyze computes the report from the stored network and publishes its
// figures to the collectors.
func (p *Pipeline) Analyze(ctx context.Context, topK int) (*metrics.Report, error) {
	start := time.Now()
	rep, err := metrics.NewEngine(metrics.WithTopK(topK)).Compute(ctx, p.store)
	p.metrics.ObserveCompute(time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	rep.Publish(p.metrics)
	return rep, nil
}

// Run loads path, imports it and analyzes the result. The load completes
// before anything touches the store, so invalid input leaves it untouched.
func (p *Pipeline) Run(ctx context.Context, path string, topK int) (*metrics.Report, error) {
	g, err := Load(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := p.Import(ctx, g); err != nil {
		return nil, err
	}
	return p.Analyze(ctx, topK)
}

// SaveReport writes the HTML and JSON renderings of rep into dir and
// returns the HTML path.
func SaveReport(ctx context.Context, dir string, rep *metrics.Report) (string, error) {
	_, span := observability.StartReportSpan(ctx, "html", dir)
	defer span.End()

	path, err := report.Save(dir, rep)
	if err != nil {
		observability.RecordError(span, err)
		return "", err
	}
	slog.Info("Dashboard saved", "path", path)
	return path, nil
}
