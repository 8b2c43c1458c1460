package temporal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sdktemporal "go.temporal.io/sdk/temporal"

	"github.com/efebarandurmaz/roadnet/internal/ingest"
	"github.com/efebarandurmaz/roadnet/internal/metrics"
	"github.com/efebarandurmaz/roadnet/internal/network"
	"github.com/efebarandurmaz/roadnet/internal/pipeline"
	"github.com/efebarandurmaz/roadnet/internal/tabular"
)

// Error types that stop the workflow without retries.
const (
	ErrTypeInvalidInput    = "InvalidInput"
	ErrTypeNotConfigured   = "NotConfigured"
	ErrTypeInvalidArgument = "InvalidArgument"
)

// ParseResult is the outcome of ParseActivity.
type ParseResult struct {
	ExportDir string
	Nodes     int
	Edges     int
}

// ImportResult is the outcome of ImportActivity.
type ImportResult struct {
	Nodes int
	Edges int
}

// AnalyzeResult carries the report between the analyze step and the caller.
type AnalyzeResult struct {
	Summary    metrics.Summary
	ReportJSON string
	ReportPath string
}

// Dependencies holds shared resources injected into activities.
type Dependencies struct {
	Pipeline *pipeline.Pipeline
}

var deps *Dependencies

// SetDependencies injects shared resources (called during worker setup).
func SetDependencies(d *Dependencies) {
	deps = d
}

func requirePipeline() (*pipeline.Pipeline, error) {
	if deps == nil || deps.Pipeline == nil {
		return nil, sdktemporal.NewNonRetryableApplicationError("worker dependencies not set", ErrTypeNotConfigured, nil)
	}
	return deps.Pipeline, nil
}

// classify marks input errors as non-retryable; retrying cannot fix a bad file.
func classify(err error) error {
	switch {
	case errors.Is(err, ingest.ErrMalformedInput), errors.Is(err, network.ErrDanglingEdge),
		errors.Is(err, tabular.ErrBadTable):
		return sdktemporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidInput, err)
	case errors.Is(err, metrics.ErrInvalidArgument):
		return sdktemporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidArgument, err)
	}
	return err
}

// ParseActivity reads the edge list and writes the tabular export.
func ParseActivity(ctx context.Context, input RoadNetworkInput) (ParseResult, error) {
	g, err := pipeline.Load(ctx, input.EdgeListPath)
	if err != nil {
		return ParseResult{}, classify(err)
	}
	if err := pipeline.Export(ctx, input.ExportDir, g); err != nil {
		return ParseResult{}, fmt.Errorf("export: %w", err)
	}
	return ParseResult{ExportDir: input.ExportDir, Nodes: g.NodeCount(), Edges: g.EdgeCount()}, nil
}

// ImportActivity loads the tabular export into the graph store.
func ImportActivity(ctx context.Context, exportDir string) (ImportResult, error) {
	p, err := requirePipeline()
	if err != nil {
		return ImportResult{}, err
	}
	g, err := pipeline.Load(ctx, exportDir)
	if err != nil {
		return ImportResult{}, classify(err)
	}
	if err := p.Import(ctx, g); err != nil {
		return ImportResult{}, err
	}
	return ImportResult{Nodes: g.NodeCount(), Edges: g.EdgeCount()}, nil
}

// AnalyzeActivity computes the report from the store and, when a report
// directory is given, saves the HTML and JSON renderings there.
func AnalyzeActivity(ctx context.Context, input RoadNetworkInput) (AnalyzeResult, error) {
	p, err := requirePipeline()
	if err != nil {
		return AnalyzeResult{}, err
	}
	rep, err := p.Analyze(ctx, input.TopK)
	if err != nil {
		return AnalyzeResult{}, classify(err)
	}
	data, err := rep.JSON()
	if err != nil {
		return AnalyzeResult{}, fmt.Errorf("marshal report: %w", err)
	}

	out := AnalyzeResult{Summary: rep.Summary, ReportJSON: string(data)}
	if input.ReportDir != "" {
		path, err := pipeline.SaveReport(ctx, input.ReportDir, rep)
		if err != nil {
			return AnalyzeResult{}, err
		}
		out.ReportPath = path
	}
	slog.Info("Analysis finished", "intersections", rep.Summary.TotalNodes, "report", out.ReportPath)
	return out, nil
}
