package temporal

import (
	"fmt"
	"time"

	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const maxAttempts = 3

// RoadNetworkInput holds the workflow parameters.
type RoadNetworkInput struct {
	EdgeListPath string
	ExportDir    string
	ReportDir    string // optional; empty keeps the report in the result only
	TopK         int
}

// RoadNetworkOutput holds the workflow result.
type RoadNetworkOutput struct {
	Nodes      int
	Edges      int
	ReportJSON string
	ReportPath string
}

// RoadNetworkWorkflow parses the edge list, imports it into the graph store
// and analyzes it, strictly in that order.
func RoadNetworkWorkflow(ctx workflow.Context, input RoadNetworkInput) (*RoadNetworkOutput, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		RetryPolicy: &sdktemporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    maxAttempts,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	logger := workflow.GetLogger(ctx)

	var parsed ParseResult
	if err := workflow.ExecuteActivity(ctx, ParseActivity, input).Get(ctx, &parsed); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	logger.Info("Parsed road network", "intersections", parsed.Nodes, "roads", parsed.Edges)

	var imported ImportResult
	if err := workflow.ExecuteActivity(ctx, ImportActivity, parsed.ExportDir).Get(ctx, &imported); err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}

	var analyzed AnalyzeResult
	if err := workflow.ExecuteActivity(ctx, AnalyzeActivity, input).Get(ctx, &analyzed); err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	return &RoadNetworkOutput{
		Nodes:      imported.Nodes,
		Edges:      imported.Edges,
		ReportJSON: analyzed.ReportJSON,
		ReportPath: analyzed.ReportPath,
	}, nil
}
