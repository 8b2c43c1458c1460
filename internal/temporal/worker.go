package temporal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// StartWorker creates and starts a Temporal worker.
func StartWorker(c client.Client, taskQueue string) (worker.Worker, error) {
	w := worker.New(c, taskQueue, worker.Options{})

	w.RegisterWorkflow(RoadNetworkWorkflow)
	w.RegisterActivity(ParseActivity)
	w.RegisterActivity(ImportActivity)
	w.RegisterActivity(AnalyzeActivity)

	if err := w.Start(); err != nil {
		return nil, fmt.Errorf("starting worker: %w", err)
	}
	return w, nil
}

// Submit starts a RoadNetworkWorkflow under a fresh workflow id.
func Submit(ctx context.Context, c client.Client, taskQueue string, input RoadNetworkInput) (client.WorkflowRun, error) {
	opts := client.StartWorkflowOptions{
		ID:        "roadnet-" + uuid.NewString(),
		TaskQueue: taskQueue,
	}
	run, err := c.ExecuteWorkflow(ctx, opts, RoadNetworkWorkflow, input)
	if err != nil {
		return nil, fmt.Errorf("start workflow: %w", err)
	}
	return run, nil
}
