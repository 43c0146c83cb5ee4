package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	// TaskQueue is the default queue the reprocessor worker listens on.
	TaskQueue        = "reprocess-queue"
	defaultBatchSize = 10
	defaultLimit     = 1000
)

// ReprocessInput is the input for the reprocessing workflow.
type ReprocessInput struct {
	// Limit caps how many archived activities are considered.
	Limit int
	// BatchSize is how many rebuilds run at once.
	BatchSize int
}

// ReprocessSummary reports what a reprocessing run did.
type ReprocessSummary struct {
	Considered int      `json:"considered"`
	Rebuilt    int      `json:"rebuilt"`
	Failed     []string `json:"failed,omitempty"`
}

// ReprocessWorkflow rebuilds archived activities in batches. A failed
// rebuild is recorded and never stops the run.
func ReprocessWorkflow(ctx workflow.Context, input ReprocessInput) (ReprocessSummary, error) {
	logger := workflow.GetLogger(ctx)

	if input.Limit <= 0 {
		input.Limit = defaultLimit
	}
	if input.BatchSize <= 0 {
		input.BatchSize = defaultBatchSize
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{errRebuildRejected},
		},
	})

	var summary ReprocessSummary

	var ids []string
	if err := workflow.ExecuteActivity(ctx, ActivityListArchived, input.Limit).Get(ctx, &ids); err != nil {
		return summary, err
	}
	summary.Considered = len(ids)
	logger.Info("Starting reprocessing", "activities", len(ids), "batchSize", input.BatchSize)

	for start := 0; start < len(ids); start += input.BatchSize {
		batch := ids[start:min(start+input.BatchSize, len(ids))]

		futures := make([]workflow.Future, len(batch))
		for i, id := range batch {
			futures[i] = workflow.ExecuteActivity(ctx, ActivityRebuild, id)
		}
		for i, f := range futures {
			var r RebuildResult
			if err := f.Get(ctx, &r); err != nil {
				logger.Warn("rebuild failed", "activity_id", batch[i], "error", err)
				summary.Failed = append(summary.Failed, batch[i])
				continue
			}
			summary.Rebuilt++
		}
	}

	logger.Info("Reprocessing finished", "rebuilt", summary.Rebuilt, "failed", len(summary.Failed))
	return summary, nil
}
