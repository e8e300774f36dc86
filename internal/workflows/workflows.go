package workflows

import (
	"time"

	"coursekb/internal/activities"
	"coursekb/internal/models"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const QueryGetProgress = "GetProgress"

var defaultKinds = []string{string(models.KindCourse), string(models.KindDocument), string(models.KindQuestion)}

// EmbeddingBackfillWorkflow finishes the embedding phase for entities left
// pending by the request path. Each kind is listed once and its entities are
// embedded in windows of MaxConcurrent activities; retries with backoff happen
// per activity.
func EmbeddingBackfillWorkflow(ctx workflow.Context, input BackfillInput) (BackfillProgress, error) {
	progress := BackfillProgress{PerKind: map[string]KindProgress{}, Failures: map[string]string{}}
	if err := workflow.SetQueryHandler(ctx, QueryGetProgress, func() (BackfillProgress, error) {
		return progress, nil
	}); err != nil {
		return progress, err
	}

	kinds := input.Kinds
	if len(kinds) == 0 {
		kinds = defaultKinds
	}
	batch := input.BatchSize
	if batch <= 0 {
		batch = 100
	}
	window := input.MaxConcurrent
	if window <= 0 {
		window = 4
	}

	listCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    3,
		},
	})
	embedCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        2 * time.Second,
			BackoffCoefficient:     2,
			MaximumInterval:        time.Minute,
			MaximumAttempts:        5,
			NonRetryableErrorTypes: []string{"InvalidKind", "NotFound"},
		},
	})

	for _, kind := range kinds {
		var listed activities.ListPendingOutput
		if err := workflow.ExecuteActivity(listCtx, "ListPendingActivity", activities.ListPendingInput{Kind: kind, Limit: batch}).Get(ctx, &listed); err != nil {
			return progress, err
		}
		kp := KindProgress{Pending: len(listed.IDs)}
		progress.PerKind[kind] = kp
		progress.Total += len(listed.IDs)

		for i := 0; i < len(listed.IDs); i += window {
			end := i + window
			if end > len(listed.IDs) {
				end = len(listed.IDs)
			}
			ids := listed.IDs[i:end]
			futures := make([]workflow.Future, 0, len(ids))
			for _, id := range ids {
				futures = append(futures, workflow.ExecuteActivity(embedCtx, "EmbedEntityActivity", activities.EmbedEntityInput{Kind: kind, ID: id}))
			}
			for idx, f := range futures {
				var out activities.EmbedEntityOutput
				if err := f.Get(ctx, &out); err != nil {
					kp.Failed++
					progress.Failed++
					progress.Failures[kind+"/"+ids[idx]] = err.Error()
				} else {
					kp.Done++
					progress.Done++
				}
				kp.Pending--
				progress.PerKind[kind] = kp
			}
		}
	}

	workflow.GetLogger(ctx).Info("embedding backfill finished",
		"total", progress.Total, "done", progress.Done, "failed", progress.Failed)
	return progress, nil
}
