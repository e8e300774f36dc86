package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"coursekb/internal/models"
	"coursekb/internal/workflows"

	"github.com/spf13/cobra"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"
)

type backfillFlags struct {
	kinds         []string
	batch         int
	maxConcurrent int
	wait          bool
}

func newBackfillCmd(c *cli) *cobra.Command {
	f := &backfillFlags{}
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Start the embedding backfill workflow",
		Long: `Starts EmbeddingBackfillWorkflow on the configured task queue. The worker
lists pending courses, documents and questions and retries their embedding
with backoff. Only one backfill runs at a time.

Examples:
  coursekb-ctl backfill
  coursekb-ctl backfill --kinds document,question --batch 500 --wait`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := f.input()
			if err != nil {
				return err
			}
			tc, err := client.Dial(client.Options{HostPort: c.cfg.TemporalAddress})
			if err != nil {
				return fmt.Errorf("dial temporal: %w", err)
			}
			defer tc.Close()

			we, err := tc.ExecuteWorkflow(cmd.Context(), client.StartWorkflowOptions{
				ID:                                       "embedding-backfill",
				TaskQueue:                                c.cfg.TemporalTaskQueue,
				WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
				WorkflowExecutionErrorWhenAlreadyStarted: true,
				WorkflowExecutionTimeout:                 6 * time.Hour,
			}, workflows.EmbeddingBackfillWorkflow, in)
			if err != nil {
				return fmt.Errorf("start backfill: %w", err)
			}
			c.logger.Info("backfill started", zap.String("workflow_id", we.GetID()), zap.String("run_id", we.GetRunID()))
			if !f.wait {
				return nil
			}
			var progress workflows.BackfillProgress
			if err := we.Get(cmd.Context(), &progress); err != nil {
				return fmt.Errorf("backfill failed: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(progress)
		},
	}
	cmd.Flags().StringSliceVar(&f.kinds, "kinds", nil, "entity kinds to backfill: course, document, question (default all)")
	cmd.Flags().IntVar(&f.batch, "batch", 100, "maximum pending entities listed per kind")
	cmd.Flags().IntVar(&f.maxConcurrent, "max-concurrent", 4, "embedding activities in flight at once")
	cmd.Flags().BoolVar(&f.wait, "wait", false, "wait for the workflow and print its progress")
	return cmd
}

func (f *backfillFlags) input() (workflows.BackfillInput, error) {
	kinds := make([]string, 0, len(f.kinds))
	for _, k := range f.kinds {
		k = strings.ToLower(strings.TrimSpace(k))
		if _, ok := models.ParseKind(k); !ok {
			return workflows.BackfillInput{}, fmt.Errorf("unknown kind %q", k)
		}
		kinds = append(kinds, k)
	}
	if f.batch <= 0 || f.maxConcurrent <= 0 {
		return workflows.BackfillInput{}, fmt.Errorf("--batch and --max-concurrent must be positive")
	}
	return workflows.BackfillInput{Kinds: kinds, BatchSize: f.batch, MaxConcurrent: f.maxConcurrent}, nil
}
