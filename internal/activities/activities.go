package activities

import (
	"context"
	"errors"
	"fmt"

	"coursekb/internal/models"
	"coursekb/internal/util"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"
)

// PendingEmbedder is the part of the ingest service the backfill needs.
type PendingEmbedder interface {
	ListPending(ctx context.Context, kind models.Kind, limit int) ([]string, error)
	EmbedPending(ctx context.Context, kind models.Kind, id string) (models.EmbeddingStatus, error)
}

type Activities struct {
	svc    PendingEmbedder
	logger *zap.Logger
}

func New(svc PendingEmbedder, logger *zap.Logger) *Activities {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Activities{svc: svc, logger: logger}
}

func parseKind(s string) (models.Kind, error) {
	kind, ok := models.ParseKind(s)
	if !ok {
		return "", temporal.NewNonRetryableApplicationError(fmt.Sprintf("unknown entity kind %q", s), "InvalidKind", nil)
	}
	return kind, nil
}

func (a *Activities) ListPendingActivity(ctx context.Context, in ListPendingInput) (ListPendingOutput, error) {
	kind, err := parseKind(in.Kind)
	if err != nil {
		return ListPendingOutput{}, err
	}
	ids, err := a.svc.ListPending(ctx, kind, in.Limit)
	if err != nil {
		return ListPendingOutput{}, err
	}
	return ListPendingOutput{IDs: ids}, nil
}

// EmbedEntityActivity retries the embedding phase of one entity. Entities
// deleted since they were listed fail without retry.
func (a *Activities) EmbedEntityActivity(ctx context.Context, in EmbedEntityInput) (EmbedEntityOutput, error) {
	kind, err := parseKind(in.Kind)
	if err != nil {
		return EmbedEntityOutput{}, err
	}
	st, err := a.svc.EmbedPending(ctx, kind, in.ID)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return EmbedEntityOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), "NotFound", err)
		}
		a.logger.Warn("embedding retry failed",
			zap.String("kind", in.Kind),
			zap.String("id", in.ID),
			zap.Int32("attempt", activity.GetInfo(ctx).Attempt),
			zap.Error(err),
		)
		return EmbedEntityOutput{}, err
	}
	return EmbedEntityOutput{Status: string(st)}, nil
}
