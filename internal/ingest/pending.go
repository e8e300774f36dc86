package ingest

import (
	"context"
	"fmt"

	"coursekb/internal/models"
)

// ListPending returns up to limit ids of kind still waiting for embeddings, oldest first.
func (s *Service) ListPending(ctx context.Context, kind models.Kind, limit int) ([]string, error) {
	switch kind {
	case models.KindCourse:
		return s.courses.ListPending(ctx, limit)
	case models.KindDocument:
		return s.documents.ListPending(ctx, limit)
	case models.KindQuestion:
		return s.questions.ListPending(ctx, limit)
	}
	return nil, fmt.Errorf("unknown entity kind %q", kind)
}

// EmbedPending runs the embedding phase for one entity. It is idempotent:
// ready entities are skipped and entities whose embeddings were stored before
// a failed status update are only marked ready.
func (s *Service) EmbedPending(ctx context.Context, kind models.Kind, id string) (models.EmbeddingStatus, error) {
	switch kind {
	case models.KindCourse:
		c, err := s.courses.Get(ctx, id)
		if err != nil {
			return "", err
		}
		if c.EmbeddingStatus == models.EmbeddingReady {
			return models.EmbeddingReady, nil
		}
		return s.finishPending(ctx, kind, id, s.courses.SetEmbeddingStatus, func() error { return s.embedCourse(ctx, c) })
	case models.KindDocument:
		d, err := s.documents.Get(ctx, id)
		if err != nil {
			return "", err
		}
		if d.EmbeddingStatus == models.EmbeddingReady {
			return models.EmbeddingReady, nil
		}
		return s.finishPending(ctx, kind, id, s.documents.SetEmbeddingStatus, func() error {
			_, err := s.embedDocument(ctx, d)
			return err
		})
	case models.KindQuestion:
		q, err := s.questions.Get(ctx, id)
		if err != nil {
			return "", err
		}
		if q.EmbeddingStatus == models.EmbeddingReady {
			return models.EmbeddingReady, nil
		}
		return s.finishPending(ctx, kind, id, s.questions.SetEmbeddingStatus, func() error { return s.embedQuestion(ctx, q) })
	}
	return "", fmt.Errorf("unknown entity kind %q", kind)
}

type statusSetter func(ctx context.Context, id string, status models.EmbeddingStatus) error

func (s *Service) finishPending(ctx context.Context, kind models.Kind, id string, setStatus statusSetter, embed func() error) (models.EmbeddingStatus, error) {
	n, err := s.vectors.Count(ctx, kind, id)
	if err != nil {
		return models.EmbeddingPending, err
	}
	if n > 0 {
		if err := setStatus(ctx, id, models.EmbeddingReady); err != nil {
			return models.EmbeddingPending, err
		}
		return models.EmbeddingReady, nil
	}
	if err := embed(); err != nil {
		return models.EmbeddingPending, fmt.Errorf("embed %s %s: %w", kind, id, err)
	}
	return models.EmbeddingReady, nil
}
