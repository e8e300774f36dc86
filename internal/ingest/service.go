// Package ingest is the catalog write path. Every entity is written in two
// phases: the row is inserted as embedding-pending, then its embeddings are
// computed and stored and the row is marked ready. A failed second phase
// leaves the row pending for the backfill workflow to finish.
package ingest

import (
	"context"
	"fmt"
	"time"

	"coursekb/internal/metrics"
	"coursekb/internal/models"
	"coursekb/internal/util"

	"go.uber.org/zap"
)

type CourseStore interface {
	Create(ctx context.Context, c models.Course) error
	List(ctx context.Context) ([]models.Course, error)
	Get(ctx context.Context, id string) (models.Course, error)
	Exists(ctx context.Context, id string) (bool, error)
	SetEmbeddingStatus(ctx context.Context, id string, status models.EmbeddingStatus) error
	ListPending(ctx context.Context, limit int) ([]string, error)
}

type DocumentStore interface {
	Create(ctx context.Context, d models.Document) error
	ListByCourse(ctx context.Context, courseID string) ([]models.Document, error)
	Get(ctx context.Context, id string) (models.Document, error)
	UpdateMetadata(ctx context.Context, id string, meta models.DocumentMetadata) error
	SetEmbeddingStatus(ctx context.Context, id string, status models.EmbeddingStatus) error
	ListPending(ctx context.Context, limit int) ([]string, error)
}

type QuestionStore interface {
	Create(ctx context.Context, q models.ExamQuestion) error
	ListByCourse(ctx context.Context, courseID string) ([]models.ExamQuestion, error)
	Get(ctx context.Context, id string) (models.ExamQuestion, error)
	SetEmbeddingStatus(ctx context.Context, id string, status models.EmbeddingStatus) error
	ListPending(ctx context.Context, limit int) ([]string, error)
}

type VectorWriter interface {
	Insert(ctx context.Context, rec models.EmbeddingRecord) (models.EmbeddingRecord, error)
	InsertBatch(ctx context.Context, recs []models.EmbeddingRecord) ([]models.EmbeddingRecord, error)
	Count(ctx context.Context, kind models.Kind, ownerID string) (int, error)
}

type Embedder interface {
	EmbedText(ctx context.Context, op, text string) ([]float32, error)
}

type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

type TextExtractor interface {
	Extract(data []byte, fileType string) (string, error)
}

type Deps struct {
	Courses   CourseStore
	Documents DocumentStore
	Questions QuestionStore
	Vectors   VectorWriter
	Embedder  Embedder
	Blobs     BlobStore
	Extractor TextExtractor
	Logger    *zap.Logger
}

type Options struct {
	ChunkSize         int
	ChunkOverlap      int
	MaxUploadBytes    int64
	ImportConcurrency int
}

type Service struct {
	courses   CourseStore
	documents DocumentStore
	questions QuestionStore
	vectors   VectorWriter
	embedder  Embedder
	blobs     BlobStore
	extractor TextExtractor
	logger    *zap.Logger
	opts      Options
	now       func() time.Time
}

// NewService rejects a chunk configuration that could not make progress, so
// every call site chunks with the same validated settings.
func NewService(d Deps, opts Options) (*Service, error) {
	if err := util.ValidateChunking(opts.ChunkSize, opts.ChunkOverlap); err != nil {
		return nil, err
	}
	if opts.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("%w: max upload size must be positive", util.ErrConfiguration)
	}
	if opts.ImportConcurrency <= 0 {
		opts.ImportConcurrency = 1
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Service{
		courses:   d.Courses,
		documents: d.Documents,
		questions: d.Questions,
		vectors:   d.Vectors,
		embedder:  d.Embedder,
		blobs:     d.Blobs,
		extractor: d.Extractor,
		logger:    d.Logger,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *Service) requireCourse(ctx context.Context, id string) error {
	ok, err := s.courses.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("course %s: %w", id, util.ErrNotFound)
	}
	return nil
}

// leavePending logs a failed embedding phase. The entity keeps its pending status.
func (s *Service) leavePending(kind models.Kind, id string, err error) {
	metrics.EmbeddingsPending.WithLabelValues(string(kind)).Inc()
	s.logger.Warn("embedding deferred, entity left pending",
		zap.String("kind", string(kind)),
		zap.String("id", id),
		zap.Error(err),
	)
}
