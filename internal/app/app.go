// Package app wires the storage, provider and service layers shared by the
// API server and the backfill worker.
package app

import (
	"context"
	"fmt"
	"time"

	"coursekb/internal/blobstore"
	"coursekb/internal/config"
	"coursekb/internal/extract"
	"coursekb/internal/ingest"
	"coursekb/internal/providers"
	"coursekb/internal/retrieval"
	"coursekb/internal/storage"
	"coursekb/internal/vector"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Dependencies struct {
	Config    config.Config
	Logger    *zap.Logger
	DB        *storage.DB
	Providers *providers.Manager
	Ingest    *ingest.Service
	Retrieval *retrieval.Service
}

func NewDependencies(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Dependencies, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	db, err := storage.NewDB(dbCtx, cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	audit := storage.NewLLMAuditRepo(db.Pool)
	pm, err := providers.NewManager(cfg,
		providers.WithLogger(logger),
		providers.WithRecorder(auditRecorder(audit, logger)),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize providers: %w", err)
	}

	blobs, err := blobstore.NewLocal(cfg.BlobRoot, cfg.PublicBaseURL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize blob store: %w", err)
	}
	vectors := vector.NewStore(db.Pool)

	ing, err := ingest.NewService(ingest.Deps{
		Courses:   storage.NewCourseRepo(db.Pool),
		Documents: storage.NewDocumentRepo(db.Pool),
		Questions: storage.NewQuestionRepo(db.Pool),
		Vectors:   vectors,
		Embedder:  pm,
		Blobs:     blobs,
		Extractor: extract.New(logger),
		Logger:    logger,
	}, ingest.Options{
		ChunkSize:         cfg.ChunkSize,
		ChunkOverlap:      cfg.ChunkOverlap,
		MaxUploadBytes:    cfg.MaxUploadBytes,
		ImportConcurrency: cfg.ImportConcurrency,
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	ret, err := retrieval.NewService(pm, pm, vectors, retrieval.Options{
		CacheSize: cfg.QueryCacheSize,
		MaxLimit:  cfg.SearchMaxLimit,
		Logger:    logger,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("dependencies initialized",
		zap.String("llm_providers", cfg.LLMProviders),
		zap.String("embed_providers", cfg.EmbedProviders),
		zap.Int("embed_dim", pm.EmbedDim()),
		zap.Int("chunk_size", cfg.ChunkSize),
		zap.Int("chunk_overlap", cfg.ChunkOverlap),
	)
	return &Dependencies{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Providers: pm,
		Ingest:    ing,
		Retrieval: ret,
	}, nil
}

func (d *Dependencies) Close() {
	d.DB.Close()
}

// auditRecorder persists provider calls. Audit failures are logged and never
// fail the call being audited.
func auditRecorder(repo *storage.LLMAuditRepo, logger *zap.Logger) providers.CallRecorder {
	return func(ctx context.Context, rec providers.CallRecord) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		err := repo.Insert(ctx, storage.LLMCallRecord{
			Operation:    rec.Operation,
			ProviderName: rec.Provider,
			Model:        rec.Model,
			RequestID:    middleware.GetReqID(ctx),
			Status:       rec.Status,
			ErrorType:    string(rec.ErrorType),
			DurationMS:   rec.Duration.Milliseconds(),
		})
		if err != nil {
			logger.Warn("record llm call", zap.String("operation", rec.Operation), zap.Error(err))
		}
	}
}
