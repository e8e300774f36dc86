// Package api exposes the course catalog and search over HTTP.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"coursekb/internal/config"
	"coursekb/internal/ingest"
	"coursekb/internal/models"
	"coursekb/internal/retrieval"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Catalog interface {
	CreateCourse(ctx context.Context, in ingest.CourseInput) (models.Course, error)
	ListCourses(ctx context.Context) ([]models.Course, error)
	UploadDocument(ctx context.Context, in ingest.UploadInput) (models.Document, error)
	ListDocuments(ctx context.Context, courseID string) ([]models.Document, error)
	CreateQuestion(ctx context.Context, courseID string, in ingest.QuestionInput) (models.ExamQuestion, error)
	ImportQuestions(ctx context.Context, courseID string, in []ingest.QuestionInput) (ingest.ImportResult, error)
	ListQuestions(ctx context.Context, courseID string) ([]models.ExamQuestion, error)
}

type Searcher interface {
	Search(ctx context.Context, q retrieval.Query) (retrieval.Answer, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	cfg      config.Config
	catalog  Catalog
	searcher Searcher
	db       Pinger
	logger   *zap.Logger
}

// NewServer wires handlers over already constructed services. db may be nil,
// in which case /healthz does not probe the database.
func NewServer(cfg config.Config, catalog Catalog, searcher Searcher, db Pinger, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{cfg: cfg, catalog: catalog, searcher: searcher, db: db, logger: logger}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealthz)
	if s.cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Handle("/files/*", http.StripPrefix("/files/", blobFiles(s.cfg.BlobRoot)))

	r.Route("/api", func(r chi.Router) {
		r.Route("/courses", func(r chi.Router) {
			r.Get("/", s.handleListCourses)
			r.Post("/", s.handleCreateCourse)
			r.Route("/{courseId}", func(r chi.Router) {
				r.Get("/documents", s.handleListDocuments)
				r.Post("/documents", s.handleUploadDocument)
				r.Get("/questions", s.handleListQuestions)
				r.Post("/questions", s.handleCreateQuestion)
				r.Put("/questions", s.handleImportQuestions)
			})
		})
		r.Post("/search", s.handleSearch)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Endpoint not found.", Code: "CK-API-4004"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "This endpoint does not support the requested method.", Code: "CK-API-4005"})
	})
	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			s.logger.Warn("health check database ping failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// blobFiles serves stored uploads read-only and hides their metadata sidecars.
func blobFiles(root string) http.Handler {
	fs := http.FileServer(http.Dir(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".meta.json") || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}
