package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"coursekb/internal/ingest"
	"coursekb/internal/models"
	"coursekb/internal/retrieval"
	"coursekb/internal/util"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// multipartSlack covers multipart framing around the file part.
const multipartSlack = 1 << 20

type importQuestionsRequest struct {
	Questions []ingest.QuestionInput `json:"questions" validate:"required"`
}

type searchRequest struct {
	Query      string `json:"query" validate:"required"`
	SearchType string `json:"searchType" validate:"omitempty,oneof=all documents questions"`
	Limit      int    `json:"limit" validate:"gte=0"`
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return util.NewValidationError("body", "invalid JSON")
	}
	return nil
}

func courseIDParam(r *http.Request) (string, error) {
	id := chi.URLParam(r, "courseId")
	if _, err := uuid.Parse(id); err != nil {
		return "", util.NewValidationError("courseId", "must be a valid UUID")
	}
	return id, nil
}

func statusFor(st models.EmbeddingStatus) int {
	if st == models.EmbeddingPending {
		return http.StatusAccepted
	}
	return http.StatusCreated
}

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := s.catalog.ListCourses(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, courses)
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var req ingest.CourseInput
	if err := decodeJSON(r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	c, err := s.catalog.CreateCourse(r.Context(), req)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, statusFor(c.EmbeddingStatus), c)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	courseID, err := courseIDParam(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	docs, err := s.catalog.ListDocuments(r.Context(), courseID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	courseID, err := courseIDParam(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+multipartSlack)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeErr(w, r, err)
			return
		}
		s.writeErr(w, r, util.NewValidationError("file", "multipart form with a file field is required"))
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}
	f, fh, err := r.FormFile("file")
	if err != nil {
		s.writeErr(w, r, util.NewValidationError("file", "no file provided"))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		s.writeErr(w, r, fmt.Errorf("read uploaded file: %w", err))
		return
	}

	doc, err := s.catalog.UploadDocument(r.Context(), ingest.UploadInput{
		CourseID:    courseID,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Data:        data,
	})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	msg := "Document uploaded and processed successfully"
	if doc.EmbeddingStatus == models.EmbeddingPending {
		msg = "Document uploaded; embedding is pending and will be retried"
	}
	writeJSON(w, statusFor(doc.EmbeddingStatus), map[string]any{"message": msg, "document": doc})
}

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	courseID, err := courseIDParam(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	qs, err := s.catalog.ListQuestions(r.Context(), courseID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, qs)
}

func (s *Server) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	courseID, err := courseIDParam(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	var req ingest.QuestionInput
	if err := decodeJSON(r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	q, err := s.catalog.CreateQuestion(r.Context(), courseID, req)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, statusFor(q.EmbeddingStatus), q)
}

func (s *Server) handleImportQuestions(w http.ResponseWriter, r *http.Request) {
	courseID, err := courseIDParam(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	var req importQuestionsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	if err := util.ValidateStruct(req, ""); err != nil {
		s.writeErr(w, r, err)
		return
	}
	res, err := s.catalog.ImportQuestions(r.Context(), courseID, req.Questions)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Questions imported successfully",
		"count":   len(res.Questions),
		"pending": res.Pending,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	if err := util.ValidateStruct(req, ""); err != nil {
		s.writeErr(w, r, err)
		return
	}
	ans, err := s.searcher.Search(r.Context(), retrieval.Query{Text: req.Query, Scope: req.SearchType, Limit: req.Limit})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ans)
}
