package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"coursekb/internal/extract"
	"coursekb/internal/providers"
	"coursekb/internal/util"

	"go.uber.org/zap"
)

type errorBody struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

type apiError struct {
	Status  int
	Code    string
	Message string
	Details map[string]string
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps err onto a status and a generic message. The underlying
// cause is logged and never echoed to the client.
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := toAPIError(err)
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", apiErr.Status),
		zap.String("code", apiErr.Code),
		zap.Error(err),
	}
	if apiErr.Status >= 500 {
		s.logger.Error("request failed", fields...)
	} else {
		s.logger.Info("request rejected", fields...)
	}
	writeJSON(w, apiErr.Status, errorBody{Error: apiErr.Message, Code: apiErr.Code, Details: apiErr.Details})
}

func toAPIError(err error) apiError {
	var (
		ve       *util.ValidationError
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.As(err, &ve):
		return apiError{Status: http.StatusBadRequest, Code: "CK-API-4001", Message: "Invalid request. Check inputs and retry.", Details: ve.Fields}
	case errors.Is(err, util.ErrValidation):
		return apiError{Status: http.StatusBadRequest, Code: "CK-API-4001", Message: "Invalid request. Check inputs and retry."}
	case errors.As(err, &tooLarge):
		return apiError{Status: http.StatusBadRequest, Code: "CK-API-4013", Message: "File size exceeds limit.",
			Details: map[string]string{"size": "request body exceeds the upload limit"}}
	case errors.Is(err, util.ErrNotFound):
		return apiError{Status: http.StatusNotFound, Code: "CK-API-4004", Message: "Requested resource was not found."}
	case errors.Is(err, extract.ErrExtractionFailed), errors.Is(err, extract.ErrUnsupportedFileType):
		return apiError{Status: http.StatusInternalServerError, Code: "CK-EXT-5001", Message: "Failed to process document."}
	case errors.Is(err, providers.ErrEmbeddingUnavailable):
		return apiError{Status: http.StatusInternalServerError, Code: "CK-EMB-5001", Message: "Embedding service unavailable. Please retry."}
	case errors.Is(err, providers.ErrGenerationFailed):
		return apiError{Status: http.StatusInternalServerError, Code: "CK-LLM-5001", Message: "Failed to generate an answer. Please retry."}
	}

	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}
	switch {
	case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
		return apiError{Status: http.StatusInternalServerError, Code: "CK-DB-5001", Message: "Database schema is not initialized. Run migrations and retry."}
	case strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"), strings.Contains(raw, "failed to connect"):
		return apiError{Status: http.StatusInternalServerError, Code: "CK-DB-5002", Message: "Database connection is unavailable. Check local services and retry."}
	}
	return apiError{Status: http.StatusInternalServerError, Code: "CK-API-5000", Message: "Internal server error. Please retry or check service logs."}
}
