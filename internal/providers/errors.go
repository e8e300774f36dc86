package providers

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
	ErrGenerationFailed     = errors.New("generation failed")
)

type ErrorType string

const (
	ErrorQuota     ErrorType = "quota"
	ErrorRate      ErrorType = "rate"
	ErrorTransient ErrorType = "transient"
	ErrorPermanent ErrorType = "permanent"
	ErrorContext   ErrorType = "context"
	ErrorCanceled  ErrorType = "canceled"
)

// ClassifyError buckets a provider error for metrics and audit rows.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorCanceled
	}
	e := strings.ToLower(err.Error())
	switch {
	case strings.Contains(e, "context canceled"), strings.Contains(e, "context deadline exceeded"):
		return ErrorCanceled
	case strings.Contains(e, "quota"), strings.Contains(e, "credit"), strings.Contains(e, "insufficient_quota"):
		return ErrorQuota
	case strings.Contains(e, "rate"), strings.Contains(e, "429"):
		return ErrorRate
	case strings.Contains(e, "context"), strings.Contains(e, "too long"), strings.Contains(e, "maximum context"):
		return ErrorContext
	case strings.Contains(e, "timeout"), strings.Contains(e, "temporarily"), strings.Contains(e, "unavailable"),
		strings.Contains(e, "502"), strings.Contains(e, "503"), strings.Contains(e, "connection refused"):
		return ErrorTransient
	default:
		return ErrorPermanent
	}
}
