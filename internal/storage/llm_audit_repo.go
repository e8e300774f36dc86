package storage

import (
	"context"
	"fmt"
)

type LLMCallRecord struct {
	Operation    string
	ProviderName string
	Model        string
	RequestID    string
	Status       string
	ErrorType    string
	DurationMS   int64
}

// LLMAuditRepo appends one row per embedding or completion provider call.
type LLMAuditRepo struct {
	q Querier
}

func NewLLMAuditRepo(q Querier) *LLMAuditRepo {
	return &LLMAuditRepo{q: q}
}

func (r *LLMAuditRepo) Insert(ctx context.Context, rec LLMCallRecord) error {
	_, err := r.q.Exec(ctx, `
INSERT INTO llm_calls (operation, provider_name, model, request_id, status, error_type, duration_ms)
VALUES ($1, $2, $3, NULLIF($4,''), $5, NULLIF($6,''), $7)`,
		rec.Operation, rec.ProviderName, rec.Model, rec.RequestID, rec.Status, rec.ErrorType, rec.DurationMS)
	if err != nil {
		return fmt.Errorf("insert llm call: %w", err)
	}
	return nil
}
