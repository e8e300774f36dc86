// Package vector stores embedding records in pgvector tables and answers
// nearest-neighbour queries over them.
package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"coursekb/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store is append-only: records are never updated or deleted here.
type Store struct {
	q   Querier
	now func() time.Time
}

func NewStore(q Querier) *Store {
	return &Store{q: q, now: func() time.Time { return time.Now().UTC() }}
}

type table struct {
	name     string
	ownerCol string
}

var tables = map[models.Kind]table{
	models.KindCourse:   {name: "course_embeddings", ownerCol: "course_id"},
	models.KindDocument: {name: "document_embeddings", ownerCol: "document_id"},
	models.KindQuestion: {name: "question_embeddings", ownerCol: "question_id"},
}

func tableFor(kind models.Kind) (table, error) {
	t, ok := tables[kind]
	if !ok {
		return table{}, fmt.Errorf("unknown embedding kind %q", kind)
	}
	return t, nil
}

// Insert stores rec under a fresh id and the current time and returns the stored record.
func (s *Store) Insert(ctx context.Context, rec models.EmbeddingRecord) (models.EmbeddingRecord, error) {
	rec, err := s.insert(ctx, s.q, rec)
	if err != nil {
		return models.EmbeddingRecord{}, err
	}
	return rec, nil
}

// InsertBatch stores all records in one transaction, so a document's chunk
// sequence is either fully present or absent.
func (s *Store) InsertBatch(ctx context.Context, recs []models.EmbeddingRecord) ([]models.EmbeddingRecord, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	tx, err := s.q.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx insert embeddings: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	out := make([]models.EmbeddingRecord, 0, len(recs))
	for _, rec := range recs {
		stored, err := s.insert(ctx, tx, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, stored)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit embeddings tx: %w", err)
	}
	return out, nil
}

func (s *Store) insert(ctx context.Context, ex execer, rec models.EmbeddingRecord) (models.EmbeddingRecord, error) {
	t, err := tableFor(rec.Kind)
	if err != nil {
		return models.EmbeddingRecord{}, err
	}
	if len(rec.Vector) == 0 {
		return models.EmbeddingRecord{}, fmt.Errorf("insert %s embedding: empty vector", rec.Kind)
	}
	var meta []byte
	if rec.Metadata != nil {
		if meta, err = json.Marshal(rec.Metadata); err != nil {
			return models.EmbeddingRecord{}, fmt.Errorf("encode embedding metadata: %w", err)
		}
	}
	rec.ID = uuid.NewString()
	rec.CreatedAt = s.now()
	vec := pgvector.NewVector(rec.Vector)

	if rec.Kind == models.KindDocument {
		_, err = ex.Exec(ctx, `
INSERT INTO document_embeddings (id, document_id, ordinal, content, embedding, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			rec.ID, rec.OwnerID, rec.Ordinal, rec.Content, vec, meta, rec.CreatedAt)
	} else {
		_, err = ex.Exec(ctx, `
INSERT INTO `+t.name+` (id, `+t.ownerCol+`, content, embedding, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
			rec.ID, rec.OwnerID, rec.Content, vec, meta, rec.CreatedAt)
	}
	if err != nil {
		return models.EmbeddingRecord{}, fmt.Errorf("insert %s embedding: %w", rec.Kind, err)
	}
	return rec, nil
}

// Count returns how many records of kind reference ownerID.
func (s *Store) Count(ctx context.Context, kind models.Kind, ownerID string) (int, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.q.QueryRow(ctx, `SELECT COUNT(*) FROM `+t.name+` WHERE `+t.ownerCol+` = $1`, ownerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s embeddings: %w", kind, err)
	}
	return int(n), nil
}
