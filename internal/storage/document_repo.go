package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"coursekb/internal/models"
)

type DocumentRepo struct {
	q Querier
}

func NewDocumentRepo(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

const documentColumns = `id::text, course_id::text, filename, file_type, file_url, content, metadata, embedding_status, created_at`

func (r *DocumentRepo) Create(ctx context.Context, d models.Document) error {
	meta, err := json.Marshal(d.Metadata)
	if err != nil {
		return fmt.Errorf("encode document metadata: %w", err)
	}
	_, err = r.q.Exec(ctx, `
INSERT INTO documents (id, course_id, filename, file_type, file_url, content, metadata, embedding_status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.CourseID, d.Filename, d.FileType, d.FileURL, d.Content, meta, string(d.EmbeddingStatus), d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepo) ListByCourse(ctx context.Context, courseID string) ([]models.Document, error) {
	rows, err := r.q.Query(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE course_id = $1
ORDER BY created_at DESC, id`, courseID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	out := make([]models.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (r *DocumentRepo) Get(ctx context.Context, id string) (models.Document, error) {
	d, err := scanDocument(r.q.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if err != nil {
		return models.Document{}, notFound(err, "document "+id)
	}
	return d, nil
}

// UpdateMetadata replaces the metadata document, e.g. to record the chunk count.
func (r *DocumentRepo) UpdateMetadata(ctx context.Context, id string, meta models.DocumentMetadata) error {
	b, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode document metadata: %w", err)
	}
	if _, err := r.q.Exec(ctx, `UPDATE documents SET metadata = $2 WHERE id = $1`, id, b); err != nil {
		return fmt.Errorf("update document metadata: %w", err)
	}
	return nil
}

func (r *DocumentRepo) SetEmbeddingStatus(ctx context.Context, id string, status models.EmbeddingStatus) error {
	return setEmbeddingStatus(ctx, r.q, "documents", id, status)
}

func (r *DocumentRepo) ListPending(ctx context.Context, limit int) ([]string, error) {
	return listPending(ctx, r.q, "documents", limit)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (models.Document, error) {
	var (
		d      models.Document
		meta   []byte
		status string
	)
	if err := row.Scan(&d.ID, &d.CourseID, &d.Filename, &d.FileType, &d.FileURL, &d.Content, &meta, &status, &d.CreatedAt); err != nil {
		return models.Document{}, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &d.Metadata); err != nil {
			return models.Document{}, fmt.Errorf("decode document metadata: %w", err)
		}
	}
	d.EmbeddingStatus = models.EmbeddingStatus(status)
	return d, nil
}
