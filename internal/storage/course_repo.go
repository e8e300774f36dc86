package storage

import (
	"context"
	"fmt"

	"coursekb/internal/models"
)

type CourseRepo struct {
	q Querier
}

func NewCourseRepo(q Querier) *CourseRepo {
	return &CourseRepo{q: q}
}

func (r *CourseRepo) Create(ctx context.Context, c models.Course) error {
	_, err := r.q.Exec(ctx, `
INSERT INTO courses (id, title, description, version, embedding_status, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.Title, c.Description, c.Version, string(c.EmbeddingStatus), c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert course: %w", err)
	}
	return nil
}

// List returns all courses newest first with their document and question counts.
func (r *CourseRepo) List(ctx context.Context) ([]models.Course, error) {
	rows, err := r.q.Query(ctx, `
SELECT c.id::text, c.title, c.description, c.version, c.embedding_status, c.created_at,
       (SELECT COUNT(*) FROM documents d WHERE d.course_id = c.id) AS document_count,
       (SELECT COUNT(*) FROM exam_questions q WHERE q.course_id = c.id) AS question_count
FROM courses c
ORDER BY c.created_at DESC, c.id`)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	out := make([]models.Course, 0)
	for rows.Next() {
		var (
			c      models.Course
			status string
		)
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Version, &status, &c.CreatedAt, &c.DocumentCount, &c.QuestionCount); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		c.EmbeddingStatus = models.EmbeddingStatus(status)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate courses: %w", err)
	}
	return out, nil
}

func (r *CourseRepo) Get(ctx context.Context, id string) (models.Course, error) {
	var (
		c      models.Course
		status string
	)
	err := r.q.QueryRow(ctx, `
SELECT id::text, title, description, version, embedding_status, created_at
FROM courses
WHERE id = $1`, id).Scan(&c.ID, &c.Title, &c.Description, &c.Version, &status, &c.CreatedAt)
	if err != nil {
		return models.Course{}, notFound(err, "course "+id)
	}
	c.EmbeddingStatus = models.EmbeddingStatus(status)
	return c, nil
}

func (r *CourseRepo) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM courses WHERE id = $1)`, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("check course exists: %w", err)
	}
	return ok, nil
}

func (r *CourseRepo) SetEmbeddingStatus(ctx context.Context, id string, status models.EmbeddingStatus) error {
	return setEmbeddingStatus(ctx, r.q, "courses", id, status)
}

func (r *CourseRepo) ListPending(ctx context.Context, limit int) ([]string, error) {
	return listPending(ctx, r.q, "courses", limit)
}

// setEmbeddingStatus and listPending take table names from package constants only.
func setEmbeddingStatus(ctx context.Context, q Querier, table, id string, status models.EmbeddingStatus) error {
	tag, err := q.Exec(ctx, `UPDATE `+table+` SET embedding_status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update %s embedding status: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", table, id, ErrNotFound)
	}
	return nil
}

func listPending(ctx context.Context, q Querier, table string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := q.Query(ctx, `
SELECT id::text FROM `+table+`
WHERE embedding_status = 'pending'
ORDER BY created_at ASC
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending %s: %w", table, err)
	}
	defer rows.Close()
	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending %s: %w", table, err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending %s: %w", table, err)
	}
	return out, nil
}
