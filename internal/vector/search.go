package vector

import (
	"context"
	"fmt"

	"coursekb/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

// The inner query orders by the distance expression alone so the HNSW index
// serves it. Ties are then broken by record id so repeated queries return the
// same order.
const (
	searchDocumentsSQL = `
SELECT e.id::text, e.document_id::text, e.content, e.ordinal, e.distance,
       d.filename, c.id::text, c.title
FROM (
  SELECT id, document_id, content, ordinal, embedding <=> $1 AS distance
  FROM document_embeddings
  ORDER BY embedding <=> $1
  LIMIT $2
) e
JOIN documents d ON d.id = e.document_id
JOIN courses c ON c.id = d.course_id
ORDER BY e.distance, e.id`

	searchQuestionsSQL = `
SELECT e.id::text, e.question_id::text, e.content, e.distance,
       q.question, q.answer, q.type, c.id::text, c.title
FROM (
  SELECT id, question_id, content, embedding <=> $1 AS distance
  FROM question_embeddings
  ORDER BY embedding <=> $1
  LIMIT $2
) e
JOIN exam_questions q ON q.id = e.question_id
JOIN courses c ON c.id = q.course_id
ORDER BY e.distance, e.id`

	searchCoursesSQL = `
SELECT e.id::text, e.course_id::text, e.content, e.distance, c.title
FROM (
  SELECT id, course_id, content, embedding <=> $1 AS distance
  FROM course_embeddings
  ORDER BY embedding <=> $1
  LIMIT $2
) e
JOIN courses c ON c.id = e.course_id
ORDER BY e.distance, e.id`
)

// NearestNeighbors returns up to limit records of kind ordered by ascending
// cosine distance to query, joined with the fields needed to display them.
func (s *Store) NearestNeighbors(ctx context.Context, kind models.Kind, query []float32, limit int) ([]models.SearchResult, error) {
	if limit <= 0 {
		return []models.SearchResult{}, nil
	}
	var (
		sql  string
		scan func(pgx.Rows) (models.SearchResult, error)
	)
	switch kind {
	case models.KindDocument:
		sql, scan = searchDocumentsSQL, scanDocumentHit
	case models.KindQuestion:
		sql, scan = searchQuestionsSQL, scanQuestionHit
	case models.KindCourse:
		sql, scan = searchCoursesSQL, scanCourseHit
	default:
		return nil, fmt.Errorf("unknown embedding kind %q", kind)
	}

	rows, err := s.q.Query(ctx, sql, pgvector.NewVector(query), limit)
	if err != nil {
		return nil, fmt.Errorf("query %s neighbours: %w", kind, err)
	}
	defer rows.Close()

	out := make([]models.SearchResult, 0, limit)
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s neighbour: %w", kind, err)
		}
		r.Kind = kind
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s neighbours: %w", kind, err)
	}
	return out, nil
}

func scanDocumentHit(rows pgx.Rows) (models.SearchResult, error) {
	var (
		r       models.SearchResult
		ordinal int32
	)
	err := rows.Scan(&r.ID, &r.OwnerID, &r.Content, &ordinal, &r.Distance, &r.Filename, &r.CourseID, &r.CourseTitle)
	r.Ordinal = int(ordinal)
	return r, err
}

func scanQuestionHit(rows pgx.Rows) (models.SearchResult, error) {
	var r models.SearchResult
	err := rows.Scan(&r.ID, &r.OwnerID, &r.Content, &r.Distance, &r.Question, &r.Answer, &r.QuestionType, &r.CourseID, &r.CourseTitle)
	return r, err
}

func scanCourseHit(rows pgx.Rows) (models.SearchResult, error) {
	var r models.SearchResult
	err := rows.Scan(&r.ID, &r.OwnerID, &r.Content, &r.Distance, &r.CourseTitle)
	r.CourseID = r.OwnerID
	return r, err
}
