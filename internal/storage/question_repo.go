package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"coursekb/internal/models"
)

type QuestionRepo struct {
	q Querier
}

func NewQuestionRepo(q Querier) *QuestionRepo {
	return &QuestionRepo{q: q}
}

const questionColumns = `id::text, course_id::text, question, answer, options, type, difficulty, chapter, embedding_status, created_at`

func (r *QuestionRepo) Create(ctx context.Context, eq models.ExamQuestion) error {
	var options []byte
	if eq.Options != nil {
		b, err := json.Marshal(eq.Options)
		if err != nil {
			return fmt.Errorf("encode question options: %w", err)
		}
		options = b
	}
	_, err := r.q.Exec(ctx, `
INSERT INTO exam_questions (id, course_id, question, answer, options, type, difficulty, chapter, embedding_status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		eq.ID, eq.CourseID, eq.Question, eq.Answer, options, eq.Type, eq.Difficulty, eq.Chapter, string(eq.EmbeddingStatus), eq.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert exam question: %w", err)
	}
	return nil
}

func (r *QuestionRepo) ListByCourse(ctx context.Context, courseID string) ([]models.ExamQuestion, error) {
	rows, err := r.q.Query(ctx, `
SELECT `+questionColumns+`
FROM exam_questions
WHERE course_id = $1
ORDER BY created_at DESC, id`, courseID)
	if err != nil {
		return nil, fmt.Errorf("list exam questions: %w", err)
	}
	defer rows.Close()
	out := make([]models.ExamQuestion, 0)
	for rows.Next() {
		eq, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, eq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exam questions: %w", err)
	}
	return out, nil
}

func (r *QuestionRepo) Get(ctx context.Context, id string) (models.ExamQuestion, error) {
	eq, err := scanQuestion(r.q.QueryRow(ctx, `SELECT `+questionColumns+` FROM exam_questions WHERE id = $1`, id))
	if err != nil {
		return models.ExamQuestion{}, notFound(err, "exam question "+id)
	}
	return eq, nil
}

func (r *QuestionRepo) SetEmbeddingStatus(ctx context.Context, id string, status models.EmbeddingStatus) error {
	return setEmbeddingStatus(ctx, r.q, "exam_questions", id, status)
}

func (r *QuestionRepo) ListPending(ctx context.Context, limit int) ([]string, error) {
	return listPending(ctx, r.q, "exam_questions", limit)
}

func scanQuestion(row rowScanner) (models.ExamQuestion, error) {
	var (
		eq      models.ExamQuestion
		options []byte
		status  string
	)
	if err := row.Scan(&eq.ID, &eq.CourseID, &eq.Question, &eq.Answer, &options, &eq.Type, &eq.Difficulty, &eq.Chapter, &status, &eq.CreatedAt); err != nil {
		return models.ExamQuestion{}, err
	}
	if len(options) > 0 {
		if err := json.Unmarshal(options, &eq.Options); err != nil {
			return models.ExamQuestion{}, fmt.Errorf("decode question options: %w", err)
		}
	}
	eq.EmbeddingStatus = models.EmbeddingStatus(status)
	return eq, nil
}
