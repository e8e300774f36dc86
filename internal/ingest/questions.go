package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"coursekb/internal/models"
	"coursekb/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type QuestionInput struct {
	CourseID   string   `json:"courseId,omitempty" validate:"omitempty,uuid"`
	Question   string   `json:"question" validate:"required"`
	Answer     *string  `json:"answer"`
	Options    []string `json:"options"`
	Type       string   `json:"type" validate:"required,max=100"`
	Difficulty *string  `json:"difficulty"`
	Chapter    *string  `json:"chapter"`
}

type ImportResult struct {
	Questions []models.ExamQuestion
	Pending   int
}

func normalizeQuestion(in QuestionInput, courseID string) QuestionInput {
	in.Question = strings.TrimSpace(in.Question)
	in.Type = strings.TrimSpace(in.Type)
	if in.CourseID == "" {
		in.CourseID = courseID
	}
	return in
}

func (s *Service) CreateQuestion(ctx context.Context, courseID string, in QuestionInput) (models.ExamQuestion, error) {
	in = normalizeQuestion(in, courseID)
	in.CourseID = courseID
	if err := util.ValidateStruct(in, ""); err != nil {
		return models.ExamQuestion{}, err
	}
	if err := s.requireCourse(ctx, courseID); err != nil {
		return models.ExamQuestion{}, err
	}
	return s.createQuestion(ctx, in)
}

// ImportQuestions validates every input before writing any of them, then
// creates and embeds the questions on a bounded pool of workers. Items may
// name their own course and default to courseID.
func (s *Service) ImportQuestions(ctx context.Context, courseID string, inputs []QuestionInput) (ImportResult, error) {
	ve := &util.ValidationError{}
	courseIDs := map[string]struct{}{}
	for i := range inputs {
		inputs[i] = normalizeQuestion(inputs[i], courseID)
		if err := util.ValidateStruct(inputs[i], fmt.Sprintf("questions[%d]", i)); err != nil {
			var fe *util.ValidationError
			if errors.As(err, &fe) {
				for k, v := range fe.Fields {
					ve.Add(k, v)
				}
				continue
			}
			return ImportResult{}, err
		}
		courseIDs[inputs[i].CourseID] = struct{}{}
	}
	if err := ve.OrNil(); err != nil {
		return ImportResult{}, err
	}

	ids := make([]string, 0, len(courseIDs))
	for id := range courseIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := s.requireCourse(ctx, id); err != nil {
			return ImportResult{}, err
		}
	}

	out := make([]models.ExamQuestion, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.ImportConcurrency)
	for i, in := range inputs {
		g.Go(func() error {
			q, err := s.createQuestion(gctx, in)
			if err != nil {
				return fmt.Errorf("import question %d: %w", i, err)
			}
			out[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ImportResult{}, err
	}

	res := ImportResult{Questions: out}
	for _, q := range out {
		if q.EmbeddingStatus == models.EmbeddingPending {
			res.Pending++
		}
	}
	s.logger.Info("questions imported",
		zap.String("course_id", courseID),
		zap.Int("count", len(out)),
		zap.Int("pending", res.Pending),
	)
	return res, nil
}

func (s *Service) ListQuestions(ctx context.Context, courseID string) ([]models.ExamQuestion, error) {
	if err := s.requireCourse(ctx, courseID); err != nil {
		return nil, err
	}
	return s.questions.ListByCourse(ctx, courseID)
}

func (s *Service) createQuestion(ctx context.Context, in QuestionInput) (models.ExamQuestion, error) {
	q := models.ExamQuestion{
		ID:              uuid.NewString(),
		CourseID:        in.CourseID,
		Question:        in.Question,
		Answer:          in.Answer,
		Options:         in.Options,
		Type:            in.Type,
		Difficulty:      in.Difficulty,
		Chapter:         in.Chapter,
		EmbeddingStatus: models.EmbeddingPending,
		CreatedAt:       s.now(),
	}
	if err := s.questions.Create(ctx, q); err != nil {
		return models.ExamQuestion{}, err
	}
	if err := s.embedQuestion(ctx, q); err != nil {
		s.leavePending(models.KindQuestion, q.ID, err)
		return q, nil
	}
	q.EmbeddingStatus = models.EmbeddingReady
	return q, nil
}

func questionContent(q models.ExamQuestion) string {
	answer := ""
	if q.Answer != nil {
		answer = *q.Answer
	}
	return strings.TrimSpace(q.Question + " " + answer)
}

func (s *Service) embedQuestion(ctx context.Context, q models.ExamQuestion) error {
	content := questionContent(q)
	vec, err := s.embedder.EmbedText(ctx, "embed_question", content)
	if err != nil {
		return err
	}
	if _, err := s.vectors.Insert(ctx, models.EmbeddingRecord{
		Kind:    models.KindQuestion,
		OwnerID: q.ID,
		Content: content,
		Vector:  vec,
	}); err != nil {
		return err
	}
	if err := s.questions.SetEmbeddingStatus(ctx, q.ID, models.EmbeddingReady); err != nil {
		return fmt.Errorf("mark question ready: %w", err)
	}
	return nil
}
