package ingest

import (
	"context"
	"fmt"
	"strings"

	"coursekb/internal/models"
	"coursekb/internal/util"

	"github.com/google/uuid"
)

type CourseInput struct {
	Title       string  `json:"title" validate:"required,max=500"`
	Description *string `json:"description"`
	Version     *string `json:"version"`
}

func (s *Service) CreateCourse(ctx context.Context, in CourseInput) (models.Course, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := util.ValidateStruct(in, ""); err != nil {
		return models.Course{}, err
	}
	c := models.Course{
		ID:              uuid.NewString(),
		Title:           in.Title,
		Description:     in.Description,
		Version:         in.Version,
		EmbeddingStatus: models.EmbeddingPending,
		CreatedAt:       s.now(),
	}
	if err := s.courses.Create(ctx, c); err != nil {
		return models.Course{}, err
	}
	if err := s.embedCourse(ctx, c); err != nil {
		s.leavePending(models.KindCourse, c.ID, err)
		return c, nil
	}
	c.EmbeddingStatus = models.EmbeddingReady
	return c, nil
}

func (s *Service) ListCourses(ctx context.Context) ([]models.Course, error) {
	return s.courses.List(ctx)
}

func courseContent(c models.Course) string {
	desc := ""
	if c.Description != nil {
		desc = *c.Description
	}
	return strings.TrimSpace(c.Title + " " + desc)
}

func (s *Service) embedCourse(ctx context.Context, c models.Course) error {
	content := courseContent(c)
	vec, err := s.embedder.EmbedText(ctx, "embed_course", content)
	if err != nil {
		return err
	}
	if _, err := s.vectors.Insert(ctx, models.EmbeddingRecord{
		Kind:    models.KindCourse,
		OwnerID: c.ID,
		Content: content,
		Vector:  vec,
	}); err != nil {
		return err
	}
	if err := s.courses.SetEmbeddingStatus(ctx, c.ID, models.EmbeddingReady); err != nil {
		return fmt.Errorf("mark course ready: %w", err)
	}
	return nil
}
