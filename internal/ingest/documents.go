package ingest

import (
	"context"
	"fmt"
	"strings"

	"coursekb/internal/blobstore"
	"coursekb/internal/extract"
	"coursekb/internal/metrics"
	"coursekb/internal/models"
	"coursekb/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UploadInput struct {
	CourseID    string
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// UploadDocument validates, extracts, stores and indexes one uploaded file.
// Type and size are checked before any extraction or storage call.
func (s *Service) UploadDocument(ctx context.Context, in UploadInput) (models.Document, error) {
	if in.Size <= 0 {
		in.Size = int64(len(in.Data))
	}
	ve := &util.ValidationError{}
	if strings.TrimSpace(in.Filename) == "" || len(in.Data) == 0 {
		ve.Add("file", "no file provided")
	}
	kind, ok := extract.Kind(in.ContentType)
	if !ok {
		ve.Add("fileType", "only PDF and DOCX files are supported")
	}
	if in.Size > s.opts.MaxUploadBytes {
		ve.Add("size", fmt.Sprintf("file size exceeds limit of %d bytes", s.opts.MaxUploadBytes))
	}
	if err := ve.OrNil(); err != nil {
		return models.Document{}, err
	}
	if err := s.requireCourse(ctx, in.CourseID); err != nil {
		return models.Document{}, err
	}

	text, err := s.extractor.Extract(in.Data, in.ContentType)
	if err != nil {
		return models.Document{}, err
	}

	now := s.now()
	key := blobstore.Key(in.CourseID, in.Filename, now)
	url, err := s.blobs.Put(ctx, key, in.Data, in.ContentType)
	if err != nil {
		return models.Document{}, err
	}

	doc := models.Document{
		ID:       uuid.NewString(),
		CourseID: in.CourseID,
		Filename: in.Filename,
		FileType: kind,
		FileURL:  url,
		Content:  text,
		Metadata: models.DocumentMetadata{
			OriginalSize: in.Size,
			UploadPath:   key,
			SHA256:       util.SHA256Hex(in.Data),
		},
		EmbeddingStatus: models.EmbeddingPending,
		CreatedAt:       now,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return models.Document{}, err
	}

	n, err := s.embedDocument(ctx, doc)
	if err != nil {
		s.leavePending(models.KindDocument, doc.ID, err)
		return doc, nil
	}
	doc.Metadata.ChunkCount = n
	doc.EmbeddingStatus = models.EmbeddingReady
	s.logger.Info("document indexed",
		zap.String("document_id", doc.ID),
		zap.String("course_id", doc.CourseID),
		zap.String("file_type", kind),
		zap.Int("chunks", n),
	)
	return doc, nil
}

func (s *Service) ListDocuments(ctx context.Context, courseID string) ([]models.Document, error) {
	if err := s.requireCourse(ctx, courseID); err != nil {
		return nil, err
	}
	return s.documents.ListByCourse(ctx, courseID)
}

// embedDocument chunks the document content, embeds chunks one at a time and
// stores the whole chunk set in one batch. It returns the number of chunks stored.
func (s *Service) embedDocument(ctx context.Context, doc models.Document) (int, error) {
	chunks, err := util.ChunkText(doc.Content, s.opts.ChunkSize, s.opts.ChunkOverlap)
	if err != nil {
		return 0, err
	}
	recs := make([]models.EmbeddingRecord, 0, len(chunks))
	for i, chunk := range chunks {
		vec, err := s.embedder.EmbedText(ctx, "embed_document_chunk", chunk)
		if err != nil {
			return 0, fmt.Errorf("embed chunk %d of %d: %w", i+1, len(chunks), err)
		}
		recs = append(recs, models.EmbeddingRecord{
			Kind:     models.KindDocument,
			OwnerID:  doc.ID,
			Content:  chunk,
			Vector:   vec,
			Ordinal:  i + 1,
			Metadata: map[string]any{"chunkIndex": i, "totalChunks": len(chunks)},
		})
	}
	if _, err := s.vectors.InsertBatch(ctx, recs); err != nil {
		return 0, err
	}
	metrics.DocumentChunks.Observe(float64(len(recs)))

	meta := doc.Metadata
	meta.ChunkCount = len(recs)
	if err := s.documents.UpdateMetadata(ctx, doc.ID, meta); err != nil {
		return 0, err
	}
	if err := s.documents.SetEmbeddingStatus(ctx, doc.ID, models.EmbeddingReady); err != nil {
		return 0, fmt.Errorf("mark document ready: %w", err)
	}
	return len(recs), nil
}
