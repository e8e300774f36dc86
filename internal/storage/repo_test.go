package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"coursekb/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func strPtr(s string) *string { return &s }

func TestCourseRepoCreate(t *testing.T) {
	mock := newMock(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := models.Course{ID: "c1", Title: "Intro to Systems", EmbeddingStatus: models.EmbeddingPending, CreatedAt: now}

	mock.ExpectExec(`INSERT INTO courses`).
		WithArgs("c1", "Intro to Systems", (*string)(nil), (*string)(nil), "pending", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewCourseRepo(mock).Create(context.Background(), c))
}

func TestCourseRepoListWithCounts(t *testing.T) {
	mock := newMock(t)
	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"id", "title", "description", "version", "embedding_status", "created_at", "document_count", "question_count"}).
		AddRow("c2", "Databases", strPtr("Storage engines"), nil, "ready", now, int64(3), int64(12)).
		AddRow("c1", "Intro to Systems", nil, strPtr("2024"), "pending", now.Add(-time.Hour), int64(0), int64(0))
	mock.ExpectQuery(`FROM courses c\s+ORDER BY c.created_at DESC`).WillReturnRows(rows)

	got, err := NewCourseRepo(mock).List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Storage engines", *got[0].Description)
	assert.Nil(t, got[0].Version)
	assert.Equal(t, int64(3), got[0].DocumentCount)
	assert.Equal(t, int64(12), got[0].QuestionCount)
	assert.Equal(t, models.EmbeddingPending, got[1].EmbeddingStatus)
	assert.Nil(t, got[1].Description)
}

func TestCourseRepoGetNotFound(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`FROM courses\s+WHERE id = \$1`).WithArgs("missing").WillReturnError(pgx.ErrNoRows)

	_, err := NewCourseRepo(mock).Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCourseRepoExists(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("c1").WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := NewCourseRepo(mock).Exists(context.Background(), "c1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSetEmbeddingStatusMissingRow(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`UPDATE exam_questions SET embedding_status`).WithArgs("q1", "ready").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := NewQuestionRepo(mock).SetEmbeddingStatus(context.Background(), "q1", models.EmbeddingReady)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPending(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT id::text FROM documents\s+WHERE embedding_status = 'pending'`).WithArgs(50).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("d1").AddRow("d2"))

	ids, err := NewDocumentRepo(mock).ListPending(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d2"}, ids)
}

func TestDocumentRepoRoundTripsMetadata(t *testing.T) {
	mock := newMock(t)
	now := time.Now().UTC()
	doc := models.Document{
		ID: "d1", CourseID: "c1", Filename: "notes.pdf", FileType: "pdf", FileURL: "http://files/c1/1-notes.pdf",
		Content: "text", Metadata: models.DocumentMetadata{OriginalSize: 2048, UploadPath: "c1/1-notes.pdf"},
		EmbeddingStatus: models.EmbeddingPending, CreatedAt: now,
	}
	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs("d1", "c1", "notes.pdf", "pdf", "http://files/c1/1-notes.pdf", "text",
			[]byte(`{"originalSize":2048,"uploadPath":"c1/1-notes.pdf"}`), "pending", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, NewDocumentRepo(mock).Create(context.Background(), doc))

	mock.ExpectQuery(`FROM documents\s+WHERE course_id = \$1\s+ORDER BY created_at DESC`).WithArgs("c1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "course_id", "filename", "file_type", "file_url", "content", "metadata", "embedding_status", "created_at"}).
			AddRow("d1", "c1", "notes.pdf", "pdf", "http://files/c1/1-notes.pdf", "text",
				[]byte(`{"originalSize":2048,"uploadPath":"c1/1-notes.pdf","chunkCount":3}`), "ready", now))
	docs, err := NewDocumentRepo(mock).ListByCourse(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, int64(2048), docs[0].Metadata.OriginalSize)
	assert.Equal(t, 3, docs[0].Metadata.ChunkCount)
	assert.Equal(t, models.EmbeddingReady, docs[0].EmbeddingStatus)
}

func TestQuestionRepoCreateAndGet(t *testing.T) {
	mock := newMock(t)
	now := time.Now().UTC()
	q := models.ExamQuestion{
		ID: "q1", CourseID: "c1", Question: "What is a mutex?", Options: []string{"a lock", "a queue"},
		Type: "multiple-choice", EmbeddingStatus: models.EmbeddingPending, CreatedAt: now,
	}
	mock.ExpectExec(`INSERT INTO exam_questions`).
		WithArgs("q1", "c1", "What is a mutex?", (*string)(nil), []byte(`["a lock","a queue"]`), "multiple-choice",
			(*string)(nil), (*string)(nil), "pending", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, NewQuestionRepo(mock).Create(context.Background(), q))

	mock.ExpectQuery(`FROM exam_questions WHERE id = \$1`).WithArgs("q1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "course_id", "question", "answer", "options", "type", "difficulty", "chapter", "embedding_status", "created_at"}).
			AddRow("q1", "c1", "What is a mutex?", strPtr("a lock"), []byte(`["a lock","a queue"]`), "multiple-choice", nil, strPtr("3"), "pending", now))
	got, err := NewQuestionRepo(mock).Get(context.Background(), "q1")
	require.NoError(t, err)
	assert.Equal(t, "a lock", *got.Answer)
	assert.Equal(t, []string{"a lock", "a queue"}, got.Options)
	assert.Nil(t, got.Difficulty)
	assert.Equal(t, "3", *got.Chapter)
}

func TestLLMAuditRepoInsert(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`INSERT INTO llm_calls`).
		WithArgs("search_answer", "openai", "gpt-4o-mini", "", "error", "rate", int64(120)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := NewLLMAuditRepo(mock).Insert(context.Background(), LLMCallRecord{
		Operation: "search_answer", ProviderName: "openai", Model: "gpt-4o-mini", Status: "error", ErrorType: "rate", DurationMS: 120,
	})
	require.NoError(t, err)
}

func TestMigrateRendersDimension(t *testing.T) {
	sql := SchemaSQL(768)
	assert.Contains(t, sql, "vector(768)")
	assert.NotContains(t, sql, "{{embed_dim}}")

	mock := newMock(t)
	mock.ExpectExec(`CREATE EXTENSION IF NOT EXISTS vector`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	require.NoError(t, Migrate(context.Background(), mock, 768))

	assert.Error(t, Migrate(context.Background(), mock, 0))
}

func TestListByCourseWrapsScanErrors(t *testing.T) {
	mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM exam_questions\s+WHERE course_id = \$1`).WithArgs("c1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "course_id", "question", "answer", "options", "type", "difficulty", "chapter", "embedding_status", "created_at"}).
			AddRow("q1", "c1", "What is a mutex?", nil, []byte(`not json`), "short-answer", nil, nil, "ready", now))
	_, err := NewQuestionRepo(mock).ListByCourse(context.Background(), "c1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan question: decode question options")

	mock.ExpectQuery(`FROM documents\s+WHERE course_id = \$1`).WithArgs("c1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "course_id", "filename", "file_type", "file_url", "content", "metadata", "embedding_status", "created_at"}).
			AddRow("d1", "c1", "notes.pdf", "pdf", "http://files/c1/1-notes.pdf", "text", []byte(`{`), "ready", now))
	_, err = NewDocumentRepo(mock).ListByCourse(context.Background(), "c1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan document: decode document metadata")
}
