package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"coursekb/internal/models"
	"coursekb/internal/util"
)

type memCourses struct {
	mu   sync.Mutex
	rows map[string]models.Course
}

func (m *memCourses) Create(_ context.Context, c models.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[c.ID] = c
	return nil
}

func (m *memCourses) List(context.Context) ([]models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Course, 0, len(m.rows))
	for _, c := range m.rows {
		out = append(out, c)
	}
	return out, nil
}

func (m *memCourses) Get(_ context.Context, id string) (models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return models.Course{}, util.ErrNotFound
	}
	return c, nil
}

func (m *memCourses) Exists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[id]
	return ok, nil
}

func (m *memCourses) SetEmbeddingStatus(_ context.Context, id string, st models.EmbeddingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return util.ErrNotFound
	}
	c.EmbeddingStatus = st
	m.rows[id] = c
	return nil
}

func (m *memCourses) ListPending(context.Context, int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for id, c := range m.rows {
		if c.EmbeddingStatus == models.EmbeddingPending {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

type memDocuments struct {
	mu   sync.Mutex
	rows map[string]models.Document
}

func (m *memDocuments) Create(_ context.Context, d models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[d.ID] = d
	return nil
}

func (m *memDocuments) ListByCourse(_ context.Context, courseID string) ([]models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Document
	for _, d := range m.rows {
		if d.CourseID == courseID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memDocuments) Get(_ context.Context, id string) (models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rows[id]
	if !ok {
		return models.Document{}, util.ErrNotFound
	}
	return d, nil
}

func (m *memDocuments) UpdateMetadata(_ context.Context, id string, meta models.DocumentMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.rows[id]
	d.Metadata = meta
	m.rows[id] = d
	return nil
}

func (m *memDocuments) SetEmbeddingStatus(_ context.Context, id string, st models.EmbeddingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rows[id]
	if !ok {
		return util.ErrNotFound
	}
	d.EmbeddingStatus = st
	m.rows[id] = d
	return nil
}

func (m *memDocuments) ListPending(context.Context, int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for id, d := range m.rows {
		if d.EmbeddingStatus == models.EmbeddingPending {
			out = append(out, id)
		}
	}
	return out, nil
}

type memQuestions struct {
	mu   sync.Mutex
	rows map[string]models.ExamQuestion
}

func (m *memQuestions) Create(_ context.Context, q models.ExamQuestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[q.ID] = q
	return nil
}

func (m *memQuestions) ListByCourse(_ context.Context, courseID string) ([]models.ExamQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ExamQuestion
	for _, q := range m.rows {
		if q.CourseID == courseID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memQuestions) Get(_ context.Context, id string) (models.ExamQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.rows[id]
	if !ok {
		return models.ExamQuestion{}, util.ErrNotFound
	}
	return q, nil
}

func (m *memQuestions) SetEmbeddingStatus(_ context.Context, id string, st models.EmbeddingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.rows[id]
	if !ok {
		return util.ErrNotFound
	}
	q.EmbeddingStatus = st
	m.rows[id] = q
	return nil
}

func (m *memQuestions) ListPending(context.Context, int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for id, q := range m.rows {
		if q.EmbeddingStatus == models.EmbeddingPending {
			out = append(out, id)
		}
	}
	return out, nil
}

type memVectors struct {
	mu   sync.Mutex
	recs []models.EmbeddingRecord
}

func (m *memVectors) Insert(_ context.Context, rec models.EmbeddingRecord) (models.EmbeddingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = fmt.Sprintf("e%d", len(m.recs)+1)
	m.recs = append(m.recs, rec)
	return rec, nil
}

func (m *memVectors) InsertBatch(ctx context.Context, recs []models.EmbeddingRecord) ([]models.EmbeddingRecord, error) {
	out := make([]models.EmbeddingRecord, 0, len(recs))
	for _, r := range recs {
		stored, _ := m.Insert(ctx, r)
		out = append(out, stored)
	}
	return out, nil
}

func (m *memVectors) Count(_ context.Context, kind models.Kind, ownerID string) (int, error) {
	return len(m.byOwner(kind, ownerID)), nil
}

func (m *memVectors) byOwner(kind models.Kind, ownerID string) []models.EmbeddingRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.EmbeddingRecord
	for _, r := range m.recs {
		if r.Kind == kind && r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	return out
}

func (m *memVectors) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs)
}

var errProviderDown = errors.New("provider down")

type fakeEmbedder struct {
	mu    sync.Mutex
	fail  bool
	calls []string
}

func (f *fakeEmbedder) EmbedText(_ context.Context, _ string, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)
	if f.fail {
		return nil, errProviderDown
	}
	return []float32{float32(len(text)), 1}, nil
}

func (f *fakeEmbedder) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeBlobs struct {
	keys []string
}

func (f *fakeBlobs) Put(_ context.Context, key string, _ []byte, _ string) (string, error) {
	f.keys = append(f.keys, key)
	return "http://files/" + key, nil
}

type fakeExtractor struct {
	text  string
	err   error
	calls int
}

func (f *fakeExtractor) Extract([]byte, string) (string, error) {
	f.calls++
	return f.text, f.err
}
