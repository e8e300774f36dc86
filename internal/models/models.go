package models

import "time"

type Kind string

const (
	KindCourse   Kind = "course"
	KindDocument Kind = "document"
	KindQuestion Kind = "question"
)

func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindCourse, KindDocument, KindQuestion:
		return Kind(s), true
	}
	return "", false
}

// EmbeddingStatus tracks whether an entity's embeddings have been written.
type EmbeddingStatus string

const (
	EmbeddingPending EmbeddingStatus = "pending"
	EmbeddingReady   EmbeddingStatus = "ready"
)

type Course struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Description     *string         `json:"description"`
	Version         *string         `json:"version"`
	EmbeddingStatus EmbeddingStatus `json:"embeddingStatus"`
	CreatedAt       time.Time       `json:"createdAt"`
	DocumentCount   int64           `json:"documentCount"`
	QuestionCount   int64           `json:"questionCount"`
}

type DocumentMetadata struct {
	OriginalSize int64  `json:"originalSize"`
	UploadPath   string `json:"uploadPath"`
	SHA256       string `json:"sha256,omitempty"`
	ChunkCount   int    `json:"chunkCount,omitempty"`
}

type Document struct {
	ID              string           `json:"id"`
	CourseID        string           `json:"courseId"`
	Filename        string           `json:"filename"`
	FileType        string           `json:"fileType"`
	FileURL         string           `json:"fileUrl"`
	Content         string           `json:"content"`
	Metadata        DocumentMetadata `json:"metadata"`
	EmbeddingStatus EmbeddingStatus  `json:"embeddingStatus"`
	CreatedAt       time.Time        `json:"createdAt"`
}

type ExamQuestion struct {
	ID              string          `json:"id"`
	CourseID        string          `json:"courseId"`
	Question        string          `json:"question"`
	Answer          *string         `json:"answer"`
	Options         []string        `json:"options"`
	Type            string          `json:"type"`
	Difficulty      *string         `json:"difficulty"`
	Chapter         *string         `json:"chapter"`
	EmbeddingStatus EmbeddingStatus `json:"embeddingStatus"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// EmbeddingRecord is one stored vector. OwnerID points at the course,
// document or question the vector was computed from.
type EmbeddingRecord struct {
	ID        string         `json:"id"`
	Kind      Kind           `json:"kind"`
	OwnerID   string         `json:"ownerId"`
	Content   string         `json:"content"`
	Vector    []float32      `json:"-"`
	Ordinal   int            `json:"ordinal,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

type SearchResult struct {
	Kind         Kind    `json:"type"`
	ID           string  `json:"id"`
	OwnerID      string  `json:"ownerId"`
	Content      string  `json:"content"`
	Distance     float64 `json:"distance"`
	Ordinal      int     `json:"ordinal,omitempty"`
	CourseID     string  `json:"courseId"`
	CourseTitle  string  `json:"courseTitle"`
	Filename     string  `json:"filename,omitempty"`
	Question     string  `json:"question,omitempty"`
	Answer       *string `json:"answer,omitempty"`
	QuestionType string  `json:"questionType,omitempty"`
}
