// Package extract turns uploaded PDF and DOCX bytes into plain text.
package extract

import (
	"errors"
	"fmt"
	"mime"
	"strings"

	"coursekb/internal/util"

	"go.uber.org/zap"
)

const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	KindPDF  = "pdf"
	KindDOCX = "docx"
)

var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrExtractionFailed    = errors.New("text extraction failed")
)

type UnsupportedFileTypeError struct {
	Type string
}

func (e *UnsupportedFileTypeError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnsupportedFileType, e.Type)
}

func (e *UnsupportedFileTypeError) Is(target error) bool {
	return target == ErrUnsupportedFileType
}

// Kind normalises a MIME type or short alias to "pdf" or "docx".
func Kind(fileType string) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(fileType))
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		t = mt
	}
	switch t {
	case MIMEPDF, KindPDF:
		return KindPDF, true
	case MIMEDOCX, KindDOCX:
		return KindDOCX, true
	}
	return "", false
}

type Extractor struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Extract returns the sanitized plain text of data. Parser errors are logged
// and surface as ErrExtractionFailed.
func (e *Extractor) Extract(data []byte, fileType string) (string, error) {
	kind, ok := Kind(fileType)
	if !ok {
		return "", &UnsupportedFileTypeError{Type: fileType}
	}
	var (
		text string
		err  error
	)
	switch kind {
	case KindPDF:
		text, err = extractPDF(data)
	case KindDOCX:
		text, err = extractDOCX(data)
	}
	if err != nil {
		e.logger.Warn("text extraction failed", zap.String("kind", kind), zap.Int("bytes", len(data)), zap.Error(err))
		return "", ErrExtractionFailed
	}
	text = util.SanitizeText(text)
	if text == "" {
		e.logger.Warn("document has no extractable text", zap.String("kind", kind), zap.Int("bytes", len(data)))
		return "", fmt.Errorf("%w: %w", ErrExtractionFailed, util.ErrNoExtractableText)
	}
	return text, nil
}
