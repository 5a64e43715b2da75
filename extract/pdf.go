package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"
)

// pdfMagic is the signature every PDF file starts with.
var pdfMagic = []byte("%PDF-")

// IsPDF reports whether the document bytes carry the PDF magic signature.
// The check runs before any expensive work so malformed uploads are rejected
// at the intake boundary.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}

// Extractor turns raw PDF bytes into plain text.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates a PDF text extractor.
func NewExtractor() *Extractor {
	return &Extractor{
		logger: slog.Default().With("component", "pdf-extractor"),
	}
}

// Text extracts the plain text of a PDF document, pages joined by newlines.
// A malformed or unsupported document fails with ErrContentExtraction
// carrying the underlying cause.
func (e *Extractor) Text(ctx context.Context, data []byte) (string, error) {
	if !IsPDF(data) {
		return "", fmt.Errorf("%w: missing PDF signature", ErrNotPDF)
	}

	loader := documentloaders.NewPDF(bytes.NewReader(data), int64(len(data)))
	docs, err := loader.Load(ctx)
	if err != nil {
		e.logger.Error("failed to extract PDF text", "size", len(data), "err", err)
		return "", fmt.Errorf("%w: %w", ErrContentExtraction, err)
	}

	pages := make([]string, 0, len(docs))
	for _, doc := range docs {
		pages = append(pages, doc.PageContent)
	}

	text := strings.Join(pages, "\n")
	e.logger.Debug("extracted PDF text", "pages", len(docs), "chars", len([]rune(text)))
	return text, nil
}
