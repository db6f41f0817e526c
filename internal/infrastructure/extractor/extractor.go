package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/unimate/docqa/internal/core/domain"
	"github.com/unimate/docqa/internal/core/ports"
)

// Extractor reads a stored document and produces plain text, dispatching on
// mime type. PDFs go through the pdf reader; everything else is treated as
// UTF-8 text.
type Extractor struct {
	storage ports.ObjectStorage
}

func New(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (ports.ExtractedText, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return ports.ExtractedText{}, fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return ports.ExtractedText{}, fmt.Errorf("read source document: %w", err)
	}

	if isPDF(doc.MimeType, doc.Filename) {
		out, err := extractPDF(raw)
		if err != nil {
			return ports.ExtractedText{}, domain.WrapError(domain.ErrIngestion, "extract pdf text", err)
		}
		return out, nil
	}

	if !utf8.Valid(raw) {
		return ports.ExtractedText{}, domain.WrapError(
			domain.ErrIngestion,
			"extract text",
			fmt.Errorf("unsupported binary format: %s (%s)", doc.Filename, doc.MimeType),
		)
	}

	text := strings.TrimSpace(string(raw))
	if text == "" {
		return ports.ExtractedText{}, domain.WrapError(domain.ErrEmptyInput, "extract text", errors.New("document has no text"))
	}
	return ports.ExtractedText{Text: text, PageCount: 1}, nil
}

func isPDF(mimeType, filename string) bool {
	if strings.HasPrefix(strings.ToLower(mimeType), "application/pdf") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(filename), ".pdf")
}
