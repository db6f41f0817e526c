package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/unimate/docqa/internal/core/ports"
)

// extractPDF pulls plain text page by page so the page count survives into
// document metadata. Pages without extractable text are skipped.
func extractPDF(raw []byte) (ports.ExtractedText, error) {
	if len(raw) == 0 {
		return ports.ExtractedText{}, errors.New("empty pdf payload")
	}

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return ports.ExtractedText{}, fmt.Errorf("open pdf: %w", err)
	}

	var pages []string
	total := reader.NumPage()
	for num := 1; num <= total; num++ {
		page := reader.Page(num)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return ports.ExtractedText{}, fmt.Errorf("extract page %d: %w", num, err)
		}
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			pages = append(pages, trimmed)
		}
	}

	joined := strings.Join(pages, "\n\n")
	if joined == "" {
		return ports.ExtractedText{}, errors.New("pdf has no extractable text")
	}
	return ports.ExtractedText{Text: joined, PageCount: total}, nil
}
