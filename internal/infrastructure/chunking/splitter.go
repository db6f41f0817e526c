package chunking

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/unimate/docqa/internal/core/domain"
)

// headingPattern recognizes markdown hashes, "Chapter"/"Section" titles,
// and dotted numbering like "3.1 Metrics".
var headingPattern = regexp.MustCompile(`^(?i:#+|chapter\b|section\b|\d+\.\d+)\s+(.+)$`)

// Splitter cuts text into chunks of at most ChunkSize runes that share
// Overlap runes with their predecessor. Cuts prefer paragraph and sentence
// boundaries; a hard cut happens only when a single semantic unit exceeds
// ChunkSize. Output covers every rune of the input and is deterministic.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunking: chunk size must be positive, got %d", chunkSize)
	}
	if overlap <= 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("chunking: overlap must be in (0, %d), got %d", chunkSize, overlap)
	}
	return &Splitter{ChunkSize: chunkSize, Overlap: overlap}, nil
}

func (s *Splitter) Split(documentID, text string) ([]domain.Chunk, error) {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	boundaries := semanticBoundaries(runes)

	var chunks []domain.Chunk
	start := 0
	for {
		end := start + s.ChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else if b, ok := lastBoundaryIn(boundaries, start+s.Overlap, end); ok {
			// Snap back to a semantic boundary, as long as the next chunk
			// still starts past this one (the start+Overlap floor).
			end = b
		}

		text := string(runes[start:end])
		chunks = append(chunks, domain.Chunk{
			DocumentID: documentID,
			Index:      len(chunks),
			Text:       text,
			Heading:    headingOf(text),
			Start:      start,
			End:        end,
		})

		if end == len(runes) {
			return chunks, nil
		}
		start = end - s.Overlap
	}
}

// headingOf scans the first lines of a chunk for a section heading. A
// chunk that opens mid-paragraph has none.
func headingOf(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > 3 {
		lines = lines[:3]
	}
	for _, line := range lines {
		if m := headingPattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// semanticBoundaries returns rune positions where a cut keeps sentences and
// paragraphs intact: right after a sentence terminator followed by space,
// or after a newline.
func semanticBoundaries(runes []rune) []int {
	var out []int
	for i, r := range runes {
		switch {
		case r == '\n':
			out = append(out, i+1)
		case r == '.' || r == '!' || r == '?':
			if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
				out = append(out, i+1)
			}
		}
	}
	return out
}

// lastBoundaryIn finds the largest boundary b with low < b <= high.
// Boundaries are ascending, so scan from the back.
func lastBoundaryIn(boundaries []int, low, high int) (int, bool) {
	for i := len(boundaries) - 1; i >= 0; i-- {
		b := boundaries[i]
		if b <= low {
			return 0, false
		}
		if b <= high {
			return b, true
		}
	}
	return 0, false
}
