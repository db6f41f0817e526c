package chunking

import (
	"strings"
	"testing"
)

func TestNewSplitterValidation(t *testing.T) {
	cases := []struct {
		name      string
		chunkSize int
		overlap   int
		wantErr   bool
	}{
		{"valid", 1000, 150, false},
		{"zero chunk size", 0, 10, true},
		{"zero overlap", 100, 0, true},
		{"overlap equals chunk size", 100, 100, true},
		{"overlap above chunk size", 100, 150, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSplitter(tc.chunkSize, tc.overlap)
			if (err != nil) != tc.wantErr {
				t.Fatalf("NewSplitter(%d, %d) error = %v, wantErr %v", tc.chunkSize, tc.overlap, err, tc.wantErr)
			}
		})
	}
}

func TestSplitEmptyText(t *testing.T) {
	s, _ := NewSplitter(100, 20)
	chunks, err := s.Split("doc", "")
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if chunks != nil {
		t.Fatalf("expected no chunks for empty text, got %d", len(chunks))
	}
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	s, _ := NewSplitter(100, 20)
	chunks, err := s.Split("doc", "just a short note.")
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "just a short note." {
		t.Fatalf("chunk text = %q", chunks[0].Text)
	}
	if chunks[0].ID() != "doc:0" {
		t.Fatalf("chunk id = %q, want doc:0", chunks[0].ID())
	}
}

func TestSplitCoversEveryRuneWithOverlap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 60; i++ {
		b.WriteString("The quick brown fox jumps over the lazy dog. ")
	}
	text := b.String()

	s, _ := NewSplitter(200, 40)
	chunks, err := s.Split("doc", text)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	runes := []rune(text)
	if chunks[0].Start != 0 {
		t.Fatalf("first chunk starts at %d, want 0", chunks[0].Start)
	}
	if chunks[len(chunks)-1].End != len(runes) {
		t.Fatalf("last chunk ends at %d, want %d", chunks[len(chunks)-1].End, len(runes))
	}
	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Fatalf("chunk %d has index %d", i, chunk.Index)
		}
		if got := string(runes[chunk.Start:chunk.End]); got != chunk.Text {
			t.Fatalf("chunk %d text does not match its offsets", i)
		}
		if len([]rune(chunk.Text)) > 200 {
			t.Fatalf("chunk %d exceeds size: %d runes", i, len([]rune(chunk.Text)))
		}
		if i > 0 {
			if chunks[i-1].End-chunk.Start != 40 {
				t.Fatalf("chunks %d/%d overlap by %d runes, want 40", i-1, i, chunks[i-1].End-chunk.Start)
			}
		}
	}
}

func TestSplitPrefersSentenceBoundaries(t *testing.T) {
	text := "First sentence here. Second sentence follows. Third one is a bit longer than the rest of them."
	s, _ := NewSplitter(50, 10)
	chunks, err := s.Split("doc", text)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	// A mid-text chunk that found a boundary ends right after a terminator.
	first := chunks[0].Text
	if !strings.HasSuffix(strings.TrimRight(first, " "), ".") {
		t.Fatalf("first chunk should end on a sentence boundary, got %q", first)
	}
}

func TestSplitHardCutWithoutBoundaries(t *testing.T) {
	text := strings.Repeat("a", 250)
	s, _ := NewSplitter(100, 20)
	chunks, err := s.Split("doc", text)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	for i, chunk := range chunks {
		if i < len(chunks)-1 && len([]rune(chunk.Text)) != 100 {
			t.Fatalf("hard cut chunk %d has %d runes, want 100", i, len([]rune(chunk.Text)))
		}
	}
	if chunks[len(chunks)-1].End != 250 {
		t.Fatalf("last chunk ends at %d, want 250", chunks[len(chunks)-1].End)
	}
}

func TestSplitDeterministic(t *testing.T) {
	text := "Paragraph one.\n\nParagraph two is longer and has multiple sentences. It keeps going for a while to force several chunks out of the splitter."
	s, _ := NewSplitter(60, 15)

	first, err := s.Split("doc", text)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	second, err := s.Split("doc", text)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}

func TestSplitMultibyteRunes(t *testing.T) {
	text := strings.Repeat("日本語のテキスト。", 40)
	s, _ := NewSplitter(50, 10)
	chunks, err := s.Split("doc", text)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	total := []rune(text)
	if chunks[len(chunks)-1].End != len(total) {
		t.Fatalf("coverage ends at %d, want %d runes", chunks[len(chunks)-1].End, len(total))
	}
	for i, chunk := range chunks {
		if got := string(total[chunk.Start:chunk.End]); got != chunk.Text {
			t.Fatalf("chunk %d offsets do not line up with rune positions", i)
		}
	}
}

func TestSplitDetectsHeadings(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{"markdown hash", "# Getting Started\nInstall the binary first.", "Getting Started"},
		{"double hash", "## Configuration\nAll settings come from the environment.", "Configuration"},
		{"chapter title", "Chapter 12 The Long Voyage\nThe ship left at dawn.", "12 The Long Voyage"},
		{"section title", "Section B Appendices\nSee the tables below.", "B Appendices"},
		{"dotted numbering", "3.1 Metrics\nEvery request is counted.", "Metrics"},
		{"heading on second line", "\n2.4 Retention\nData is kept for a year.", "Retention"},
		{"plain prose", "The quick brown fox jumps over the lazy dog.", ""},
		{"hash without space", "#tag in running text", ""},
	}

	s, _ := NewSplitter(200, 40)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chunks, err := s.Split("doc", tc.text)
			if err != nil {
				t.Fatalf("Split() error = %v", err)
			}
			if len(chunks) == 0 {
				t.Fatal("expected at least one chunk")
			}
			if chunks[0].Heading != tc.want {
				t.Fatalf("heading = %q, want %q", chunks[0].Heading, tc.want)
			}
		})
	}
}

func TestSplitHeadingOnlyWhereChunkStartsWithIt(t *testing.T) {
	body := strings.Repeat("Plain sentences fill the rest of the page. ", 8)
	s, _ := NewSplitter(120, 30)
	chunks, err := s.Split("doc", "# Overview\n"+body)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if chunks[0].Heading != "Overview" {
		t.Fatalf("first chunk heading = %q, want %q", chunks[0].Heading, "Overview")
	}
	for _, c := range chunks[1:] {
		if c.Heading != "" {
			t.Fatalf("chunk %d starts mid-text but carries heading %q", c.Index, c.Heading)
		}
	}
}
