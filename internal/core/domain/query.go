package domain

import "time"

// QueryState tracks a question through the answer pipeline. A query visits
// each state at most once and always ends in exactly one terminal state.
type QueryState string

const (
	QueryReceived   QueryState = "received"
	QueryRetrieving QueryState = "retrieving"
	QueryPrompting  QueryState = "prompting"
	QueryGenerating QueryState = "generating"
	QueryCompleted  QueryState = "completed"
	QueryFailed     QueryState = "failed"
	QueryTimedOut   QueryState = "timed_out"
)

func (s QueryState) Terminal() bool {
	switch s {
	case QueryCompleted, QueryFailed, QueryTimedOut:
		return true
	default:
		return false
	}
}

// Question is a transient query against the indexed corpus. TopK <= 0 means
// the configured default.
type Question struct {
	Text string `json:"text"`
	TopK int    `json:"top_k,omitempty"`
}

// RetrievedPassage is one chunk returned by a similarity query, scored by
// cosine similarity against the question vector.
type RetrievedPassage struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Source     string  `json:"source"`
	Heading    string  `json:"heading,omitempty"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// Preview returns a bounded excerpt for source attribution in responses.
func (p RetrievedPassage) Preview(maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(p.Text)
	if len(runes) <= maxRunes {
		return p.Text
	}
	return string(runes[:maxRunes]) + "..."
}

// RetrievalResult is an ordered sequence of passages, scores non-increasing,
// at most K entries. An empty result means no passage cleared the relevance
// floor; that is a valid outcome, not an error.
type RetrievalResult struct {
	Passages []RetrievedPassage `json:"passages"`
}

func (r RetrievalResult) Empty() bool {
	return len(r.Passages) == 0
}

// Answer is the terminal outcome of one query: synthesized text, the
// retrieval it was grounded on, wall time, and the terminal state reached.
type Answer struct {
	Text      string          `json:"text"`
	Sources   RetrievalResult `json:"sources"`
	Elapsed   time.Duration   `json:"elapsed"`
	State     QueryState      `json:"state"`
	ErrorKind string          `json:"error_kind,omitempty"`
}
