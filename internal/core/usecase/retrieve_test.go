package usecase

import (
	"context"
	"testing"

	"github.com/unimate/docqa/internal/core/domain"
	"github.com/unimate/docqa/internal/core/ports"
)

func scoredEntries(scores ...float64) []ports.ScoredEntry {
	out := make([]ports.ScoredEntry, len(scores))
	for i, score := range scores {
		out[i] = ports.ScoredEntry{
			Entry: domain.IndexEntry{
				ChunkID:    "doc:0",
				DocumentID: "doc",
				ChunkIndex: i,
				Text:       "chunk text",
				Source:     "doc.txt",
			},
			Score: score,
		}
	}
	return out
}

func TestRetrieveAppliesRelevanceFloor(t *testing.T) {
	embedder := &embedderFake{queryVec: []float32{0.1, 0.2}}
	vector := &vectorFake{scored: scoredEntries(0.9, 0.5, 0.2, 0.1)}
	r := NewRetriever(embedder, vector, 3, 0.25)

	result, err := r.Retrieve(context.Background(), domain.Question{Text: "what is alpha?"})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(result.Passages) != 2 {
		t.Fatalf("passages = %d, want 2 above the 0.25 floor", len(result.Passages))
	}
	if result.Passages[0].Score != 0.9 || result.Passages[1].Score != 0.5 {
		t.Fatalf("passage scores = %v, want descending 0.9, 0.5", result.Passages)
	}
}

func TestRetrieveUsesDefaultKAndOverride(t *testing.T) {
	embedder := &embedderFake{queryVec: []float32{1}}
	vector := &vectorFake{}
	r := NewRetriever(embedder, vector, 3, 0)

	if _, err := r.Retrieve(context.Background(), domain.Question{Text: "q"}); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if _, err := r.Retrieve(context.Background(), domain.Question{Text: "q", TopK: 7}); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	if len(vector.queriedK) != 2 || vector.queriedK[0] != 3 || vector.queriedK[1] != 7 {
		t.Fatalf("queried k = %v, want [3 7]", vector.queriedK)
	}
}

func TestRetrieveEmptyResultIsNotAnError(t *testing.T) {
	embedder := &embedderFake{queryVec: []float32{1}}
	vector := &vectorFake{scored: scoredEntries(0.1, 0.05)}
	r := NewRetriever(embedder, vector, 3, 0.25)

	result, err := r.Retrieve(context.Background(), domain.Question{Text: "anything?"})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if !result.Empty() {
		t.Fatalf("expected empty result, got %d passages", len(result.Passages))
	}
}

func TestRetrieveEmbedFailurePropagates(t *testing.T) {
	embedder := &embedderFake{queryErr: domain.WrapError(domain.ErrEmbeddingUnavailable, "embed query", context.DeadlineExceeded)}
	r := NewRetriever(embedder, &vectorFake{}, 3, 0.25)

	_, err := r.Retrieve(context.Background(), domain.Question{Text: "q"})
	if !domain.IsKind(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("Retrieve() error = %v, want ErrEmbeddingUnavailable", err)
	}
}
