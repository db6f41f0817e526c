package usecase

import (
	"context"
	"fmt"

	"github.com/unimate/docqa/internal/core/domain"
	"github.com/unimate/docqa/internal/core/ports"
)

// Retriever embeds a question and fetches its top-K nearest chunks, then
// drops everything under the relevance floor. An empty result is a valid
// answer to "what do we know about this" and is not an error.
type Retriever struct {
	embedder ports.Embedder
	index    ports.VectorIndex
	defaultK int
	floor    float64
}

func NewRetriever(embedder ports.Embedder, index ports.VectorIndex, defaultK int, floor float64) *Retriever {
	if defaultK <= 0 {
		defaultK = 3
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		defaultK: defaultK,
		floor:    floor,
	}
}

func (r *Retriever) Retrieve(ctx context.Context, question domain.Question) (domain.RetrievalResult, error) {
	k := question.TopK
	if k <= 0 {
		k = r.defaultK
	}

	vector, err := r.embedder.EmbedQuery(ctx, question.Text)
	if err != nil {
		return domain.RetrievalResult{}, fmt.Errorf("embed question: %w", err)
	}

	scored, err := r.index.Query(ctx, vector, k)
	if err != nil {
		return domain.RetrievalResult{}, fmt.Errorf("query vector index: %w", err)
	}

	passages := make([]domain.RetrievedPassage, 0, len(scored))
	for _, s := range scored {
		if s.Score < r.floor {
			// Entries arrive score-descending; everything after the first
			// miss is below the floor too.
			break
		}
		passages = append(passages, domain.RetrievedPassage{
			ChunkID:    s.Entry.ChunkID,
			DocumentID: s.Entry.DocumentID,
			ChunkIndex: s.Entry.ChunkIndex,
			Source:     s.Entry.Source,
			Heading:    s.Entry.Heading,
			Text:       s.Entry.Text,
			Score:      s.Score,
		})
	}
	return domain.RetrievalResult{Passages: passages}, nil
}
