package ports

import (
	"context"
	"io"

	"github.com/unimate/docqa/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SetIndexed(ctx context.Context, id string, pageCount, chunkCount int) error
	Delete(ctx context.Context, id string) error
}

// ObjectStorage stores raw source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// MessageQueue hands stored documents to the indexing worker.
type MessageQueue interface {
	PublishDocumentStored(ctx context.Context, documentID string) error
	SubscribeDocumentStored(ctx context.Context, handler func(context.Context, string) error) error
}

// ExtractedText is a document's plain text plus page bookkeeping.
type ExtractedText struct {
	Text      string
	PageCount int
}

// TextExtractor turns a stored document into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (ExtractedText, error)
}

// Chunker splits extracted text into bounded overlapping chunks. The output
// is deterministic for identical input so re-indexing identical content
// produces identical chunk ids.
type Chunker interface {
	Split(documentID, text string) ([]domain.Chunk, error)
}

// Embedder maps text to fixed-dimensionality vectors. Embed preserves input
// order and must produce the same vectors as embedding each item alone.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ScoredEntry pairs an index entry with its similarity to a query vector.
type ScoredEntry struct {
	Entry domain.IndexEntry
	Score float64
}

// VectorIndex persists embeddings and answers nearest-neighbor queries.
// Upsert is idempotent by chunk id and rejects vectors whose dimensionality
// differs from the index's configured size. Query clamps k to the index
// size and returns entries by non-increasing cosine similarity.
type VectorIndex interface {
	Upsert(ctx context.Context, entries []domain.IndexEntry) error
	Query(ctx context.Context, vector []float32, k int) ([]ScoredEntry, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}

// Generator is the capability boundary over the language model. Complete
// honors the context deadline and never retries on its own.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
