package ports

import (
	"context"

	"github.com/unimate/docqa/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document ingestion. Upload is
// idempotent on content: identical bytes return the already stored document.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, raw []byte) (*domain.Document, error)
}

// DocumentIndexer is the inbound contract for asynchronous chunk-and-embed
// processing of a stored document.
type DocumentIndexer interface {
	IndexByID(ctx context.Context, documentID string) error
}

// QuestionAnswerer is the inbound contract for retrieval-augmented answers.
// The returned Answer is populated even when err is non-nil so callers can
// inspect the retrieval that preceded the failure.
type QuestionAnswerer interface {
	Ask(ctx context.Context, question domain.Question) (*domain.Answer, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// DocumentDeleter removes a document and everything derived from it.
type DocumentDeleter interface {
	Delete(ctx context.Context, documentID string) error
}
