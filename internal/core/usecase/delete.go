package usecase

import (
	"context"
	"fmt"

	"github.com/unimate/docqa/internal/core/ports"
)

// DeleteDocumentUseCase removes a document and everything derived from it.
// Index entries go first so a concurrent query can never retrieve a chunk
// whose document row is already gone.
type DeleteDocumentUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	index   ports.VectorIndex
}

func NewDeleteDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	index ports.VectorIndex,
) *DeleteDocumentUseCase {
	return &DeleteDocumentUseCase{
		repo:    repo,
		storage: storage,
		index:   index,
	}
}

func (uc *DeleteDocumentUseCase) Delete(ctx context.Context, documentID string) error {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}

	if err := uc.index.DeleteByDocument(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete index entries: %w", err)
	}
	if err := uc.storage.Remove(ctx, doc.StoragePath); err != nil {
		return fmt.Errorf("remove stored document: %w", err)
	}
	if err := uc.repo.Delete(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete document metadata: %w", err)
	}
	return nil
}
