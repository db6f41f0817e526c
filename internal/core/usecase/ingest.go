package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/unimate/docqa/internal/core/domain"
	"github.com/unimate/docqa/internal/core/ports"
)

// IngestDocumentUseCase stores a source document and queues it for
// indexing. Ingestion is idempotent on content: the document id is the
// content hash, so uploading identical bytes again returns the stored
// document without re-chunking or re-embedding anything.
type IngestDocumentUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	filename, mimeType string,
	raw []byte,
) (*domain.Document, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, domain.WrapError(domain.ErrEmptyInput, "upload document", errors.New("document body is empty"))
	}

	id := domain.ContentHash(raw)

	existing, err := uc.repo.GetByID(ctx, id)
	if err == nil {
		// The short-circuit only holds once the content made it into the
		// index. A row still in stored (the indexing event was lost) or
		// failed needs its event queued again, or nothing ever picks the
		// document up.
		if existing.Status == domain.StatusStored || existing.Status == domain.StatusFailed {
			if err := uc.queue.PublishDocumentStored(ctx, existing.ID); err != nil {
				return nil, fmt.Errorf("publish stored event: %w", err)
			}
		}
		return existing, nil
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		return nil, fmt.Errorf("check existing document: %w", err)
	}

	storageKey := fmt.Sprintf("%s_%s", id[:16], sanitizeFilename(filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, bytes.NewReader(raw)); err != nil {
		return nil, domain.WrapError(domain.ErrIngestion, "save to object storage", err)
	}

	doc := &domain.Document{
		ID:          id,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: storageKey,
		SizeBytes:   int64(len(raw)),
		Status:      domain.StatusStored,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		// Best effort: without a metadata row the stored object is
		// unreachable, so don't leave it behind.
		_ = uc.storage.Remove(ctx, storageKey)
		return nil, fmt.Errorf("create document metadata: %w", err)
	}

	if err := uc.queue.PublishDocumentStored(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("publish stored event: %w", err)
	}

	return doc, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
