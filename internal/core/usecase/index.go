package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/unimate/docqa/internal/core/domain"
	"github.com/unimate/docqa/internal/core/ports"
)

// IndexDocumentUseCase turns a stored document into index entries:
// extract, chunk, embed in batches, then one upsert. Entries are buffered
// until every chunk has embedded successfully, so a failure partway leaves
// the index without any of the document's chunks rather than half of them.
type IndexDocumentUseCase struct {
	repo      ports.DocumentRepository
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	index     ports.VectorIndex
	batchSize int
}

func NewIndexDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	index ports.VectorIndex,
	batchSize int,
) *IndexDocumentUseCase {
	if batchSize <= 0 {
		batchSize = 16
	}
	return &IndexDocumentUseCase{
		repo:      repo,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
		batchSize: batchSize,
	}
}

func (uc *IndexDocumentUseCase) IndexByID(ctx context.Context, documentID string) error {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}
	if doc.Status == domain.StatusReady {
		// Redelivered event for an already indexed document.
		return nil
	}

	if err := uc.repo.UpdateStatus(ctx, doc.ID, domain.StatusIndexing, ""); err != nil {
		return fmt.Errorf("set status=indexing: %w", err)
	}

	pageCount, chunkCount, err := uc.indexPipeline(ctx, doc)
	if err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, doc.ID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SetIndexed(ctx, doc.ID, pageCount, chunkCount); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

func (uc *IndexDocumentUseCase) indexPipeline(ctx context.Context, doc *domain.Document) (pageCount, chunkCount int, err error) {
	extracted, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return 0, 0, fmt.Errorf("extract text: %w", err)
	}

	chunks, err := uc.chunker.Split(doc.ID, extracted.Text)
	if err != nil {
		return 0, 0, domain.WrapError(domain.ErrIngestion, "chunk document", err)
	}
	if len(chunks) == 0 {
		return 0, 0, domain.WrapError(domain.ErrIngestion, "chunk document", errors.New("chunking produced zero chunks"))
	}

	entries, err := uc.embedChunks(ctx, doc, chunks)
	if err != nil {
		return 0, 0, err
	}

	// Single upsert after every chunk embedded: all of the document's
	// entries become visible together or not at all.
	if err := uc.index.Upsert(ctx, entries); err != nil {
		return 0, 0, fmt.Errorf("index chunks: %w", err)
	}
	return extracted.PageCount, len(entries), nil
}

func (uc *IndexDocumentUseCase) embedChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.IndexEntry, error) {
	// Whitespace-only chunks carry no meaning and would be rejected by the
	// embedder; dropping them is deterministic, so chunk ids stay stable.
	indexable := chunks[:0:0]
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk.Text) != "" {
			indexable = append(indexable, chunk)
		}
	}
	if len(indexable) == 0 {
		return nil, domain.WrapError(domain.ErrEmptyInput, "embed chunks", errors.New("document has no non-empty chunks"))
	}

	entries := make([]domain.IndexEntry, 0, len(indexable))
	for start := 0; start < len(indexable); start += uc.batchSize {
		end := start + uc.batchSize
		if end > len(indexable) {
			end = len(indexable)
		}
		batch := indexable[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}

		vectors, err := uc.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks: %w", err)
		}
		if len(vectors) != len(batch) {
			return nil, domain.WrapError(
				domain.ErrEmbeddingUnavailable,
				"embed chunks",
				fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(batch)),
			)
		}

		for i, chunk := range batch {
			entries = append(entries, domain.IndexEntry{
				ChunkID:    chunk.ID(),
				DocumentID: doc.ID,
				ChunkIndex: chunk.Index,
				Text:       chunk.Text,
				Heading:    chunk.Heading,
				Source:     doc.Filename,
				Vector:     vectors[i],
			})
		}
	}
	return entries, nil
}
