package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrEmptyInput       = errors.New("empty input")
	ErrIngestion        = errors.New("ingestion failed")
	ErrIndex            = errors.New("vector index error")

	ErrEmbeddingUnavailable  = errors.New("embedding capability unavailable")
	ErrGenerationUnavailable = errors.New("generation capability unavailable")
	ErrGenerationTimeout     = errors.New("generation timed out")
	ErrQueryTimeout          = errors.New("query deadline exceeded")

	ErrTemporary = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// ErrorKind names the dominant error kind for structured API responses and
// metrics labels. Timeouts are reported distinctly from failures so callers
// can decide whether a retry makes sense.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrQueryTimeout):
		return "query_timeout"
	case errors.Is(err, ErrGenerationTimeout):
		return "generation_timeout"
	case errors.Is(err, ErrGenerationUnavailable):
		return "generation_unavailable"
	case errors.Is(err, ErrEmbeddingUnavailable):
		return "embedding_unavailable"
	case errors.Is(err, ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, ErrIndex):
		return "index_error"
	case errors.Is(err, ErrIngestion):
		return "ingestion_error"
	case errors.Is(err, ErrDocumentNotFound):
		return "document_not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrTemporary):
		return "temporary"
	default:
		return "internal"
	}
}
