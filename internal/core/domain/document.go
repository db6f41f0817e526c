package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

type DocumentStatus string

const (
	StatusStored   DocumentStatus = "stored"
	StatusIndexing DocumentStatus = "indexing"
	StatusReady    DocumentStatus = "ready"
	StatusFailed   DocumentStatus = "failed"
)

// Document is an ingested source file. The ID is the SHA-256 of the raw
// source bytes, so identical content always maps to the same document and
// re-ingestion can short-circuit without touching the embedder.
type Document struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	SizeBytes   int64          `json:"size_bytes"`
	PageCount   int            `json:"page_count,omitempty"`
	ChunkCount  int            `json:"chunk_count,omitempty"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ContentHash derives the document identifier from raw source bytes.
func ContentHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Chunk is one bounded span of a document's extracted text. Start and End
// are rune offsets into the full text; consecutive chunks overlap.
type Chunk struct {
	DocumentID string `json:"document_id"`
	Index      int    `json:"index"`
	Text       string `json:"text"`
	Heading    string `json:"heading,omitempty"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
}

// ID is stable across re-chunking of identical content, which keeps vector
// index upserts idempotent per chunk.
func (c Chunk) ID() string {
	return fmt.Sprintf("%s:%d", c.DocumentID, c.Index)
}

// IndexEntry is the unit persisted in the vector index: a chunk, its
// embedding, and a snapshot of document metadata for attribution.
type IndexEntry struct {
	ChunkID    string    `json:"chunk_id"`
	DocumentID string    `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"text"`
	Heading    string    `json:"heading,omitempty"`
	Source     string    `json:"source"`
	Vector     []float32 `json:"vector"`
}
