package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/unimate/docqa/internal/core/domain"
	"github.com/unimate/docqa/internal/core/ports"
)

type statusCall struct {
	status domain.DocumentStatus
	errMsg string
}

type repoFake struct {
	docs map[string]*domain.Document

	getErr    error
	createErr error
	statusErr error

	created     []*domain.Document
	statusCalls []statusCall
	indexedID   string
	indexedPage int
	indexedChk  int
	deletedIDs  []string
}

func newRepoFake(docs ...*domain.Document) *repoFake {
	f := &repoFake{docs: make(map[string]*domain.Document)}
	for _, doc := range docs {
		f.docs[doc.ID] = doc
	}
	return f
}

func (f *repoFake) Create(_ context.Context, doc *domain.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, doc)
	f.docs[doc.ID] = doc
	return nil
}

func (f *repoFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New(id))
	}
	copyDoc := *doc
	return &copyDoc, nil
}

func (f *repoFake) UpdateStatus(_ context.Context, _ string, status domain.DocumentStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	return f.statusErr
}

func (f *repoFake) SetIndexed(_ context.Context, id string, pageCount, chunkCount int) error {
	f.indexedID = id
	f.indexedPage = pageCount
	f.indexedChk = chunkCount
	return nil
}

func (f *repoFake) Delete(_ context.Context, id string) error {
	f.deletedIDs = append(f.deletedIDs, id)
	delete(f.docs, id)
	return nil
}

type storageFake struct {
	saveErr   error
	removeErr error

	savedKeys   []string
	savedBytes  [][]byte
	removedKeys []string
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.savedKeys = append(f.savedKeys, key)
	f.savedBytes = append(f.savedBytes, raw)
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	for i, saved := range f.savedKeys {
		if saved == key {
			return io.NopCloser(bytes.NewReader(f.savedBytes[i])), nil
		}
	}
	return nil, errors.New("not found: " + key)
}

func (f *storageFake) Remove(_ context.Context, key string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removedKeys = append(f.removedKeys, key)
	return nil
}

type queueFake struct {
	publishErr      error
	publishFailures int

	published []string
}

func (f *queueFake) PublishDocumentStored(_ context.Context, documentID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	if f.publishFailures > 0 {
		f.publishFailures--
		return errors.New("queue unavailable")
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *queueFake) SubscribeDocumentStored(context.Context, func(context.Context, string) error) error {
	return nil
}

type extractorFake struct {
	text  string
	pages int
	err   error
}

func (f *extractorFake) Extract(context.Context, *domain.Document) (ports.ExtractedText, error) {
	if f.err != nil {
		return ports.ExtractedText{}, f.err
	}
	return ports.ExtractedText{Text: f.text, PageCount: f.pages}, nil
}

type chunkerFake struct {
	chunks []domain.Chunk
	err    error
}

func (f *chunkerFake) Split(documentID, _ string) ([]domain.Chunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Chunk, len(f.chunks))
	for i, chunk := range f.chunks {
		chunk.DocumentID = documentID
		out[i] = chunk
	}
	return out, nil
}

// embedderFake returns one vector per input or fails on the Nth call.
type embedderFake struct {
	dim        int
	failAtCall int
	queryVec   []float32
	queryErr   error

	calls      int
	embedded   []string
	queryTexts []string
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.failAtCall > 0 && f.calls >= f.failAtCall {
		return nil, domain.WrapError(domain.ErrEmbeddingUnavailable, "embed", errors.New("embedder down"))
	}
	f.embedded = append(f.embedded, texts...)
	out := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, f.dim)
		vec[0] = float32(i + 1)
		out[i] = vec
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.queryTexts = append(f.queryTexts, text)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryVec, nil
}

type vectorFake struct {
	upsertErr error
	queryErr  error
	deleteErr error
	scored    []ports.ScoredEntry

	upserted   [][]domain.IndexEntry
	queried    [][]float32
	queriedK   []int
	deletedDoc []string
}

func (f *vectorFake) Upsert(_ context.Context, entries []domain.IndexEntry) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, entries)
	return nil
}

func (f *vectorFake) Query(_ context.Context, vector []float32, k int) ([]ports.ScoredEntry, error) {
	f.queried = append(f.queried, vector)
	f.queriedK = append(f.queriedK, k)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.scored, nil
}

func (f *vectorFake) DeleteByDocument(_ context.Context, documentID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedDoc = append(f.deletedDoc, documentID)
	return nil
}

type generatorFake struct {
	text  string
	err   error
	delay bool

	prompts []string
}

func (f *generatorFake) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.delay {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}
