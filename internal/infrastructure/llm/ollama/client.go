package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/unimate/docqa/internal/core/domain"
)

// Client talks to an Ollama server. Request lifetimes are governed by the
// caller's context; the http client carries no timeout of its own so the
// query deadline can flow through unchanged.
type Client struct {
	baseURL      string
	genModel     string
	embedModel   string
	embedTimeout time.Duration
	httpClient   *http.Client
}

func New(baseURL, genModel, embedModel string, embedTimeout time.Duration) *Client {
	if embedTimeout <= 0 {
		embedTimeout = 60 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		genModel:     genModel,
		embedModel:   embedModel,
		embedTimeout: embedTimeout,
		httpClient:   &http.Client{},
	}
}

// Embedder adapts the Ollama embed endpoint to the Embedder port.
type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, domain.WrapError(domain.ErrEmptyInput, "embed", fmt.Errorf("text %d is empty", i))
		}
	}

	embedCtx, cancel := context.WithTimeout(ctx, e.client.embedTimeout)
	defer cancel()

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}
	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.postJSON(embedCtx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, wrapCapabilityError(domain.ErrEmbeddingUnavailable, "embed", err)
	}
	if len(response.Embeddings) != len(texts) {
		return nil, domain.WrapError(
			domain.ErrEmbeddingUnavailable,
			"embed",
			fmt.Errorf("embeddings/texts mismatch: %d/%d", len(response.Embeddings), len(texts)),
		)
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Generator adapts the Ollama generate endpoint to the Generator port. It
// performs no retries; a context deadline expiring mid-generation surfaces
// as ErrGenerationTimeout rather than a partial answer.
type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", domain.WrapError(domain.ErrEmptyInput, "generate", errors.New("prompt is empty"))
	}

	request := map[string]any{
		"model":  g.client.genModel,
		"prompt": prompt,
		"stream": false,
	}
	var response struct {
		Response string `json:"response"`
	}
	if err := g.client.postJSON(ctx, "/api/generate", request, &response, "generate"); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", domain.WrapError(domain.ErrGenerationTimeout, "generate", err)
		}
		return "", wrapCapabilityError(domain.ErrGenerationUnavailable, "generate", err)
	}
	return strings.TrimSpace(response.Response), nil
}

// wrapCapabilityError marks transport-level failures with the boundary's
// unavailability kind. Context cancellation passes through untouched so the
// orchestrator can tell an aborted query from a dead capability.
func wrapCapabilityError(kind error, operation string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return domain.WrapError(kind, operation, err)
}
