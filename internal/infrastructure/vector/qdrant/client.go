package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/unimate/docqa/internal/core/domain"
	"github.com/unimate/docqa/internal/core/ports"
)

// pointNamespace makes chunk ids into stable Qdrant point UUIDs, so
// re-upserting the same chunk replaces its point (last writer wins).
var pointNamespace = uuid.MustParse("7d3e9a54-1c7b-4c2e-9b6f-2d8a41c0f5e1")

// Client is a VectorIndex over the Qdrant REST API. The collection is
// created lazily with the configured dimensionality and Cosine distance;
// the same metric therefore applies at ingest and query time.
type Client struct {
	baseURL    string
	collection string
	dim        int
	httpClient *http.Client

	ensureMu sync.Mutex
	ensured  bool
}

func New(baseURL, collection string, dim int) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		dim:        dim,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Upsert(ctx context.Context, entries []domain.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, entry := range entries {
		if len(entry.Vector) != c.dim {
			return domain.WrapError(
				domain.ErrIndex,
				"upsert",
				fmt.Errorf("chunk %s: vector dimensionality %d, index expects %d", entry.ChunkID, len(entry.Vector), c.dim),
			)
		}
	}

	if err := c.ensureCollection(ctx); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(entries))
	for _, entry := range entries {
		points = append(points, point{
			ID:     uuid.NewSHA1(pointNamespace, []byte(entry.ChunkID)).String(),
			Vector: entry.Vector,
			Payload: map[string]any{
				"chunk_id":    entry.ChunkID,
				"doc_id":      entry.DocumentID,
				"chunk_index": entry.ChunkIndex,
				"source":      entry.Source,
				"heading":     entry.Heading,
				"text":        entry.Text,
			},
		})
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", c.collection)
	if err := c.send(ctx, http.MethodPut, path, map[string]any{"points": points}, nil, "upsert"); err != nil {
		return domain.WrapError(domain.ErrIndex, "upsert", err)
	}
	return nil
}

func (c *Client) Query(ctx context.Context, vector []float32, k int) ([]ports.ScoredEntry, error) {
	if len(vector) != c.dim {
		return nil, domain.WrapError(
			domain.ErrIndex,
			"query",
			fmt.Errorf("query vector dimensionality %d, index expects %d", len(vector), c.dim),
		)
	}
	if k <= 0 {
		return nil, nil
	}

	// A fresh deployment has no collection yet; searching it would 404.
	// Creating it here means an empty corpus yields an empty result.
	if err := c.ensureCollection(ctx); err != nil {
		return nil, err
	}

	request := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var response struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}

	path := fmt.Sprintf("/collections/%s/points/search", c.collection)
	if err := c.send(ctx, http.MethodPost, path, request, &response, "search"); err != nil {
		return nil, domain.WrapError(domain.ErrIndex, "query", err)
	}

	out := make([]ports.ScoredEntry, 0, len(response.Result))
	for _, r := range response.Result {
		out = append(out, ports.ScoredEntry{
			Score: r.Score,
			Entry: domain.IndexEntry{
				ChunkID:    payloadString(r.Payload, "chunk_id"),
				DocumentID: payloadString(r.Payload, "doc_id"),
				ChunkIndex: payloadInt(r.Payload, "chunk_index"),
				Source:     payloadString(r.Payload, "source"),
				Heading:    payloadString(r.Payload, "heading"),
				Text:       payloadString(r.Payload, "text"),
			},
		})
	}

	// Qdrant orders by score; equal scores get a deterministic order by
	// document id then chunk position.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Entry.DocumentID != out[j].Entry.DocumentID {
			return out[i].Entry.DocumentID < out[j].Entry.DocumentID
		}
		return out[i].Entry.ChunkIndex < out[j].Entry.ChunkIndex
	})
	return out, nil
}

func (c *Client) DeleteByDocument(ctx context.Context, documentID string) error {
	if err := c.ensureCollection(ctx); err != nil {
		return err
	}

	request := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{
					"key":   "doc_id",
					"match": map[string]any{"value": documentID},
				},
			},
		},
	}
	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", c.collection)
	if err := c.send(ctx, http.MethodPost, path, request, nil, "delete"); err != nil {
		return domain.WrapError(domain.ErrIndex, "delete by document", err)
	}
	return nil
}

func (c *Client) ensureCollection(ctx context.Context) error {
	c.ensureMu.Lock()
	if c.ensured {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	request := map[string]any{
		"vectors": map[string]any{
			"size":     c.dim,
			"distance": "Cosine",
		},
	}

	path := fmt.Sprintf("/collections/%s", c.collection)
	err := c.send(ctx, http.MethodPut, path, request, nil, "ensure collection")
	if err != nil {
		var statusErr *statusError
		// 409 means the collection already exists.
		if errors.As(err, &statusErr) && statusErr.code == http.StatusConflict {
			err = nil
		}
	}
	if err != nil {
		return domain.WrapError(domain.ErrIndex, "ensure collection", err)
	}

	c.ensureMu.Lock()
	c.ensured = true
	c.ensureMu.Unlock()
	return nil
}

type statusError struct {
	operation string
	code      int
	status    string
	body      string
}

func (e *statusError) Error() string {
	if strings.TrimSpace(e.body) == "" {
		return fmt.Sprintf("qdrant %s status: %s", e.operation, e.status)
	}
	return fmt.Sprintf("qdrant %s status: %s: %s", e.operation, e.status, strings.TrimSpace(e.body))
}

func (c *Client) send(ctx context.Context, method, path string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &statusError{
			operation: operation,
			code:      resp.StatusCode,
			status:    resp.Status,
			body:      string(raw),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func payloadString(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func payloadInt(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
