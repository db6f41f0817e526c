package httpadapter

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/unimate/docqa/internal/config"
	"github.com/unimate/docqa/internal/core/domain"
	"github.com/unimate/docqa/internal/core/ports"
	"github.com/unimate/docqa/internal/observability/metrics"
)

const maxUploadBytes = 32 << 20

type Router struct {
	cfg      config.Config
	ingest   ports.DocumentIngestor
	answerer ports.QuestionAnswerer
	docs     ports.DocumentReader
	deleter  ports.DocumentDeleter
	metrics  *metrics.HTTPServerMetrics
	service  string
}

func NewRouter(
	cfg config.Config,
	ingest ports.DocumentIngestor,
	answerer ports.QuestionAnswerer,
	docs ports.DocumentReader,
	deleter ports.DocumentDeleter,
	m *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:      cfg,
		ingest:   ingest,
		answerer: answerer,
		docs:     docs,
		deleter:  deleter,
		metrics:  m,
		service:  "docqa-api",
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/metrics", rt.metrics.Handler())
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.documentByID)
	mux.HandleFunc("/v1/ask", rt.ask)

	var handler http.Handler = mux
	handler = rt.metrics.Middleware(rt.service, handler)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "multipart field 'file' is required")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "failed to read uploaded file")
		return
	}

	doc, err := rt.ingest.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		raw,
	)
	if err != nil {
		rt.metrics.RecordIngest(rt.service, "error")
		writeErrorFor(w, err)
		return
	}

	status := http.StatusAccepted
	outcome := "accepted"
	if doc.Status != domain.StatusStored {
		// Same content seen before: report the existing document.
		status = http.StatusOK
		outcome = "duplicate"
	}
	rt.metrics.RecordIngest(rt.service, outcome)
	writeJSON(w, status, doc)
}

func (rt *Router) documentByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "invalid_input", "document id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		doc, err := rt.docs.GetByID(r.Context(), id)
		if err != nil {
			writeErrorFor(w, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	case http.MethodDelete:
		if err := rt.deleter.Delete(r.Context(), id); err != nil {
			writeErrorFor(w, err)
			return
		}
		rt.metrics.RecordDelete(rt.service)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

type askRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

type askSource struct {
	DocumentID string  `json:"document_id"`
	ChunkID    string  `json:"chunk_id"`
	ChunkIndex int     `json:"chunk_index"`
	Source     string  `json:"source"`
	Heading    string  `json:"heading,omitempty"`
	Score      float64 `json:"score"`
	Preview    string  `json:"preview"`
}

type askResponse struct {
	Answer    string      `json:"answer"`
	State     string      `json:"state"`
	ElapsedMS int64       `json:"elapsed_ms"`
	Sources   []askSource `json:"sources"`
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "empty_input", "question is required")
		return
	}

	answer, err := rt.answerer.Ask(r.Context(), domain.Question{
		Text: req.Question,
		TopK: req.TopK,
	})

	passages := 0
	state := ""
	elapsed := time.Duration(0)
	if answer != nil {
		passages = len(answer.Sources.Passages)
		state = string(answer.State)
		elapsed = answer.Elapsed
	}
	rt.metrics.RecordQuery(rt.service, state, passages, elapsed)

	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), domain.ErrorKind(err), err.Error())
		return
	}

	sources := make([]askSource, 0, passages)
	for _, p := range answer.Sources.Passages {
		sources = append(sources, askSource{
			DocumentID: p.DocumentID,
			ChunkID:    p.ChunkID,
			ChunkIndex: p.ChunkIndex,
			Source:     p.Source,
			Heading:    p.Heading,
			Score:      p.Score,
			Preview:    p.Preview(rt.cfg.SourcePreviewChars),
		})
	}

	writeJSON(w, http.StatusOK, askResponse{
		Answer:    answer.Text,
		State:     state,
		ElapsedMS: elapsed.Milliseconds(),
		Sources:   sources,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]string{"kind": kind, "message": message})
}

func writeErrorFor(w http.ResponseWriter, err error) {
	writeError(w, mapErrorToHTTPStatus(err), domain.ErrorKind(err), err.Error())
}
