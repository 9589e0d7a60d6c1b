// Package chi is the HTTP API surface of the gateway.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/kbgate/internal/domain"
	logpkg "github.com/kailas-cloud/kbgate/internal/logger"
	"github.com/kailas-cloud/kbgate/internal/domain/caller"
	"github.com/kailas-cloud/kbgate/internal/domain/document"
	answeruc "github.com/kailas-cloud/kbgate/internal/usecase/answer"
	healthuc "github.com/kailas-cloud/kbgate/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/kbgate/internal/usecase/ingest"
	retrievaluc "github.com/kailas-cloud/kbgate/internal/usecase/retrieval"
)

// Request/response types for the query endpoint.

const (
	queryTypeRetrieve            = "retrieve"
	queryTypeRetrieveAndGenerate = "retrieve_and_generate"
)

type queryRequest struct {
	Query      string   `json:"query"`
	UserID     string   `json:"user_id"`
	UserGroups []string `json:"user_groups"`
	UserToken  string   `json:"user_token"`
	MaxResults int      `json:"max_results"`
	Type       string   `json:"type"`
	UseCaching *bool    `json:"use_caching"`
	Sources    []string `json:"sources"`
}

type resultItem struct {
	Content   string            `json:"content"`
	Score     float64           `json:"score"`
	Title     string            `json:"title,omitempty"`
	SourceURI string            `json:"source_uri,omitempty"`
	Source    string            `json:"source"`
	Metadata  document.Metadata `json:"metadata"`
}

type retrieveResponse struct {
	Type         string       `json:"type"`
	Query        string       `json:"query"`
	Results      []resultItem `json:"results"`
	TotalResults int          `json:"total_results"`
	Degraded     bool         `json:"degraded,omitempty"`
	Timestamp    string       `json:"timestamp"`
}

type citationItem struct {
	Title     string            `json:"title,omitempty"`
	SourceURI string            `json:"source_uri,omitempty"`
	Excerpt   string            `json:"excerpt"`
	Source    string            `json:"source"`
	Metadata  document.Metadata `json:"metadata"`
}

type generateResponse struct {
	Type              string         `json:"type"`
	Query             string         `json:"query"`
	GeneratedResponse string         `json:"generated_response"`
	Citations         []citationItem `json:"citations"`
	Cached            bool           `json:"cached"`
	Degraded          bool           `json:"degraded,omitempty"`
	Timestamp         string         `json:"timestamp"`
}

type syncResponse struct {
	JobID     string `json:"job_id"`
	Processed int    `json:"processed"`
	Failed    int    `json:"failed"`
	Timestamp string `json:"timestamp"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the gateway over HTTP. Handlers log through the
// request-scoped logger the wide-event middleware stores in the context.
type Server struct {
	retrieval     *retrievaluc.Service
	answer        *answeruc.Service
	ingest        *ingestuc.Service
	health        *healthuc.Service
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	retrieval *retrievaluc.Service,
	answer *answeruc.Service,
	ingest *ingestuc.Service,
	health *healthuc.Service,
) *Server {
	s := &Server{
		retrieval: retrieval,
		answer:    answer,
		ingest:    ingest,
		health:    health,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest),
		sentinelHandler(domain.ErrUnauthorized, http.StatusUnauthorized),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound),
		sentinelHandler(domain.ErrGenerationFailed, http.StatusBadGateway),
		sentinelHandler(domain.ErrBackendUnavailable, http.StatusBadGateway),
	}
	return s
}

// RegisterRoutes mounts the API on the given router.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/query", s.handleQuery)
	r.Post("/sync", s.handleSync)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
}

// handleQuery handles POST /query.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	queryType := req.Type
	if queryType == "" {
		queryType = queryTypeRetrieve
	}
	if queryType != queryTypeRetrieve && queryType != queryTypeRetrieveAndGenerate {
		writeError(w, http.StatusBadRequest, "type must be retrieve or retrieve_and_generate")
		return
	}

	sources, err := parseSources(req.Sources)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cl := caller.New(req.UserID, req.UserGroups, req.UserToken)

	rs, err := s.retrieval.Retrieve(r.Context(), req.Query, cl, req.MaxResults, sources)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	if queryType == queryTypeRetrieve {
		writeJSON(w, http.StatusOK, retrieveResponse{
			Type:         queryTypeRetrieve,
			Query:        req.Query,
			Results:      resultsToItems(rs.Documents),
			TotalResults: len(rs.Documents),
			Degraded:     rs.Degraded(),
			Timestamp:    timestamp(),
		})
		return
	}

	useCaching := true
	if req.UseCaching != nil {
		useCaching = *req.UseCaching
	}

	ans, err := s.answer.Generate(r.Context(), req.Query, rs.Documents, cl, useCaching)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{
		Type:              queryTypeRetrieveAndGenerate,
		Query:             req.Query,
		GeneratedResponse: ans.Text,
		Citations:         citationsToItems(ans.Citations),
		Cached:            ans.Cached,
		Degraded:          rs.Degraded(),
		Timestamp:         timestamp(),
	})
}

// handleSync handles POST /sync.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.ingest == nil {
		writeError(w, http.StatusServiceUnavailable, "ingestion is not configured")
		return
	}

	report, err := s.ingest.Sync(r.Context())
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, syncResponse{
		JobID:     report.JobID,
		Processed: report.Processed,
		Failed:    report.Failed,
		Timestamp: timestamp(),
	})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// resultsToItems converts documents to response items with sanitized
// metadata. Sanitization happens here, at the last exit point, so it
// holds for degraded responses too.
func resultsToItems(docs []document.Document) []resultItem {
	items := make([]resultItem, 0, len(docs))
	for _, d := range docs {
		items = append(items, resultItem{
			Content:   d.Content(),
			Score:     d.Score(),
			Title:     d.Title(),
			SourceURI: d.SourceURI(),
			Source:    string(d.SourceKind()),
			Metadata:  d.Metadata().Sanitized(),
		})
	}
	return items
}

func citationsToItems(citations []answeruc.Citation) []citationItem {
	items := make([]citationItem, 0, len(citations))
	for _, c := range citations {
		items = append(items, citationItem{
			Title:     c.Title,
			SourceURI: c.SourceURI,
			Excerpt:   c.Excerpt,
			Source:    string(c.Source),
			Metadata:  c.Metadata,
		})
	}
	return items
}

func parseSources(raw []string) ([]document.SourceKind, error) {
	out := make([]document.SourceKind, 0, len(raw))
	for _, s := range raw {
		kind := document.SourceKind(s)
		if kind != document.PrimaryStore && kind != document.SecondaryIndex {
			return nil, errors.New("unknown source: " + s)
		}
		out = append(out, kind)
	}
	return out, nil
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{
		Error:     message,
		Timestamp: timestamp(),
	})
}

// safeDomainMessage returns a sentinel error message for the client
// without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrValidation,
		domain.ErrUnauthorized,
		domain.ErrNotFound,
		domain.ErrGenerationFailed,
		domain.ErrBackendUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, msg)
		return true
	}
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logpkg.FromContext(ctx)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
