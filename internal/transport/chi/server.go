package chi

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragsearch/internal/domain"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/ragsearch/internal/logger"
	healthuc "github.com/kailas-cloud/ragsearch/internal/usecase/health"
	queryuc "github.com/kailas-cloud/ragsearch/internal/usecase/query"
	"github.com/kailas-cloud/ragsearch/internal/usecase/ratelimit"
)

// maxBodyBytes caps request bodies; queries are short.
const maxBodyBytes = 16 << 10

// UserHeader carries the CMS user id. Honoured only from trusted proxies.
const UserHeader = "X-Ragsearch-User"

// Querier runs one query profile.
type Querier interface {
	Execute(ctx context.Context, req queryuc.Request) (queryuc.Response, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the search and chat API.
type Server struct {
	search        Querier
	chat          Querier
	health        *healthuc.Service
	trusted       ratelimit.TrustedProxies
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. chat may be nil to disable /chat.
func NewServer(
	search, chat Querier,
	health *healthuc.Service,
	trusted ratelimit.TrustedProxies,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:  search,
		chat:    chat,
		health:  health,
		trusted: trusted,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		rateLimitHandler,
		sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, domain.CodeEmptyQuery),
		sentinelHandler(domain.ErrQueryTooLong, http.StatusBadRequest, domain.CodeQueryTooLong),
		sentinelHandler(domain.ErrNotConfigured, http.StatusInternalServerError, domain.CodeNotConfigured),
		sentinelHandler(domain.ErrUpstreamFailure, http.StatusInternalServerError, domain.CodeUpstreamFailure),
	}
	return s
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  *int   `json:"top_k,omitempty"`
}

type searchResponse struct {
	Query   string          `json:"query"`
	Summary *string         `json:"summary"`
	Results []result.Result `json:"results"`
	Total   int             `json:"total"`
}

type chatRequest struct {
	Question string `json:"question"`
	Query    string `json:"query,omitempty"` // accepted when question is absent
	TopK     *int   `json:"top_k,omitempty"`
}

type chatResponse struct {
	Answer  string          `json:"answer"`
	Sources []result.Source `json:"sources"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Search handles POST /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	topK, ok := topKParam(w, req.TopK)
	if !ok {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.search.Execute(ctx, queryuc.Request{
		Query:    req.Query,
		TopK:     topK,
		ClientID: s.clientID(r),
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	results := resp.Results
	if results == nil {
		results = []result.Result{}
	}
	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, searchResponse{
		Query:   resp.Query,
		Summary: resp.Summary,
		Results: results,
		Total:   resp.Total,
	})
}

// Chat handles POST /api/v1/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		writeError(w, http.StatusNotFound, domain.CodeBadRequest, "chat is disabled")
		return
	}

	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	topK, ok := topKParam(w, req.TopK)
	if !ok {
		return
	}
	question := req.Question
	if question == "" {
		question = req.Query
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.chat.Execute(ctx, queryuc.Request{
		Query:    question,
		TopK:     topK,
		ClientID: s.clientID(r),
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	sources := resp.Sources
	if sources == nil {
		sources = []result.Source{}
	}
	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, chatResponse{Answer: resp.Answer, Sources: sources})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// clientID resolves the rate-limit identity of the caller.
func (s *Server) clientID(r *http.Request) string {
	var userID int64
	if v := r.Header.Get(UserHeader); v != "" && s.fromTrustedProxy(r) {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
			userID = id
		}
	}
	return ratelimit.ClientIdentity(r.RemoteAddr, r.Header, userID, s.trusted)
}

func (s *Server) fromTrustedProxy(r *http.Request) bool {
	if s.trusted.Empty() {
		return false
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	addr, err := netip.ParseAddr(host)
	return err == nil && s.trusted.Contains(addr.Unmap())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, domain.CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// topKParam validates an explicit top_k; absent means "use the profile default".
func topKParam(w http.ResponseWriter, p *int) (int, bool) {
	if p == nil {
		return 0, true
	}
	if *p <= 0 {
		writeError(w, http.StatusBadRequest, domain.CodeBadRequest, "top_k must be positive")
		return 0, false
	}
	return *p, true
}

func setUsageHeaders(w http.ResponseWriter, usage *domain.Usage) {
	if usage != nil && usage.Embedded {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.EmbeddingTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyQuery,
		domain.ErrQueryTooLong,
		domain.ErrRateLimited,
		domain.ErrNotConfigured,
		domain.ErrUpstreamFailure,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// rateLimitHandler handles ErrRateLimited with a Retry-After header in whole seconds.
func rateLimitHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrRateLimited) {
		return false
	}
	var rle *domain.RateLimitError
	if errors.As(err, &rle) && rle.RetryAfter > 0 {
		secs := int(math.Ceil(rle.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"code":        domain.CodeRateLimitExceeded,
			"message":     "Too many requests. Please try again later.",
			"retry_after": secs,
		})
		return true
	}
	writeError(w, http.StatusTooManyRequests, domain.CodeRateLimitExceeded, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logpkg.FromContextOr(r.Context(), s.logger)
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			logger.Warn("domain error", zap.Error(err))
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, domain.CodeInternalError, "internal error")
}

