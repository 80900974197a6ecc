package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragsearch/internal/domain"
	"github.com/kailas-cloud/ragsearch/internal/domain/search/result"
	queryuc "github.com/kailas-cloud/ragsearch/internal/usecase/query"
)

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return out
}

// --- Search ---

func TestSearch_HappyPath(t *testing.T) {
	ts := newTestServer(t)
	summary := "<p>We build sites.</p>"
	ts.search.tokens = 7
	ts.search.resp = queryuc.Response{
		Query:   "wordpress services",
		Summary: &summary,
		Results: []result.Result{{PostID: 7, Title: "Services", URL: "https://example.com/services/", Score: 0.9}},
		Total:   1,
	}

	rr := ts.do(http.MethodPost, "/api/v1/search", `{"query":"wordpress services","top_k":3}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if ts.search.got.Query != "wordpress services" || ts.search.got.TopK != 3 {
		t.Errorf("unexpected request: %+v", ts.search.got)
	}
	if ts.search.got.ClientID != "198.51.100.7" {
		t.Errorf("client id = %q", ts.search.got.ClientID)
	}
	if rr.Header().Get("X-Embedding-Tokens") != "7" {
		t.Errorf("X-Embedding-Tokens = %q", rr.Header().Get("X-Embedding-Tokens"))
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}

	body := decode(t, rr)
	if body["summary"] != summary || body["total"] != float64(1) || body["query"] != "wordpress services" {
		t.Errorf("unexpected body: %v", body)
	}
	results := body["results"].([]any)
	if len(results) != 1 || results[0].(map[string]any)["post_id"] != float64(7) {
		t.Errorf("unexpected results: %v", results)
	}
}

func TestSearch_NullSummaryAndEmptyResults(t *testing.T) {
	ts := newTestServer(t)
	ts.search.resp = queryuc.Response{Query: "q"}

	rr := ts.do(http.MethodPost, "/api/v1/search", `{"query":"q"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	raw := rr.Body.String()
	if !strings.Contains(raw, `"summary":null`) || !strings.Contains(raw, `"results":[]`) {
		t.Errorf("unexpected body: %s", raw)
	}
	if ts.search.got.TopK != 0 {
		t.Errorf("absent top_k should pass 0, got %d", ts.search.got.TopK)
	}
}

func TestSearch_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"query":`},
		{"zero top_k", `{"query":"q","top_k":0}`},
		{"negative top_k", `{"query":"q","top_k":-2}`},
		{"oversized body", `{"query":"` + strings.Repeat("a", maxBodyBytes) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			rr := ts.do(http.MethodPost, "/api/v1/search", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rr.Code)
			}
			if decode(t, rr)["code"] != domain.CodeBadRequest {
				t.Error("expected bad_request code")
			}
			if ts.search.calls != 0 {
				t.Error("pipeline must not run for invalid input")
			}
		})
	}
}

func TestSearch_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"empty query", domain.ErrEmptyQuery, http.StatusBadRequest, domain.CodeEmptyQuery},
		{"too long", domain.ErrQueryTooLong, http.StatusBadRequest, domain.CodeQueryTooLong},
		{"not configured", domain.ErrNotConfigured, http.StatusInternalServerError, domain.CodeNotConfigured},
		{
			"upstream", fmt.Errorf("%w: embed query: %w", domain.ErrUpstreamFailure, errors.New("dial tcp 10.0.0.3:443")),
			http.StatusInternalServerError, domain.CodeUpstreamFailure,
		},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, domain.CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.search.err = tt.err

			rr := ts.do(http.MethodPost, "/api/v1/search", `{"query":"q"}`)
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			body := decode(t, rr)
			if body["code"] != tt.wantErr {
				t.Errorf("code = %v, want %s", body["code"], tt.wantErr)
			}
			if strings.Contains(fmt.Sprint(body["message"]), "10.0.0.3") {
				t.Error("internal details leaked to client")
			}
		})
	}
}

func TestSearch_RateLimited(t *testing.T) {
	ts := newTestServer(t)
	ts.search.err = fmt.Errorf("rate limit: %w", domain.NewRateLimited(41500*time.Millisecond))

	rr := ts.do(http.MethodPost, "/api/v1/search", `{"query":"q"}`)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "42" {
		t.Errorf("Retry-After = %q", rr.Header().Get("Retry-After"))
	}
	body := decode(t, rr)
	if body["code"] != domain.CodeRateLimitExceeded || body["retry_after"] != float64(42) {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestSearch_ClientIdentityFromTrustedProxy(t *testing.T) {
	ts := newTestServer(t, "198.51.100.0/24")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(`{"query":"q"}`))
	req.RemoteAddr = "198.51.100.7:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.50, 198.51.100.7")
	ts.router.ServeHTTP(httptest.NewRecorder(), req)

	if ts.search.got.ClientID != "203.0.113.50" {
		t.Errorf("client id = %q, want forwarded address", ts.search.got.ClientID)
	}
}

func TestSearch_ForwardedHeaderIgnoredFromUntrustedPeer(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(`{"query":"q"}`))
	req.RemoteAddr = "198.51.100.7:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.50")
	ts.router.ServeHTTP(httptest.NewRecorder(), req)

	if ts.search.got.ClientID != "198.51.100.7" {
		t.Errorf("client id = %q, want peer address", ts.search.got.ClientID)
	}
}

// --- Chat ---

func TestChat_HappyPath(t *testing.T) {
	ts := newTestServer(t)
	ts.chat.resp = queryuc.Response{
		Answer:  "We offer hosting.",
		Sources: []result.Source{{Title: "Hosting", URL: "https://example.com/hosting/", Score: 0.8}},
	}

	rr := ts.do(http.MethodPost, "/api/v1/chat", `{"question":"Do you host?"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ts.chat.got.Query != "Do you host?" {
		t.Errorf("query = %q", ts.chat.got.Query)
	}
	body := decode(t, rr)
	if body["answer"] != "We offer hosting." {
		t.Errorf("answer = %v", body["answer"])
	}
	if len(body["sources"].([]any)) != 1 {
		t.Errorf("sources = %v", body["sources"])
	}
}

func TestChat_QueryFieldFallback(t *testing.T) {
	ts := newTestServer(t)
	ts.do(http.MethodPost, "/api/v1/chat", `{"query":"pricing?"}`)
	if ts.chat.got.Query != "pricing?" {
		t.Errorf("query = %q", ts.chat.got.Query)
	}
}

func TestChat_EmptySourcesSerializeAsArray(t *testing.T) {
	ts := newTestServer(t)
	ts.chat.resp = queryuc.Response{Answer: "No idea."}

	rr := ts.do(http.MethodPost, "/api/v1/chat", `{"question":"q"}`)
	if !strings.Contains(rr.Body.String(), `"sources":[]`) {
		t.Errorf("unexpected body: %s", rr.Body.String())
	}
}

func TestChat_Disabled(t *testing.T) {
	ts := newTestServer(t)
	srv := NewServer(ts.search, nil, nil, ratelimitNone(), zap.NewNop())
	rr := httptest.NewRecorder()
	srv.Chat(rr, httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"question":"q"}`)))
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d", rr.Code)
	}
}

// --- Health & routing ---

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK || decode(t, rr)["status"] != "ok" {
		t.Fatalf("healthy: status = %d", rr.Code)
	}

	ts.db.err = errors.New("conn refused")
	rr = ts.do(http.MethodGet, "/health", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("unhealthy: status = %d", rr.Code)
	}
	checks := decode(t, rr)["checks"].(map[string]any)
	if checks["database"] != "error" {
		t.Errorf("checks = %v", checks)
	}
}

func TestRouter_NotFoundAndMethod(t *testing.T) {
	ts := newTestServer(t)
	if rr := ts.do(http.MethodGet, "/api/v1/nope", ""); rr.Code != http.StatusNotFound {
		t.Errorf("not found: %d", rr.Code)
	}
	if rr := ts.do(http.MethodGet, "/api/v1/search", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("method not allowed: %d", rr.Code)
	}
}
