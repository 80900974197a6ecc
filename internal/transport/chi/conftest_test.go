package chi

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragsearch/internal/domain"
	healthuc "github.com/kailas-cloud/ragsearch/internal/usecase/health"
	queryuc "github.com/kailas-cloud/ragsearch/internal/usecase/query"
	"github.com/kailas-cloud/ragsearch/internal/usecase/ratelimit"
)

// mockQuerier implements Querier for tests.
type mockQuerier struct {
	resp   queryuc.Response
	err    error
	tokens int
	got    queryuc.Request
	calls  int
}

func (m *mockQuerier) Execute(ctx context.Context, req queryuc.Request) (queryuc.Response, error) {
	m.calls++
	m.got = req
	if m.tokens > 0 {
		domain.UsageFromContext(ctx).AddEmbeddingTokens(m.tokens)
	}
	return m.resp, m.err
}

type mockChecker struct {
	err error
}

func (m *mockChecker) HealthCheck(_ context.Context) error { return m.err }

type testServer struct {
	search *mockQuerier
	chat   *mockQuerier
	db     *mockChecker
	router http.Handler
}

func newTestServer(t *testing.T, trusted ...string) *testServer {
	t.Helper()
	tp, err := ratelimit.ParseTrustedProxies(trusted)
	if err != nil {
		t.Fatalf("ParseTrustedProxies: %v", err)
	}
	ts := &testServer{search: &mockQuerier{}, chat: &mockQuerier{}, db: &mockChecker{}}
	health := healthuc.New(0, healthuc.Probe{Name: "database", Checker: ts.db, Critical: true})
	srv := NewServer(ts.search, ts.chat, health, tp, zap.NewNop())
	ts.router = NewRouter(srv, RouterConfig{}, zap.NewNop())
	return ts
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.RemoteAddr = "198.51.100.7:5555"
	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	return rr
}

func ratelimitNone() ratelimit.TrustedProxies {
	return ratelimit.TrustedProxies{}
}
