package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dstaulcu/skill-enabled-dept-website/internal/adapter/llm"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/auth"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/config"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/domain"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/metrics"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/service"
	"github.com/dstaulcu/skill-enabled-dept-website/tests/helpers"
)

func newTestDeps(t *testing.T) Deps {
	t.Helper()
	cfg := config.Default()
	logger := helpers.DiscardLogger()
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	store := helpers.NewTestSQLiteStore(t)

	return Deps{
		Config:   cfg,
		Service:  service.New(&llm.ScriptedClient{Deltas: []string{"Hi"}, Reply: "Hi"}, store, collector, cfg, logger),
		Resolver: auth.NewResolver(auth.NewSigner(cfg.JWTSecret), domain.ModeDevelopment),
		Store:    store,
		Metrics:  collector,
		Gatherer: registry,
		Logger:   logger,
	}
}

func TestPublicServerRoutes(t *testing.T) {
	e := NewPublicServer(newTestDeps(t))

	tests := []struct {
		method string
		path   string
		body   string
		user   string
		status int
	}{
		{http.MethodGet, "/", "", "", http.StatusOK},
		{http.MethodGet, "/health", "", "", http.StatusOK},
		{http.MethodGet, "/api/config", "", "", http.StatusOK},
		{http.MethodPost, "/api/chat/", `{"messages":[]}`, "", http.StatusUnauthorized},
		{http.MethodPost, "/api/chat/", `{"messages":[]}`, "alice", http.StatusOK},
		{http.MethodPost, "/api/chat/stream", `{"messages":[]}`, "alice", http.StatusOK},
		{http.MethodGet, "/api/audit/events", "", "alice", http.StatusOK},
		{http.MethodGet, "/metrics", "", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.user != "" {
				req.Header.Set(auth.HeaderMockUser, tt.user)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestPublicServerCORS(t *testing.T) {
	e := NewPublicServer(newTestDeps(t))

	req := httptest.NewRequest(http.MethodOptions, "/api/chat/stream", nil)
	req.Header.Set("Origin", "http://localhost:3001")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "x-mock-user")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3001", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestOpsServerMetrics(t *testing.T) {
	d := newTestDeps(t)
	public := NewPublicServer(d)
	ops := NewOpsServer(d)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/", strings.NewReader(`{"messages":[]}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(auth.HeaderMockUser, "alice")
	public.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	ops.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `gateway_auth_attempts_total{mode="development",outcome="ok"} 1`)
	assert.Contains(t, rec.Body.String(), `gateway_relay_requests_total{kind="complete",outcome="ok"} 1`)

	rec = httptest.NewRecorder()
	ops.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
