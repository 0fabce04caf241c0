// Package integration_test exercises the fully assembled HTTP stack:
// router, middleware chain, per-class rate limiters, admin auth, and the
// idempotent workflow endpoint, the way a deployed instance serves them.
package integration_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decidefyi/decide/internal/auth"
	"github.com/decidefyi/decide/internal/config"
	"github.com/decidefyi/decide/internal/handlers"
	"github.com/decidefyi/decide/internal/idempotency"
	"github.com/decidefyi/decide/internal/middleware"
	"github.com/decidefyi/decide/internal/policy"
	"github.com/decidefyi/decide/internal/ratelimit"
	"github.com/decidefyi/decide/internal/rules"
)

const testSecret = "integration-test-secret-0123456789abcdef"

type testEnv struct {
	router *mux.Router
	auth   *auth.Auth
	store  *idempotency.Cache
}

// setupEnv assembles the same stack main wires up, with tight quotas so
// rate limiting is observable without hundreds of requests.
func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	table, err := rules.Load()
	require.NoError(t, err)

	cfg := &config.Config{
		RateLimitEnabled:   true,
		PublicRateLimit:    5,
		PublicRateWindow:   time.Minute,
		WorkflowRateLimit:  3,
		WorkflowRateWindow: time.Minute,
		AdminRateLimit:     5,
		AdminRateWindow:    time.Minute,
		JWTSecret:          testSecret,
	}

	store := idempotency.NewCache(time.Hour)
	h := handlers.New(policy.NewEvaluator(table), table, store, nil, cfg)
	adminAuth := auth.New(cfg.JWTSecret)

	router := mux.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)

	router.HandleFunc("/health", h.HealthCheck).Methods("GET")

	public := router.PathPrefix("/api/decide").Subrouter()
	public.Use(ratelimit.Middleware(ratelimit.NewLimiter(cfg.PublicRateLimit, cfg.PublicRateWindow), true))
	public.HandleFunc("/refund", h.DecideRefund).Methods("POST")
	public.HandleFunc("/cancellation", h.DecideCancellation).Methods("POST")
	public.HandleFunc("/trial", h.DecideTrial).Methods("POST")

	rpc := router.PathPrefix("/rpc").Subrouter()
	rpc.Use(ratelimit.Middleware(ratelimit.NewLimiter(cfg.PublicRateLimit, cfg.PublicRateWindow), true))
	rpc.Handle("", h.RPCRouter()).Methods("POST")

	workflow := router.PathPrefix("/api/workflow").Subrouter()
	workflow.Use(ratelimit.Middleware(ratelimit.NewLimiter(cfg.WorkflowRateLimit, cfg.WorkflowRateWindow), true))
	workflow.HandleFunc("", h.Workflow).Methods("POST")

	admin := router.PathPrefix("/api/admin").Subrouter()
	admin.Use(ratelimit.Middleware(ratelimit.NewLimiter(cfg.AdminRateLimit, cfg.AdminRateWindow), true))
	admin.Use(adminAuth.RequireAdmin)
	admin.HandleFunc("/rules/export", h.ExportRules).Methods("GET")

	return &testEnv{router: router, auth: adminAuth, store: store}
}

func (env *testEnv) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.RemoteAddr = "203.0.113.10:51000"
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func TestDecisionFlowThroughFullStack(t *testing.T) {
	env := setupEnv(t)

	rec := env.do("POST", "/api/decide/refund", `{"vendor":"dropbox","region":"DE","days_since_purchase":2}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))

	var decision policy.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	assert.Equal(t, policy.VerdictAllowed, decision.Verdict)
}

func TestQuotaExhaustionAcrossEndpointClasses(t *testing.T) {
	env := setupEnv(t)

	// Burn the workflow quota.
	body := `{"ticket_id":"ZD-1","workflow":"trial","vendor":"notion"}`
	for i := 0; i < 3; i++ {
		rec := env.do("POST", "/api/workflow", body, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := env.do("POST", "/api/workflow", body, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// The public class has its own independent quota.
	rec = env.do("POST", "/api/decide/trial", `{"vendor":"notion"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWorkflowReplayThroughFullStack(t *testing.T) {
	env := setupEnv(t)

	body := `{"ticket_id":"ZD-1","workflow":"refund","vendor":"adobe","days_since_purchase":5,"region":"US","plan":"individual"}`
	first := env.do("POST", "/api/workflow", body, nil)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Empty(t, first.Header().Get(handlers.ReplayHeader))

	second := env.do("POST", "/api/workflow", body, nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "true", second.Header().Get(handlers.ReplayHeader))

	var resp struct {
		Replayed       bool            `json:"replayed"`
		IdempotencyKey string          `json:"idempotency_key"`
		Decision       json.RawMessage `json:"decision"`
	}
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.True(t, resp.Replayed)
	assert.Equal(t, "ZD-1:refund:adobe:5:US:individual", resp.IdempotencyKey)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	env := setupEnv(t)

	rec := env.do("GET", "/api/admin/rules/export", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := env.auth.IssueToken("ops", auth.RoleAdmin, time.Hour)
	require.NoError(t, err)

	rec = env.do("GET", "/api/admin/rules/export", "", map[string]string{
		"Authorization": "Bearer " + token,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
}

func TestRPCThroughFullStack(t *testing.T) {
	env := setupEnv(t)

	body := `{"jsonrpc":"2.0","method":"policy.cancellation","params":{"vendor":"adobe"},"id":7}`
	rec := env.do("POST", "/rpc", body, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Result policy.Decision `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, policy.VerdictConditional, resp.Result.Verdict)
	assert.Equal(t, policy.CodePenaltyApplies, resp.Result.Code)
}

func TestHealthBypassesRateLimits(t *testing.T) {
	env := setupEnv(t)

	for i := 0; i < 20; i++ {
		rec := env.do("GET", "/health", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}
