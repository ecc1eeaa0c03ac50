package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/gogotex/gogotex/backend/go-resource/internal/config"
	"github.com/gogotex/gogotex/backend/go-resource/internal/tokens"
)

const testSecret = "router-test-secret-32-bytes-xxxxxxx"

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Environment: "test"},
		Auth:     config.AuthConfig{Mode: "jwt", Secret: testSecret},
		Resource: config.ResourceConfig{Name: "notes", History: "notes_history", HistoryBackend: "store"},
	}
}

func testRouter(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	b, err := openBackends(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { b.close(context.Background()) })

	guard, err := authGuard(context.Background(), cfg.Auth)
	require.NoError(t, err)
	return newRouter(cfg, b, prometheus.NewRegistry(), guard)
}

func send(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_WritesRequireToken(t *testing.T) {
	r := testRouter(t, testConfig())
	tok, err := tokens.GenerateAccessToken(testSecret, "user-1", time.Minute)
	require.NoError(t, err)

	require.Equal(t, http.StatusUnauthorized, send(r, http.MethodPost, "/notes", "", map[string]any{"name": "a"}).Code)

	w := send(r, http.MethodPost, "/notes", tok, map[string]any{"name": "a"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created["_id"].(string)

	// reads stay public
	require.Equal(t, http.StatusOK, send(r, http.MethodGet, "/notes/"+id, "", nil).Code)

	w = send(r, http.MethodGet, "/notes/"+id+"/diff", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var recs []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	require.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.AuthConfig{Mode: "none"}
	r := testRouter(t, cfg)

	require.Equal(t, http.StatusCreated, send(r, http.MethodPost, "/notes", "", map[string]any{"name": "a"}).Code)

	require.Equal(t, http.StatusOK, send(r, http.MethodGet, "/health", "", nil).Code)
	require.Equal(t, http.StatusOK, send(r, http.MethodGet, "/live", "", nil).Code)
	require.Equal(t, http.StatusOK, send(r, http.MethodGet, "/ready", "", nil).Code)
	require.Equal(t, http.StatusOK, send(r, http.MethodGet, "/swagger/doc.json", "", nil).Code)

	w := send(r, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `gogotex_resource_operations_total{operation="create",outcome="ok"}`)
	require.Contains(t, w.Body.String(), `gogotex_resource_history_records_total{collection="notes_history"}`)
}

func TestRouter_HistoryDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.AuthConfig{Mode: "none"}
	cfg.Resource.History = ""
	r := testRouter(t, cfg)

	w := send(r, http.MethodGet, "/notes/any/diff", "", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), "configuration_error")
}

func TestRouter_Gzip(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.AuthConfig{Mode: "none"}
	cfg.Server.Gzip = true
	r := testRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
}

func TestRouter_RedisRateLimit(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)

	cfg := testConfig()
	cfg.Auth = config.AuthConfig{Mode: "none"}
	cfg.Redis = config.RedisConfig{Host: m.Host(), Port: m.Port()}
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, UseRedis: true, RPS: 0, Burst: 1, WindowSeconds: 60}
	r := testRouter(t, cfg)

	require.Equal(t, http.StatusOK, send(r, http.MethodGet, "/notes", "", nil).Code)
	require.Equal(t, http.StatusTooManyRequests, send(r, http.MethodGet, "/notes", "", nil).Code)
}

func TestAuthGuardModes(t *testing.T) {
	g, err := authGuard(context.Background(), config.AuthConfig{Mode: "none"})
	require.NoError(t, err)
	require.Empty(t, g)

	_, err = authGuard(context.Background(), config.AuthConfig{Mode: "jwt"})
	require.ErrorIs(t, err, tokens.ErrEmptySecret)
}
