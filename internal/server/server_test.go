package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiermaster/backend/internal/auth"
	"github.com/tiermaster/backend/internal/handlers"
	"github.com/tiermaster/backend/internal/middleware"
	"github.com/tiermaster/backend/internal/observability"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRoutes(health func(context.Context) map[string]string) Routes {
	issuer := auth.NewIssuer("server-test", 0)
	return Routes{
		Handler:       handlers.NewHandler(handlers.Deps{}),
		Sessions:      issuer,
		SessionCookie: "tm_session",
		Metrics:       observability.NewMetrics(),
		Health:        health,
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		stats  map[string]string
		status int
	}{
		{"up", map[string]string{"status": "up"}, http.StatusOK},
		{"down", map[string]string{"status": "down", "error": "db down"}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := RegisterRoutes(newRoutes(func(context.Context) map[string]string { return tt.stats }))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.stats["status"])
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := RegisterRoutes(newRoutes(nil))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tiermaster_http_request_duration_seconds")
}

func TestRequestIDEchoed(t *testing.T) {
	r := RegisterRoutes(newRoutes(nil))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get(middleware.RequestIDHeader))
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	r := RegisterRoutes(newRoutes(nil))

	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/vote"},
		{http.MethodDelete, "/api/vote"},
		{http.MethodPut, "/api/vote"},
		{http.MethodPost, "/api/submit"},
		{http.MethodGet, "/api/submit/remaining"},
		{http.MethodGet, "/api/user/info"},
		{http.MethodGet, "/api/me"},
		{http.MethodGet, "/api/admin/suggestions"},
		{http.MethodPost, "/api/admin/process-suggestion"},
		{http.MethodPost, "/api/admin/items"},
		{http.MethodPost, "/api/admin/reset"},
		{http.MethodPost, "/api/admin/seed"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(rt.method, rt.path, nil))
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestCORSConfig(t *testing.T) {
	open := corsConfig(nil)
	assert.True(t, open.AllowAllOrigins)
	assert.False(t, open.AllowCredentials)

	wildcard := corsConfig([]string{"*"})
	assert.True(t, wildcard.AllowAllOrigins)

	strict := corsConfig([]string{"https://tiermaster.example"})
	assert.False(t, strict.AllowAllOrigins)
	assert.True(t, strict.AllowCredentials)
	assert.Equal(t, []string{"https://tiermaster.example"}, strict.AllowOrigins)
}

func TestCORSPreflight(t *testing.T) {
	rt := newRoutes(nil)
	rt.CORSOrigins = []string{"https://tiermaster.example"}
	r := RegisterRoutes(rt)

	req := httptest.NewRequest(http.MethodOptions, "/api/vote", nil)
	req.Header.Set("Origin", "https://tiermaster.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://tiermaster.example", w.Header().Get("Access-Control-Allow-Origin"))
}
