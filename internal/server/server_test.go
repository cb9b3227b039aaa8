package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wikid82/geogate/internal/api/handlers"
	"github.com/Wikid82/geogate/internal/app"
	"github.com/Wikid82/geogate/internal/config"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	cfg := config.Config{
		Environment: "test",
		HTTPPort:    "0",
		Gate: config.GateConfig{
			Enabled:          true,
			AllowedCountries: []string{"NG"},
			BlockLogin:       true,
			BlockAdmin:       true,
			LoginPath:        "/login",
			AdminPrefix:      "/admin",
			AccessLogCap:     10,
			BypassLogCap:     10,
			GrantTTL:         time.Minute,
			GrantMode:        config.GrantModeSession,
			SessionSecret:    "server-test-secret",
			BypassParam:      "emergency_bypass",
		},
		Admin: config.AdminConfig{Username: "admin", JWTSecret: "server-test-jwt"},
	}
	a, err := app.New(handlers.OpenTestDB(t), cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestNew_MiddlewareAndMetrics(t *testing.T) {
	s := New(newTestApp(t))
	gin.SetMode(gin.TestMode)

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.Header.Set("X-Forwarded-For", "8.8.8.8")
	w := httptest.NewRecorder()
	s.Engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))

	w = httptest.NewRecorder()
	s.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "geogate_decisions_total")

	w = httptest.NewRecorder()
	s.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRun_StopsOnCancel(t *testing.T) {
	s := New(newTestApp(t))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
