package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cartera-salud/glosas/internal/observability"
)

func newTestRouter(t *testing.T, health func(*http.Request) error) http.Handler {
	t.Helper()
	cfg, err := LoadConfig()
	require.NoError(t, err)
	return NewRouter(RouterParams{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config:  cfg,
		Metrics: observability.NewMetrics(),
		Health:  health,
	})
}

func TestHealthzReportsDependencyState(t *testing.T) {
	router := newTestRouter(t, func(*http.Request) error { return nil })
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	router = newTestRouter(t, func(*http.Request) error { return errors.New("pg down") })
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "pg down")
}

func TestRouterUnknownPathUsesEnvelope(t *testing.T) {
	router := newTestRouter(t, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nada", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, false, body["success"])
	require.Equal(t, "Recurso no encontrado.", body["message"])
}

func TestRouterSetsSecurityAndCORSHeaders(t *testing.T) {
	router := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	require.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
}

func TestRouterExposesMetrics(t *testing.T) {
	router := newTestRouter(t, nil)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "glosas_http_requests_total")
}

func TestRefreshTestModeReadsEnvironment(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	require.True(t, InTestMode())

	t.Setenv(testModeEnv, "")
	RefreshTestMode()
	require.False(t, InTestMode())
}

func TestNewLoggerHonoursFormat(t *testing.T) {
	jsonLogger := NewLogger(&Config{AppEnv: "production", LogFormat: "json"})
	require.IsType(t, &slog.JSONHandler{}, jsonLogger.Handler())
	require.False(t, jsonLogger.Enabled(context.Background(), slog.LevelDebug))

	text := NewLogger(&Config{AppEnv: "development", LogFormat: "pretty"})
	require.IsType(t, &slog.TextHandler{}, text.Handler())
	require.True(t, text.Enabled(context.Background(), slog.LevelDebug))
}
