package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/pscheid92/fortyfive/internal/platform/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthOK(_ context.Context) error { return nil }

func healthErr(msg string) func(context.Context) error {
	return func(_ context.Context) error { return errors.New(msg) }
}

func TestHandleLiveness(t *testing.T) {
	srv := newTestServer(t)

	rec := serve(srv, http.MethodGet, "/health/live", "", false)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"uptime"`)
}

func TestHandleReadiness_AllHealthy(t *testing.T) {
	srv := newTestServer(t, withHealthChecks(
		HealthCheck{Name: "redis", Check: healthOK},
		HealthCheck{Name: "database", Check: healthOK},
	))

	rec := serve(srv, http.MethodGet, "/health/ready", "", false)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
}

func TestHandleReadiness_ReportsFirstFailure(t *testing.T) {
	srv := newTestServer(t, withHealthChecks(
		HealthCheck{Name: "redis", Check: healthOK},
		HealthCheck{Name: "database", Check: healthErr("connection refused")},
	))

	rec := serve(srv, http.MethodGet, "/health/ready", "", false)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unhealthy","failed_check":"database","error":"connection refused"}`, rec.Body.String())
}

func TestHandleReadiness_NoChecks(t *testing.T) {
	srv := newTestServer(t)

	rec := serve(srv, http.MethodGet, "/health/ready", "", false)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleVersion(t *testing.T) {
	srv := newTestServer(t)

	rec := serve(srv, http.MethodGet, "/version", "", false)

	require.Equal(t, http.StatusOK, rec.Code)
	var info version.Info
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, version.Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

func TestMetricsRoute(t *testing.T) {
	srv := newTestServer(t, withMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("fortyfive_up 1\n"))
	})))

	rec := serve(srv, http.MethodGet, "/metrics", "", false)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fortyfive_up 1\n", rec.Body.String())
}

func TestMetricsRoute_NotRegisteredWithoutHandler(t *testing.T) {
	srv := newTestServer(t)

	rec := serve(srv, http.MethodGet, "/metrics", "", false)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
