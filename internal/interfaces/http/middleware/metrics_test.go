package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MechanismLab/internal/infrastructure/monitoring/prometheus"
)

func TestMetrics_RecordsByRoute(t *testing.T) {
	c, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "mechlab"}, nil)
	require.NoError(t, err)
	m, err := prometheus.NewEngineMetrics(c)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Post("/api/v1/mechanisms/score", okHandler().ServeHTTP)
	r.Get("/api/v1/tables", statusHandler(http.StatusServiceUnavailable).ServeHTTP)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/mechanisms/score", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/mechanisms/score", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/tables", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := string(body)

	assert.Contains(t, out, `mechlab_http_requests_total{method="POST",route="/api/v1/mechanisms/score",status="200"} 2`)
	assert.Contains(t, out, `mechlab_http_requests_total{method="GET",route="/api/v1/tables",status="503"} 1`)
	assert.Contains(t, out, `mechlab_http_requests_total{method="GET",route="unmatched",status="404"} 1`)
	assert.Contains(t, out, `mechlab_http_active_requests 0`)
}

func TestMetrics_NilPassthrough(t *testing.T) {
	w := httptest.NewRecorder()
	Metrics(nil)(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
