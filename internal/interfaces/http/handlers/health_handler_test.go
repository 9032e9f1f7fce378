package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveHealth(t *testing.T, h *HealthHandler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestHealthHandler_Liveness(t *testing.T) {
	w, body := serveHealth(t, NewHealthHandler("1.2.3"), "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alive", body["status"])
	assert.Equal(t, "1.2.3", body["version"])
}

func TestHealthHandler_Readiness(t *testing.T) {
	ok := CheckerFunc("cache", func(context.Context) error { return nil })
	down := CheckerFunc("kafka", func(context.Context) error { return errors.New("dial tcp: refused") })

	t.Run("no checkers", func(t *testing.T) {
		w, body := serveHealth(t, NewHealthHandler("dev"), "/readyz")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ready", body["status"])
	})

	t.Run("all healthy", func(t *testing.T) {
		w, body := serveHealth(t, NewHealthHandler("dev", ok), "/readyz")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ready", body["status"])
		comps := body["components"].(map[string]interface{})
		assert.Equal(t, "healthy", comps["cache"].(map[string]interface{})["status"])
	})

	t.Run("one failing", func(t *testing.T) {
		w, body := serveHealth(t, NewHealthHandler("dev", ok, down), "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "not_ready", body["status"])
		kafka := body["components"].(map[string]interface{})["kafka"].(map[string]interface{})
		assert.Equal(t, "unhealthy", kafka["status"])
		assert.Equal(t, "dial tcp: refused", kafka["error"])
	})
}
