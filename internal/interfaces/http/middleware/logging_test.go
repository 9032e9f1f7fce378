package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MechanismLab/internal/testutil"
)

func statusHandler(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
		_, _ = w.Write([]byte("body"))
	})
}

func TestRequestLogging_Levels(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		level   string
		message string
	}{
		{"ok", http.StatusOK, "info", "http request"},
		{"client error", http.StatusBadRequest, "warn", "http request rejected"},
		{"server error", http.StatusInternalServerError, "error", "http request failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := testutil.NewMockLogger()
			r := chi.NewRouter()
			r.Use(RequestLogging(logger, DefaultLoggingConfig()))
			r.Post("/api/v1/reactions/{kind}", statusHandler(tt.status).ServeHTTP)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/reactions/analyze", nil)
			r.ServeHTTP(httptest.NewRecorder(), req)

			msg, ok := logger.Find(tt.level, tt.message)
			require.True(t, ok, "entries: %+v", logger.GetMessages())
			status, _ := msg.Field("status")
			assert.Equal(t, tt.status, status)
			route, _ := msg.Field("route")
			assert.Equal(t, "/api/v1/reactions/{kind}", route)
			bytes, _ := msg.Field("bytes")
			assert.Equal(t, 4, bytes)
		})
	}
}

func TestRequestLogging_SkipsHealthPaths(t *testing.T) {
	logger := testutil.NewMockLogger()
	handler := RequestLogging(logger, DefaultLoggingConfig())(okHandler())

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Empty(t, logger.GetMessages())
}

func TestRequestLogging_Slow(t *testing.T) {
	logger := testutil.NewMockLogger()
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
	})
	handler := RequestLogging(logger, LoggingConfig{SlowThreshold: time.Millisecond})(slow)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	msg, ok := logger.Find("warn", "http request slow")
	require.True(t, ok)
	status, _ := msg.Field("status")
	assert.Equal(t, http.StatusOK, status)
	route, _ := msg.Field("route")
	assert.Equal(t, "unmatched", route)
}

func TestRequestLogging_CarriesRequestID(t *testing.T) {
	logger := testutil.NewMockLogger()
	handler := RequestID(RequestLogging(logger, DefaultLoggingConfig())(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	msg, ok := logger.Find("info", "http request")
	require.True(t, ok)
	id, _ := msg.Field("request_id")
	assert.Equal(t, "req-42", id)
}
