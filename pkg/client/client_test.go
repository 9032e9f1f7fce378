package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MechanismLab/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]Option{WithRetryWait(time.Millisecond, 5*time.Millisecond)}, opts...)
	c, err := NewClient(server.URL, opts...)
	require.NoError(t, err)
	return c
}

type testLogger struct {
	mu      sync.Mutex
	lastMsg string
	count   int32
}

func (l *testLogger) Debugf(format string, args ...interface{}) { l.log(format, args...) }
func (l *testLogger) Infof(format string, args ...interface{})  { l.log(format, args...) }
func (l *testLogger) Errorf(format string, args ...interface{}) { l.log(format, args...) }

func (l *testLogger) log(format string, args ...interface{}) {
	atomic.AddInt32(&l.count, 1)
	l.mu.Lock()
	l.lastMsg = fmt.Sprintf(format, args...)
	l.mu.Unlock()
}

func writeJSONBody(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("http://api.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "http://api.example.com", c.baseURL)
	assert.Equal(t, 3, c.retryMax)
	assert.Contains(t, c.userAgent, "mechlab-go-sdk/")
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	for _, u := range []string{"", "ftp://host", "no-scheme", "http://[::1"} {
		_, err := NewClient(u)
		assert.ErrorIs(t, err, ErrInvalidConfig, u)
		assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidConfig), u)
	}
}

func TestClient_Reactions_LazyInit(t *testing.T) {
	c, err := NewClient("http://api.example.com")
	require.NoError(t, err)
	assert.Nil(t, c.reactions)
	r1 := c.Reactions()
	assert.Same(t, r1, c.Reactions())
}

func TestClient_Headers(t *testing.T) {
	var got http.Header
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		writeJSONBody(w, http.StatusOK, map[string]string{})
	})

	require.NoError(t, c.get(context.Background(), "api/v1/tables", nil))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Contains(t, got.Get("User-Agent"), "mechlab-go-sdk/")
	assert.NotEmpty(t, got.Get("X-Request-ID"))
}

func TestClient_RetriesServerErrorsWithSameRequestID(t *testing.T) {
	var calls int32
	var mu sync.Mutex
	ids := map[string]bool{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ids[r.Header.Get("X-Request-ID")] = true
		mu.Unlock()
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"notation":"CCO"}`, string(body))
		if atomic.AddInt32(&calls, 1) < 3 {
			writeJSONBody(w, http.StatusServiceUnavailable, map[string]string{"code": "COMMON_008", "message": "service unavailable"})
			return
		}
		writeJSONBody(w, http.StatusOK, map[string]int{"carbons": 2})
	})

	var out struct{ Carbons int }
	require.NoError(t, c.post(context.Background(), "/api/v1/notation/parse", map[string]string{"notation": "CCO"}, &out))
	assert.Equal(t, 2, out.Carbons)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Len(t, ids, 1)
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSONBody(w, http.StatusBadRequest, map[string]string{
			"code": "CHEM_002", "message": "invalid solvent", "detail": "value=ionic",
		})
	})

	err := c.post(context.Background(), "/api/v1/mechanisms/score", map[string]string{}, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, errors.ErrCodeInvalidCondition, apiErr.ErrorCode())
	assert.Equal(t, "value=ionic", apiErr.Detail)
	assert.NotEmpty(t, apiErr.RequestID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_RetryExhausted(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}, WithRetryMax(2))

	err := c.get(context.Background(), "/api/v1/tables", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsServerError())
	assert.Equal(t, string(errors.CodeUnknown), apiErr.Code)
	assert.Equal(t, "upstream down", apiErr.Message)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_RateLimitedHonoursRetryAfter(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "1")
			writeJSONBody(w, http.StatusTooManyRequests, map[string]string{"code": "COMMON_007", "message": "too many requests"})
			return
		}
		writeJSONBody(w, http.StatusOK, map[string]string{})
	})

	start := time.Now()
	require.NoError(t, c.get(context.Background(), "/api/v1/tables", nil))
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_ContextCancelledDuringBackoff(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, WithRetryWait(time.Second, time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := c.get(ctx, "/api/v1/tables", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	logger := &testLogger{}
	c, err := NewClient(url, WithRetryMax(1), WithRetryWait(time.Millisecond, time.Millisecond), WithLogger(logger))
	require.NoError(t, err)

	err = c.get(context.Background(), "/api/v1/tables", nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
	assert.Greater(t, atomic.LoadInt32(&logger.count), int32(0))
}

func TestClient_UndecodableResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	})
	var out map[string]string
	err := c.get(context.Background(), "/api/v1/tables", &out)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialization))
}

func TestClient_CalculateBackoff(t *testing.T) {
	c, err := NewClient("http://localhost", WithRetryWait(100*time.Millisecond, 300*time.Millisecond))
	require.NoError(t, err)

	b1 := c.calculateBackoff(1)
	assert.GreaterOrEqual(t, b1, 100*time.Millisecond)
	assert.Less(t, b1, 125*time.Millisecond)

	b5 := c.calculateBackoff(5)
	assert.GreaterOrEqual(t, b5, 300*time.Millisecond)
	assert.Less(t, b5, 375*time.Millisecond)
}
