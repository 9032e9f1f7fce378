package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(rate float64, burst int) (*TokenBucketLimiter, *time.Time) {
	l := NewTokenBucketLimiter(rate, burst, 0, 0)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestTokenBucketLimiter_BurstThenRefill(t *testing.T) {
	l, now := newTestLimiter(2, 3)

	for i := 0; i < 3; i++ {
		ok, info := l.Allow("a")
		require.True(t, ok, "request %d", i)
		assert.Equal(t, 3, info.Limit)
		assert.Equal(t, 2-i, info.Remaining)
	}
	ok, info := l.Allow("a")
	assert.False(t, ok)
	assert.Equal(t, 500*time.Millisecond, info.RetryAfter)

	*now = now.Add(500 * time.Millisecond)
	ok, _ = l.Allow("a")
	assert.True(t, ok)
}

func TestTokenBucketLimiter_SetLimit(t *testing.T) {
	l, now := newTestLimiter(1, 5)

	for i := 0; i < 5; i++ {
		ok, _ := l.Allow("a")
		require.True(t, ok)
	}
	l.SetLimit(10, 2)

	*now = now.Add(time.Second)
	ok, info := l.Allow("a")
	require.True(t, ok)
	assert.Equal(t, 2, info.Limit)
	assert.Equal(t, 1, info.Remaining)
}

func TestTokenBucketLimiter_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, 1)

	ok, _ := l.Allow("a")
	assert.True(t, ok)
	ok, _ = l.Allow("a")
	assert.False(t, ok)
	ok, _ = l.Allow("b")
	assert.True(t, ok)
	assert.Equal(t, 2, l.Clients())
}

func TestTokenBucketLimiter_BoundedClients(t *testing.T) {
	l := NewTokenBucketLimiter(1, 1, 2, time.Minute)
	for _, k := range []string{"a", "b", "c", "d"} {
		l.Allow(k)
	}
	assert.Equal(t, 2, l.Clients())
}

func TestRateLimit_Middleware(t *testing.T) {
	l, _ := newTestLimiter(1, 1)
	handler := RateLimit(l, nil)(okHandler())

	req := func(addr string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/reactions/analyze", nil)
		r.RemoteAddr = addr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	w := req("10.0.0.1:5000")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = req("10.0.0.1:5001")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"code":"COMMON_007","message":"too many requests"}`, w.Body.String())

	w = req("10.0.0.2:5000")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.7:1234"
	assert.Equal(t, "192.0.2.7", ClientIP(r))
	r.RemoteAddr = "192.0.2.7"
	assert.Equal(t, "192.0.2.7", ClientIP(r))
}

func TestRateLimit_RetryAfterRoundsUp(t *testing.T) {
	l, _ := newTestLimiter(0.25, 1)
	handler := RateLimit(l, func(*http.Request) string { return "k" })(okHandler())
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, strconv.Itoa(4), w.Header().Get("Retry-After"))
}
