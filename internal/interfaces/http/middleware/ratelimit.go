package middleware

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/turtacn/MechanismLab/pkg/errors"
)

// RateLimiter decides whether a request keyed by key may proceed.
type RateLimiter interface {
	Allow(key string) (bool, RateLimitInfo)
}

// RateLimitInfo is the limiter state reported in response headers.
type RateLimitInfo struct {
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// TokenBucketLimiter keeps one token bucket per client. Buckets live in a
// bounded LRU and expire after idle, so a flood of distinct clients cannot
// grow memory without limit.
type TokenBucketLimiter struct {
	rate  float64
	burst int

	mu      sync.Mutex
	buckets *expirable.LRU[string, *tokenBucket]
	now     func() time.Time
}

// NewTokenBucketLimiter allows rate requests per second with bursts up to
// burst, tracking at most maxClients clients.
func NewTokenBucketLimiter(rate float64, burst, maxClients int, idle time.Duration) *TokenBucketLimiter {
	if maxClients <= 0 {
		maxClients = 10000
	}
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	return &TokenBucketLimiter{
		rate:    rate,
		burst:   burst,
		buckets: expirable.NewLRU[string, *tokenBucket](maxClients, nil, idle),
		now:     time.Now,
	}
}

func (l *TokenBucketLimiter) bucket(key string, now time.Time) (*tokenBucket, float64, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets.Get(key)
	if !ok {
		b = &tokenBucket{tokens: float64(l.burst), lastRefill: now}
	}
	// Re-adding refreshes the idle expiry.
	l.buckets.Add(key, b)
	return b, l.rate, l.burst
}

func (l *TokenBucketLimiter) Allow(key string) (bool, RateLimitInfo) {
	now := l.now()
	b, rate, burst := l.bucket(key, now)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens = math.Min(float64(burst), b.tokens+now.Sub(b.lastRefill).Seconds()*rate)
	b.lastRefill = now

	info := RateLimitInfo{Limit: burst}
	if b.tokens >= 1 {
		b.tokens--
		info.Remaining = int(b.tokens)
		return true, info
	}
	info.RetryAfter = time.Duration((1 - b.tokens) / rate * float64(time.Second))
	return false, info
}

// SetLimit changes the rate and burst for every client. Existing buckets
// keep their tokens, capped at the new burst on their next refill.
func (l *TokenBucketLimiter) SetLimit(rate float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rate = rate
	l.burst = burst
}

// Clients reports how many clients are currently tracked.
func (l *TokenBucketLimiter) Clients() int {
	return l.buckets.Len()
}

// ClientIP keys requests by remote host. Run chi's RealIP first when the
// service sits behind a proxy.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit rejects requests over the limit with 429 and the standard
// error body.
func RateLimit(limiter RateLimiter, keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	if keyFunc == nil {
		keyFunc = ClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, info := limiter.Allow(keyFunc(r))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			if allowed {
				next.ServeHTTP(w, r)
				return
			}

			secs := int(math.Ceil(info.RetryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"code":    string(errors.ErrCodeTooManyRequests),
				"message": errors.DefaultMessageForCode(errors.ErrCodeTooManyRequests),
			})
		})
	}
}
