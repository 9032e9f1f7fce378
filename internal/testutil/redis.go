package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/turtacn/MechanismLab/internal/infrastructure/database/redis"
)

// NewMiniRedisCache starts an in-memory redis server for the duration of the
// test and returns a cache bound to it. TTL jitter is disabled so expiries
// are exact.
func NewMiniRedisCache(t testing.TB) (redis.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClientFromUniversal(goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	}), nil)
	t.Cleanup(func() { _ = client.Close() })
	return redis.NewRedisCache(client, nil, redis.WithJitter(0)), mr
}
