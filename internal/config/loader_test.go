package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
server:
  http:
    host: "127.0.0.1"
    port: 9000
    request_timeout: 3s
log:
  level: debug
  format: console
redis:
  enabled: true
  addrs: ["localhost:6380"]
  db: 2
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
  group_id: "mechlab-test"
cache:
  l1_size: 128
  ttl: 1h
engine:
  max_batch_size: 25
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ValidFile(t *testing.T) {
	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.HTTP.Host)
	assert.Equal(t, 9000, cfg.Server.HTTP.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.HTTP.RequestTimeout)
	assert.Equal(t, DefaultShutdownTimeout, cfg.Server.HTTP.ShutdownTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, []string{"localhost:6380"}, cfg.Redis.Addrs)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "mechlab-test", cfg.Kafka.GroupID)
	assert.Equal(t, "mechlab.analysis.requested", cfg.Kafka.RequestTopic)
	assert.Equal(t, 128, cfg.Cache.L1Size)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 25, cfg.Engine.MaxBatchSize)
	assert.Equal(t, DefaultBatchParallelism, cfg.Engine.BatchParallelism)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("MECHLAB_SERVER_HTTP_PORT", "9191")
	t.Setenv("MECHLAB_ENGINE_MAX_BATCH_SIZE", "10")

	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.HTTP.Port)
	assert.Equal(t, 10, cfg.Engine.MaxBatchSize)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "server: [unclosed"))
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "log:\n  level: loud\n"))
	assert.ErrorContains(t, err, "log.level")
}

func TestLoad_EmptyPathUsesEnv(t *testing.T) {
	t.Setenv("MECHLAB_LOG_LEVEL", "warn")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MECHLAB_REDIS_ENABLED", "true")
	t.Setenv("MECHLAB_REDIS_ADDRS", "r1:6379,r2:6379")
	t.Setenv("MECHLAB_CACHE_TTL", "90s")
	t.Setenv("MECHLAB_KAFKA_SECURITY_SASL_USERNAME", "svc")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, []string{"r1:6379", "r2:6379"}, cfg.Redis.Addrs)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "svc", cfg.Kafka.Security.SASLUsername)
	assert.Equal(t, DefaultHTTPPort, cfg.Server.HTTP.Port)
}

func TestMustLoad(t *testing.T) {
	assert.NotPanics(t, func() { MustLoad(createTempConfigFile(t, validConfigYAML)) })
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "absent.yaml")) })
}

func TestWatch(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)

	var level atomic.Value
	var failures atomic.Int32
	err := Watch(path, func(c *Config) { level.Store(c.Log.Level) }, func(error) { failures.Add(1) })
	require.NoError(t, err)

	updated := strings.Replace(validConfigYAML, "level: debug", "level: error", 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	assert.Eventually(t, func() bool {
		v, _ := level.Load().(string)
		return v == "error"
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, int32(0), failures.Load())
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(filepath.Join(t.TempDir(), "absent.yaml"), func(*Config) {}, nil)
	assert.Error(t, err)
}
