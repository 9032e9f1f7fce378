package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultHTTPHost, cfg.Server.HTTP.Host)
	assert.Equal(t, DefaultHTTPPort, cfg.Server.HTTP.Port)
	assert.Equal(t, []string{DefaultRedisAddr}, cfg.Redis.Addrs)
	assert.Equal(t, "mechlab.analysis.requested", cfg.Kafka.RequestTopic)
	assert.Equal(t, "mechlab.analysis.dlq", cfg.Kafka.DeadLetterTopic)
	assert.Equal(t, DefaultL1Size, cfg.Cache.L1Size)
	assert.Equal(t, DefaultMaxBatchSize, cfg.Engine.MaxBatchSize)
	assert.Equal(t, "mechlab", cfg.Metrics.Namespace)
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.HTTP.Port = 9999
	cfg.Engine.MaxBatchSize = 7
	cfg.Log.Format = "console"
	ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.HTTP.Port)
	assert.Equal(t, 7, cfg.Engine.MaxBatchSize)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestApplyDefaults_Nil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}

func TestNewDefaultConfig_IsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestApplyDefaults_RateLimitBurst(t *testing.T) {
	cfg := &Config{}
	cfg.Server.HTTP.RateLimitRPS = 2.5
	ApplyDefaults(cfg)
	assert.Equal(t, 5, cfg.Server.HTTP.RateLimitBurst)

	cfg = &Config{}
	ApplyDefaults(cfg)
	assert.Zero(t, cfg.Server.HTTP.RateLimitBurst)
}
