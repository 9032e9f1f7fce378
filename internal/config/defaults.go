package config

import (
	"math"
	"time"

	"github.com/spf13/viper"

	"github.com/turtacn/MechanismLab/internal/infrastructure/messaging/kafka"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultHTTPHost         = "0.0.0.0"
	DefaultHTTPPort         = 8080
	DefaultReadTimeout      = 10 * time.Second
	DefaultWriteTimeout     = 30 * time.Second
	DefaultIdleTimeout      = 60 * time.Second
	DefaultShutdownTimeout  = 15 * time.Second
	DefaultRequestTimeout   = 10 * time.Second
	DefaultMaxBodyBytes     = 1 << 20
	DefaultRedisAddr        = "localhost:6379"
	DefaultKafkaBroker      = "localhost:9092"
	DefaultKafkaGroupID     = "mechlab-worker"
	DefaultKafkaMaxRetries  = 3
	DefaultKafkaBackoff     = 500 * time.Millisecond
	DefaultKafkaPartitions  = 6
	DefaultKafkaReplication = 1

	DefaultL1Size    = 4096
	DefaultCacheTTL  = 24 * time.Hour
	DefaultKeyPrefix = "mechlab:"

	DefaultMetricsNamespace = "mechlab"
	DefaultMetricsPath      = "/metrics"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMaxBatchSize      = 100
	DefaultBatchParallelism  = 8
	DefaultWorkerConcurrency = 4
)

// NewDefaultConfig returns a Config with every default applied. Redis and
// Kafka stay disabled; metrics are on.
func NewDefaultConfig() *Config {
	cfg := &Config{Metrics: MetricsConfig{Enabled: true, EnableGoMetrics: true, EnableProcessMetrics: true}}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-value field in cfg. Explicit values win.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	h := &cfg.Server.HTTP
	if h.Host == "" {
		h.Host = DefaultHTTPHost
	}
	if h.Port == 0 {
		h.Port = DefaultHTTPPort
	}
	if h.ReadTimeout == 0 {
		h.ReadTimeout = DefaultReadTimeout
	}
	if h.WriteTimeout == 0 {
		h.WriteTimeout = DefaultWriteTimeout
	}
	if h.IdleTimeout == 0 {
		h.IdleTimeout = DefaultIdleTimeout
	}
	if h.ShutdownTimeout == 0 {
		h.ShutdownTimeout = DefaultShutdownTimeout
	}
	if h.RequestTimeout == 0 {
		h.RequestTimeout = DefaultRequestTimeout
	}
	if h.MaxBodyBytes == 0 {
		h.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if h.RateLimitRPS > 0 && h.RateLimitBurst == 0 {
		h.RateLimitBurst = int(math.Ceil(h.RateLimitRPS * 2))
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if len(cfg.Redis.Addrs) == 0 {
		cfg.Redis.Addrs = []string{DefaultRedisAddr}
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	k := &cfg.Kafka
	if len(k.Brokers) == 0 {
		k.Brokers = []string{DefaultKafkaBroker}
	}
	if k.GroupID == "" {
		k.GroupID = DefaultKafkaGroupID
	}
	if k.AutoOffsetReset == "" {
		k.AutoOffsetReset = "earliest"
	}
	if k.RequestTopic == "" {
		k.RequestTopic = kafka.TopicAnalysisRequested
	}
	if k.CompletedTopic == "" {
		k.CompletedTopic = kafka.TopicAnalysisCompleted
	}
	if k.DeadLetterTopic == "" {
		k.DeadLetterTopic = kafka.TopicAnalysisDeadLetter
	}
	if k.MaxRetries == 0 {
		k.MaxRetries = DefaultKafkaMaxRetries
	}
	if k.RetryBackoff == 0 {
		k.RetryBackoff = DefaultKafkaBackoff
	}
	if k.NumPartitions == 0 {
		k.NumPartitions = DefaultKafkaPartitions
	}
	if k.ReplicationFactor == 0 {
		k.ReplicationFactor = DefaultKafkaReplication
	}

	// ── Cache ─────────────────────────────────────────────────────────────────
	if cfg.Cache.L1Size == 0 {
		cfg.Cache.L1Size = DefaultL1Size
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = DefaultKeyPrefix
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	if cfg.Engine.MaxBatchSize == 0 {
		cfg.Engine.MaxBatchSize = DefaultMaxBatchSize
	}
	if cfg.Engine.BatchParallelism == 0 {
		cfg.Engine.BatchParallelism = DefaultBatchParallelism
	}
	if cfg.Engine.WorkerConcurrency == 0 {
		cfg.Engine.WorkerConcurrency = DefaultWorkerConcurrency
	}
}

// registerKeys makes every key known to viper so that MECHLAB_* variables
// are picked up by Unmarshal even without a config file.
func registerKeys(v *viper.Viper) {
	d := NewDefaultConfig()
	defaults := map[string]interface{}{
		"server.http.host":                 d.Server.HTTP.Host,
		"server.http.port":                 d.Server.HTTP.Port,
		"server.http.read_timeout":         d.Server.HTTP.ReadTimeout,
		"server.http.write_timeout":        d.Server.HTTP.WriteTimeout,
		"server.http.idle_timeout":         d.Server.HTTP.IdleTimeout,
		"server.http.shutdown_timeout":     d.Server.HTTP.ShutdownTimeout,
		"server.http.request_timeout":      d.Server.HTTP.RequestTimeout,
		"server.http.max_body_bytes":       d.Server.HTTP.MaxBodyBytes,
		"server.http.cors_allowed_origins": []string{},
		"server.http.rate_limit_rps":       0.0,
		"server.http.rate_limit_burst":     0,

		"log.level":       d.Log.Level,
		"log.format":      d.Log.Format,
		"log.development": false,

		"redis.enabled":     false,
		"redis.addrs":       d.Redis.Addrs,
		"redis.master_name": "",
		"redis.username":    "",
		"redis.password":    "",
		"redis.db":          0,
		"redis.pool_size":   0,
		"redis.tls_enabled": false,

		"kafka.enabled":                 false,
		"kafka.brokers":                 d.Kafka.Brokers,
		"kafka.group_id":                d.Kafka.GroupID,
		"kafka.auto_offset_reset":       d.Kafka.AutoOffsetReset,
		"kafka.request_topic":           d.Kafka.RequestTopic,
		"kafka.completed_topic":         d.Kafka.CompletedTopic,
		"kafka.dead_letter_topic":       d.Kafka.DeadLetterTopic,
		"kafka.max_retries":             d.Kafka.MaxRetries,
		"kafka.retry_backoff":           d.Kafka.RetryBackoff,
		"kafka.auto_create_topics":      false,
		"kafka.num_partitions":          d.Kafka.NumPartitions,
		"kafka.replication_factor":      d.Kafka.ReplicationFactor,
		"kafka.security.sasl_enabled":   false,
		"kafka.security.sasl_mechanism": "",
		"kafka.security.sasl_username":  "",
		"kafka.security.sasl_password":  "",
		"kafka.security.tls_enabled":    false,
		"kafka.security.tls_ca_path":    "",

		"cache.l1_size":    d.Cache.L1Size,
		"cache.ttl":        d.Cache.TTL,
		"cache.key_prefix": d.Cache.KeyPrefix,

		"metrics.enabled":                d.Metrics.Enabled,
		"metrics.namespace":              d.Metrics.Namespace,
		"metrics.path":                   d.Metrics.Path,
		"metrics.enable_go_metrics":      d.Metrics.EnableGoMetrics,
		"metrics.enable_process_metrics": d.Metrics.EnableProcessMetrics,

		"engine.max_batch_size":     d.Engine.MaxBatchSize,
		"engine.batch_parallelism":  d.Engine.BatchParallelism,
		"engine.worker_concurrency": d.Engine.WorkerConcurrency,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}
