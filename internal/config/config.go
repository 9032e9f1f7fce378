// Package config defines the configuration structures for MechanismLab.
// No I/O lives here, only plain data types and validation.
package config

import (
	"time"

	"github.com/turtacn/MechanismLab/internal/infrastructure/database/redis"
	"github.com/turtacn/MechanismLab/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/MechanismLab/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MechanismLab/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MechanismLab/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// HTTPConfig holds HTTP server tunables.
type HTTPConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`

	// CORSAllowedOrigins enables CORS for the listed origins; "*" allows any.
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`

	// RateLimitRPS is the sustained per-client request rate. 0 disables
	// rate limiting.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

type ServerConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`
}

// KafkaConfig holds the broker connection and the analysis topics.
type KafkaConfig struct {
	Enabled           bool                 `mapstructure:"enabled"`
	Brokers           []string             `mapstructure:"brokers"`
	GroupID           string               `mapstructure:"group_id"`
	AutoOffsetReset   string               `mapstructure:"auto_offset_reset"` // "earliest" | "latest"
	RequestTopic      string               `mapstructure:"request_topic"`
	CompletedTopic    string               `mapstructure:"completed_topic"`
	DeadLetterTopic   string               `mapstructure:"dead_letter_topic"`
	MaxRetries        int                  `mapstructure:"max_retries"`
	RetryBackoff      time.Duration        `mapstructure:"retry_backoff"`
	AutoCreateTopics  bool                 `mapstructure:"auto_create_topics"`
	NumPartitions     int                  `mapstructure:"num_partitions"`
	ReplicationFactor int                  `mapstructure:"replication_factor"`
	Security          kafka.SecurityConfig `mapstructure:"security"`
}

// ProducerConfig derives the producer settings.
func (k KafkaConfig) ProducerConfig() kafka.ProducerConfig {
	return kafka.ProducerConfig{Brokers: k.Brokers, Acks: "all", Security: k.Security}
}

// ConsumerConfig derives the consumer settings for the request topic.
func (k KafkaConfig) ConsumerConfig() kafka.ConsumerConfig {
	return kafka.ConsumerConfig{
		Brokers:         k.Brokers,
		GroupID:         k.GroupID,
		Topics:          []string{k.RequestTopic},
		AutoOffsetReset: k.AutoOffsetReset,
		Security:        k.Security,
		RetryConfig: kafka.RetryConfig{
			MaxRetries:      k.MaxRetries,
			RetryBackoff:    k.RetryBackoff,
			DeadLetterTopic: k.DeadLetterTopic,
		},
	}
}

// CacheConfig controls the in-process L1 memo and the redis L2 entries.
type CacheConfig struct {
	L1Size    int           `mapstructure:"l1_size"`
	TTL       time.Duration `mapstructure:"ttl"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

type MetricsConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	Namespace            string `mapstructure:"namespace"`
	Path                 string `mapstructure:"path"`
	EnableGoMetrics      bool   `mapstructure:"enable_go_metrics"`
	EnableProcessMetrics bool   `mapstructure:"enable_process_metrics"`
}

// CollectorConfig derives the prometheus collector settings.
func (m MetricsConfig) CollectorConfig() prometheus.CollectorConfig {
	return prometheus.CollectorConfig{
		Namespace:            m.Namespace,
		EnableGoMetrics:      m.EnableGoMetrics,
		EnableProcessMetrics: m.EnableProcessMetrics,
	}
}

// EngineConfig bounds batch work.
type EngineConfig struct {
	MaxBatchSize      int `mapstructure:"max_batch_size"`
	BatchParallelism  int `mapstructure:"batch_parallelism"`
	WorkerConcurrency int `mapstructure:"worker_concurrency"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration. Every binary reads its settings from the
// relevant sub-struct.
type Config struct {
	Server  ServerConfig      `mapstructure:"server"`
	Log     logging.LogConfig `mapstructure:"log"`
	Redis   redis.RedisConfig `mapstructure:"redis"`
	Kafka   KafkaConfig       `mapstructure:"kafka"`
	Cache   CacheConfig       `mapstructure:"cache"`
	Metrics MetricsConfig     `mapstructure:"metrics"`
	Engine  EngineConfig      `mapstructure:"engine"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate returns the first semantic error in a fully populated Config.
// Callers treat any error as fatal.
func (c *Config) Validate() error {
	if c.Server.HTTP.Port < 1 || c.Server.HTTP.Port > 65535 {
		return invalid("server.http.port %d is out of range [1, 65535]", c.Server.HTTP.Port)
	}
	if c.Server.HTTP.MaxBodyBytes < 0 {
		return invalid("server.http.max_body_bytes must be ≥ 0, got %d", c.Server.HTTP.MaxBodyBytes)
	}
	if c.Server.HTTP.RateLimitRPS < 0 {
		return invalid("server.http.rate_limit_rps must be ≥ 0, got %g", c.Server.HTTP.RateLimitRPS)
	}
	if c.Server.HTTP.RateLimitRPS > 0 && c.Server.HTTP.RateLimitBurst < 1 {
		return invalid("server.http.rate_limit_burst must be ≥ 1 when rate limiting is enabled")
	}

	switch c.Log.Level {
	case logging.LevelDebug, logging.LevelInfo, logging.LevelWarn, logging.LevelError:
	default:
		return invalid("log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return invalid("log.format %q is invalid; expected json|console", c.Log.Format)
	}

	if c.Redis.Enabled {
		if len(c.Redis.Addrs) == 0 {
			return invalid("redis.addrs must contain at least one address when redis is enabled")
		}
		if c.Redis.DB < 0 {
			return invalid("redis.db must be ≥ 0, got %d", c.Redis.DB)
		}
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return invalid("kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.GroupID == "" {
			return invalid("kafka.group_id is required")
		}
		if c.Kafka.RequestTopic == "" || c.Kafka.CompletedTopic == "" {
			return invalid("kafka.request_topic and kafka.completed_topic are required")
		}
		if c.Kafka.MaxRetries < 0 {
			return invalid("kafka.max_retries must be ≥ 0, got %d", c.Kafka.MaxRetries)
		}
	}

	if c.Cache.L1Size < 0 {
		return invalid("cache.l1_size must be ≥ 0, got %d", c.Cache.L1Size)
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return invalid("metrics.namespace is required when metrics are enabled")
	}

	if c.Engine.MaxBatchSize < 1 {
		return invalid("engine.max_batch_size must be ≥ 1, got %d", c.Engine.MaxBatchSize)
	}
	if c.Engine.BatchParallelism < 1 {
		return invalid("engine.batch_parallelism must be ≥ 1, got %d", c.Engine.BatchParallelism)
	}
	if c.Engine.WorkerConcurrency < 1 {
		return invalid("engine.worker_concurrency must be ≥ 1, got %d", c.Engine.WorkerConcurrency)
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return errors.Newf(errors.ErrCodeInvalidConfig, "config: "+format, args...)
}
