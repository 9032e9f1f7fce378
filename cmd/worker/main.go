// Command worker consumes asynchronous analysis requests from kafka and
// publishes their results.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/MechanismLab/internal/application/reaction"
	"github.com/turtacn/MechanismLab/internal/config"
	"github.com/turtacn/MechanismLab/internal/infrastructure/database/redis"
	"github.com/turtacn/MechanismLab/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/MechanismLab/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MechanismLab/internal/infrastructure/monitoring/prometheus"
	mlhttp "github.com/turtacn/MechanismLab/internal/interfaces/http"
	"github.com/turtacn/MechanismLab/internal/interfaces/http/handlers"
)

const (
	defaultConfigPath = "configs/config.yaml"
	eventSource       = "mechlab-worker"
	shutdownTimeout   = 30 * time.Second
)

// Injected via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	workers := flag.Int("workers", 0, "concurrent consumers in the group (overrides config)")
	healthPort := flag.Int("health-port", 8081, "port for /healthz, /readyz and /metrics; 0 disables")
	flag.Parse()

	if err := run(*configPath, *workers, *healthPort); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, workers, healthPort int) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if !cfg.Kafka.Enabled {
		return fmt.Errorf("kafka is disabled, set kafka.enabled or MECHLAB_KAFKA_ENABLED")
	}
	if workers <= 0 {
		workers = cfg.Engine.WorkerConcurrency
	}
	if workers <= 0 {
		workers = 1
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named("worker")
	logger.Info("starting MechanismLab worker",
		logging.String("version", version),
		logging.Int("consumers", workers),
		logging.String("topic", cfg.Kafka.RequestTopic))

	collector, err := prometheus.NewMetricsCollector(cfg.Metrics.CollectorConfig(), logger.Named("metrics"))
	if err != nil {
		return err
	}
	metrics, err := prometheus.NewEngineMetrics(collector)
	if err != nil {
		return err
	}

	if cfg.Kafka.AutoCreateTopics {
		if err := ensureTopics(cfg.Kafka, logger); err != nil {
			return err
		}
	}

	producer, err := kafka.NewProducer(cfg.Kafka.ProducerConfig(), logger.Named("producer"))
	if err != nil {
		return err
	}
	defer producer.Close()

	svcOpts := []reaction.Option{
		reaction.WithLogger(logger.Named("engine")),
		reaction.WithMetrics(metrics),
		reaction.WithL1Size(cfg.Cache.L1Size),
		reaction.WithCacheTTL(cfg.Cache.TTL),
	}
	checkers := []handlers.HealthChecker{}
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(&cfg.Redis, logger.Named("redis"))
		if err != nil {
			return err
		}
		defer client.Close()
		svcOpts = append(svcOpts, reaction.WithCache(redis.NewRedisCache(client, logger.Named("cache"),
			redis.WithPrefix(cfg.Cache.KeyPrefix), redis.WithDefaultTTL(cfg.Cache.TTL))))
		checkers = append(checkers, handlers.CheckerFunc("redis", client.Ping))
	}
	svc, err := reaction.NewService(svcOpts...)
	if err != nil {
		return err
	}
	purgeCtx, cancelPurge := context.WithTimeout(context.Background(), 30*time.Second)
	if _, err := svc.PurgeStaleCache(purgeCtx); err != nil {
		logger.Warn("stale cache purge failed", logging.Err(err))
	}
	cancelPurge()

	publisher := kafka.NewEventPublisher(producer, eventSource)
	jobs := reaction.NewJobHandler(svc, publisher, cfg.Kafka.CompletedTopic, logger.Named("jobs"), metrics)

	consumers := make([]*kafka.Consumer, 0, workers)
	defer func() {
		for _, c := range consumers {
			_ = c.Close()
		}
	}()
	for i := 0; i < workers; i++ {
		c, err := kafka.NewConsumer(cfg.Kafka.ConsumerConfig(),
			logger.Named("consumer").With(logging.Int("consumer", i)),
			kafka.WithDeadLetterPublisher(producer),
			kafka.WithEngineMetrics(metrics),
		)
		if err != nil {
			return err
		}
		consumers = append(consumers, c)
		if err := c.Subscribe(cfg.Kafka.RequestTopic, jobs.Handle); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range consumers {
		if err := c.Start(gctx); err != nil {
			return err
		}
	}

	if healthPort > 0 {
		checkers = append(checkers,
			handlers.CheckerFunc("engine", svc.Ready),
			handlers.CheckerFunc("kafka", producer.Ready))
		router := mlhttp.NewRouter(mlhttp.RouterConfig{
			HealthHandler:  handlers.NewHealthHandler(version, checkers...),
			Logger:         logger.Named("http"),
			Metrics:        metrics,
			MetricsHandler: collector.Handler(),
		})
		httpCfg := cfg.Server.HTTP
		httpCfg.Port = healthPort
		server := mlhttp.NewServer(httpCfg, router, logger.Named("http"))
		g.Go(server.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	<-gctx.Done()
	logger.Info("shutting down worker")
	stop()
	err = g.Wait()
	for _, c := range consumers {
		_ = c.Close()
	}
	logStats(logger, producer, consumers)
	logger.Info("worker stopped")
	return err
}

// logStats summarises what the consumers and the producer handled.
func logStats(logger logging.Logger, producer *kafka.Producer, consumers []*kafka.Consumer) {
	var consumed, processed, failed, retried, deadLettered int64
	for _, c := range consumers {
		m := c.GetMetrics()
		consumed += m.MessagesConsumed.Load()
		processed += m.MessagesProcessed.Load()
		failed += m.MessagesFailed.Load()
		retried += m.MessagesRetried.Load()
		deadLettered += m.MessagesDeadLettered.Load()
	}
	pm := producer.GetMetrics()
	logger.Info("worker totals",
		logging.Int64("consumed", consumed),
		logging.Int64("processed", processed),
		logging.Int64("failed", failed),
		logging.Int64("retried", retried),
		logging.Int64("dead_lettered", deadLettered),
		logging.Int64("published", pm.MessagesSent.Load()),
		logging.Int64("publish_failures", pm.MessagesFailed.Load()))
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}

// ensureTopics creates the request, completed and dead-letter topics under
// their configured names.
func ensureTopics(cfg config.KafkaConfig, logger logging.Logger) error {
	tm, err := kafka.NewTopicManager(cfg.Brokers, logger.Named("topics"))
	if err != nil {
		return err
	}
	defer tm.Close()

	names := []string{cfg.RequestTopic, cfg.CompletedTopic, cfg.DeadLetterTopic}
	topics := kafka.DefaultTopics(cfg.NumPartitions, cfg.ReplicationFactor)
	for i := range topics {
		if names[i] != "" {
			topics[i].Name = names[i]
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return tm.EnsureTopics(ctx, topics)
}
