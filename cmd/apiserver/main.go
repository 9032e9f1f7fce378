// Command apiserver serves the MechanismLab HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/MechanismLab/internal/application/reaction"
	"github.com/turtacn/MechanismLab/internal/config"
	"github.com/turtacn/MechanismLab/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MechanismLab/internal/infrastructure/monitoring/prometheus"
	mlhttp "github.com/turtacn/MechanismLab/internal/interfaces/http"
	"github.com/turtacn/MechanismLab/internal/interfaces/http/handlers"
	"github.com/turtacn/MechanismLab/internal/interfaces/http/middleware"
)

const defaultConfigPath = "configs/config.yaml"

// Injected via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	if err := run(*configPath, *port); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, port int) error {
	cfg, watch, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.HTTP.Port = port
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named("apiserver")
	logger.Info("starting MechanismLab API server",
		logging.String("version", version),
		logging.Int("port", cfg.Server.HTTP.Port))

	collector, err := prometheus.NewMetricsCollector(cfg.Metrics.CollectorConfig(), logger.Named("metrics"))
	if err != nil {
		return err
	}
	metrics, err := prometheus.NewEngineMetrics(collector)
	if err != nil {
		return err
	}

	deps, err := connectDependencies(cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close(logger)

	opts := append([]reaction.Option{
		reaction.WithLogger(logger.Named("engine")),
		reaction.WithMetrics(metrics),
		reaction.WithL1Size(cfg.Cache.L1Size),
		reaction.WithCacheTTL(cfg.Cache.TTL),
		reaction.WithMaxBatchSize(cfg.Engine.MaxBatchSize),
		reaction.WithParallelism(cfg.Engine.BatchParallelism),
	}, deps.options...)
	svc, err := reaction.NewService(opts...)
	if err != nil {
		return err
	}
	purgeStaleCache(svc, logger)

	httpCfg := cfg.Server.HTTP
	routerCfg := mlhttp.RouterConfig{
		ReactionHandler: handlers.NewReactionHandler(svc, logger.Named("handlers")),
		HealthHandler:   handlers.NewHealthHandler(version, append(deps.checkers, serviceChecker(svc))...),
		Logger:          logger.Named("http"),
		Metrics:         metrics,
		CORS:            middleware.CORSConfig{AllowedOrigins: httpCfg.CORSAllowedOrigins},
		RequestTimeout:  httpCfg.RequestTimeout,
		MaxBodyBytes:    httpCfg.MaxBodyBytes,
	}
	if cfg.Metrics.Enabled {
		routerCfg.MetricsHandler = collector.Handler()
		routerCfg.MetricsPath = cfg.Metrics.Path
	}
	var limiter *middleware.TokenBucketLimiter
	if httpCfg.RateLimitRPS > 0 {
		limiter = middleware.NewTokenBucketLimiter(httpCfg.RateLimitRPS, httpCfg.RateLimitBurst, 0, 0)
		routerCfg.RateLimiter = limiter
	}

	if watch {
		watchConfig(configPath, limiter, logger)
	}

	server := mlhttp.NewServer(httpCfg, mlhttp.NewRouter(routerCfg), logger.Named("http"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpCfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", logging.Err(err))
		return err
	}
	return <-errCh
}

// loadConfig reads path when it exists and falls back to MECHLAB_*
// variables otherwise. It reports whether the file can be watched.
func loadConfig(path string) (*config.Config, bool, error) {
	if _, err := os.Stat(path); err != nil {
		cfg, err := config.LoadFromEnv()
		return cfg, false, err
	}
	cfg, err := config.Load(path)
	return cfg, err == nil, err
}

// watchConfig applies rate limit changes without a restart. Other settings
// are logged and take effect on the next start.
func watchConfig(path string, limiter *middleware.TokenBucketLimiter, logger logging.Logger) {
	err := config.Watch(path, func(cfg *config.Config) {
		httpCfg := cfg.Server.HTTP
		if limiter != nil && httpCfg.RateLimitRPS > 0 {
			limiter.SetLimit(httpCfg.RateLimitRPS, httpCfg.RateLimitBurst)
			logger.Info("rate limit updated",
				logging.Float64("rps", httpCfg.RateLimitRPS),
				logging.Int("burst", httpCfg.RateLimitBurst))
			return
		}
		logger.Info("configuration changed, restart to apply")
	}, func(err error) {
		logger.Warn("ignoring invalid configuration change", logging.Err(err))
	})
	if err != nil {
		logger.Warn("config watch disabled", logging.Err(err))
		return
	}
	logger.Info("watching configuration", logging.String("path", path))
}
