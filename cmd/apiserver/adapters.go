package main

import (
	"context"
	"time"

	"github.com/turtacn/MechanismLab/internal/application/reaction"
	"github.com/turtacn/MechanismLab/internal/config"
	"github.com/turtacn/MechanismLab/internal/infrastructure/database/redis"
	"github.com/turtacn/MechanismLab/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/MechanismLab/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MechanismLab/internal/interfaces/http/handlers"
)

const eventSource = "mechlab-apiserver"

// dependencies holds the optional infrastructure clients and what they
// contribute to the service and the readiness check.
type dependencies struct {
	options  []reaction.Option
	checkers []handlers.HealthChecker
	closers  []func() error
}

func (d *dependencies) Close(logger logging.Logger) {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			logger.Warn("failed to close dependency", logging.Err(err))
		}
	}
}

// connectDependencies connects to redis and kafka when they are enabled.
// A disabled dependency leaves the engine on its in-process cache or
// without asynchronous submission.
func connectDependencies(cfg *config.Config, logger logging.Logger) (*dependencies, error) {
	deps := &dependencies{}

	if cfg.Redis.Enabled {
		client, err := redis.NewClient(&cfg.Redis, logger.Named("redis"))
		if err != nil {
			return nil, err
		}
		deps.closers = append(deps.closers, client.Close)
		cache := redis.NewRedisCache(client, logger.Named("cache"),
			redis.WithPrefix(cfg.Cache.KeyPrefix),
			redis.WithDefaultTTL(cfg.Cache.TTL),
		)
		deps.options = append(deps.options, reaction.WithCache(cache))
		deps.checkers = append(deps.checkers, handlers.CheckerFunc("redis", client.Ping))
		logger.Info("redis cache enabled", logging.Strings("addrs", cfg.Redis.Addrs))
	}

	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(cfg.Kafka.ProducerConfig(), logger.Named("kafka"))
		if err != nil {
			deps.Close(logger)
			return nil, err
		}
		deps.closers = append(deps.closers, producer.Close)
		deps.checkers = append(deps.checkers, handlers.CheckerFunc("kafka", producer.Ready))
		publisher := kafka.NewEventPublisher(producer, eventSource)
		deps.options = append(deps.options, reaction.WithPublisher(publisher, cfg.Kafka.RequestTopic))
		logger.Info("asynchronous analysis enabled", logging.String("topic", cfg.Kafka.RequestTopic))
	}

	return deps, nil
}

// serviceChecker reports the engine itself on the readiness check.
func serviceChecker(svc reaction.Service) handlers.HealthChecker {
	return handlers.CheckerFunc("engine", func(ctx context.Context) error {
		return svc.Ready(ctx)
	})
}

// purgeStaleCache drops shared cache entries left by an older weight-table
// version. Failure only costs recomputation, so it is logged.
func purgeStaleCache(svc reaction.Service, logger logging.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := svc.PurgeStaleCache(ctx); err != nil {
		logger.Warn("stale cache purge failed", logging.Err(err))
	}
}
