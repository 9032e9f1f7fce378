package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/MechanismLab/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MechanismLab/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MechanismLab/internal/interfaces/http/handlers"
	"github.com/turtacn/MechanismLab/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies of the
// route tree. Nil handlers leave their routes unregistered and nil
// middleware dependencies disable that middleware.
type RouterConfig struct {
	ReactionHandler *handlers.ReactionHandler
	HealthHandler   *handlers.HealthHandler

	Logger         logging.Logger
	Metrics        *prometheus.EngineMetrics
	MetricsHandler http.Handler
	MetricsPath    string // defaults to /metrics

	// CORS is applied when it lists at least one origin.
	CORS        middleware.CORSConfig
	RateLimiter middleware.RateLimiter

	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// NewRouter builds the route tree. Health endpoints and /metrics sit outside the API
// group so they are never rate limited or timed out.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}

	r := chi.NewRouter()
	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.RequestLogging(cfg.Logger, middleware.DefaultLoggingConfig()))
	if len(cfg.CORS.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(cfg.CORS))
	}

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterRoutes(r)
	}
	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(api chi.Router) {
		if cfg.RateLimiter != nil {
			api.Use(middleware.RateLimit(cfg.RateLimiter, middleware.ClientIP))
		}
		if cfg.RequestTimeout > 0 {
			api.Use(chimw.Timeout(cfg.RequestTimeout))
		}
		api.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

		if cfg.ReactionHandler != nil {
			cfg.ReactionHandler.RegisterRoutes(api)
		}
	})

	return r
}
