package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/turtacn/MechanismLab/internal/config"
	"github.com/turtacn/MechanismLab/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/MechanismLab/pkg/errors"
)

// Server wraps http.Server with the configured timeouts.
type Server struct {
	httpServer *http.Server
	logger     logging.Logger
}

func NewServer(cfg config.HTTPConfig, handler http.Handler, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		logger: logger,
	}
}

// Addr is the configured listen address.
func (s *Server) Addr() string { return s.httpServer.Addr }

// Start listens and blocks until the server stops. A graceful shutdown is
// not an error.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to listen").WithDetail("addr=" + s.httpServer.Addr)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("http server listening", logging.String("addr", ln.Addr().String()))
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "http server failed")
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeTimeout, "http server shutdown incomplete")
	}
	s.logger.Info("http server stopped")
	return nil
}
