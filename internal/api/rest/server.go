package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gramseva/service-delivery-backend/internal/infrastructure/telemetry"
)

// ServerConfig carries the HTTP server settings.
type ServerConfig struct {
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	ShutdownTimeout   time.Duration
	RequestsPerSecond int
	BurstSize         int
}

// Server is the HTTP front for the prediction, training and analytics
// services.
type Server struct {
	cfg     ServerConfig
	handler *Handler
	logger  *slog.Logger
	httpSrv *http.Server
}

// NewServer builds the server and its route table.
func NewServer(cfg ServerConfig, handler *Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
	}

	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.buildRoutes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the fully assembled HTTP handler, for embedding under
// additional instrumentation.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// SetHandler replaces the server's handler, used to wrap it with outer
// instrumentation before starting.
func (s *Server) SetHandler(h http.Handler) {
	s.httpSrv.Handler = h
}

func (s *Server) buildRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handler.handleHealth)
	mux.HandleFunc("GET /readyz", s.handler.handleReady)

	mux.HandleFunc("POST /api/v1/services", s.handler.handleCreateService)
	mux.HandleFunc("GET /api/v1/services", s.handler.handleListServices)
	mux.HandleFunc("GET /api/v1/services/{id}", s.handler.handleGetService)
	mux.HandleFunc("PATCH /api/v1/services/{id}", s.handler.handleUpdateService)

	mux.HandleFunc("POST /api/v1/predictions", s.handler.handlePredict)
	mux.HandleFunc("POST /api/v1/analytics", s.handler.handleAnalytics)
	mux.HandleFunc("POST /api/v1/training/run", s.handler.handleTrainingRun)

	// Middleware chain, outermost first.
	var h http.Handler = mux
	h = rateLimitMiddleware(s.cfg.RequestsPerSecond, s.cfg.BurstSize)(h)
	h = loggingMiddleware(h)
	h = tracingMiddleware(telemetry.NewOpenTelemetryTracer("gsd-api"))(h)
	h = requestIDMiddleware(h)
	h = recoveryMiddleware(h)
	return h
}

// Start runs the HTTP server until the context is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down http server")
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}
