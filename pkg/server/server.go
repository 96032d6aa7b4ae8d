package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"newnan/cbfirewall/pkg/audit"
	"newnan/cbfirewall/pkg/config"
	"newnan/cbfirewall/pkg/firewall/engine"
	"newnan/cbfirewall/pkg/telemetry/health"
	"newnan/cbfirewall/pkg/telemetry/metrics"
	"newnan/cbfirewall/pkg/telemetry/tracing"
)

// Deps are the components served over HTTP. Engine is required; the rest
// are optional and their routes are omitted when nil.
type Deps struct {
	Engine  *engine.Engine
	Audit   audit.Storage
	Health  *health.Checker
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer
	Version health.VersionInfo
	Logger  *slog.Logger

	// MetricsPath is where the Prometheus handler is mounted.
	// Default: "/metrics"
	MetricsPath string
}

// Server is the HTTP decision server.
type Server struct {
	config       config.ServerConfig
	deps         Deps
	logger       *slog.Logger
	handler      http.Handler
	httpServer   *http.Server
	listener     net.Listener
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New creates a server. Routes are built immediately so Handler can be used
// without starting a listener.
func New(cfg config.ServerConfig, deps Deps) (*Server, error) {
	if deps.Engine == nil {
		return nil, errors.New("server: engine is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.MetricsPath == "" {
		deps.MetricsPath = config.DefaultMetricsPath
	}
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = config.DefaultListenAddress
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = config.DefaultShutdownTimeout
	}

	s := &Server{
		config: cfg,
		deps:   deps,
		logger: deps.Logger.With("component", "server"),
	}
	s.handler = s.setupRoutes()
	return s, nil
}

// Handler returns the routed handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves until ctx is done or
// the listener fails. It shuts down gracefully on ctx cancellation.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting decision server", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		s.setRunning(false)
		return err
	}
}

// Addr returns the listening address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops accepting connections and waits up to ShutdownTimeout for
// in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		running, srv := s.isRunning, s.httpServer
		s.mu.RUnlock()
		if !running {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.setRunning(false)
		s.logger.Info("decision server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *Server) setRunning(running bool) {
	s.mu.Lock()
	s.isRunning = running
	s.mu.Unlock()
}

// setupRoutes configures HTTP routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	s.route(mux, http.MethodPost, "/v1/check", "check", s.handleCheck)
	s.route(mux, http.MethodGet, "/v1/rules", "rules", s.handleRules)
	s.route(mux, http.MethodGet, "/v1/stats", "stats", s.handleStats)
	s.route(mux, http.MethodPost, "/v1/reload", "reload", s.handleReload)
	if s.deps.Audit != nil {
		s.route(mux, http.MethodGet, "/v1/audit", "audit", s.handleAudit)
	}

	if s.deps.Health != nil {
		mux.Handle("/health", s.deps.Health.LivenessHandler())
		mux.Handle("/ready", s.deps.Health.ReadinessHandler())
	}
	mux.Handle("/version", health.VersionHandler(s.deps.Version))
	if s.deps.Metrics != nil {
		mux.Handle(s.deps.MetricsPath, s.deps.Metrics.Handler())
	}

	var handler http.Handler = mux
	handler = requestIDMiddleware(handler)
	handler = loggingMiddleware(s.logger)(handler)
	handler = recoveryMiddleware(s.logger)(handler)
	return handler
}

// route registers an API handler wrapped with tracing and metrics. name is
// the low cardinality handler label.
func (s *Server) route(mux *http.ServeMux, method, path, name string, h http.HandlerFunc) {
	var handler http.Handler = h
	if s.deps.Tracer != nil {
		handler = tracing.HTTPMiddleware(s.deps.Tracer, path)(handler)
	}
	if s.deps.Metrics != nil {
		handler = metricsMiddleware(s.deps.Metrics, name)(handler)
	}
	mux.Handle(method+" "+path, handler)
}
