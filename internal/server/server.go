// Package server is the HTTP front end of the scheduler: every computation
// request goes through the dispatcher and resolves on the cooperative loop.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/zed/txfib/internal/config"
	"github.com/zed/txfib/internal/fibonacci"
	"github.com/zed/txfib/internal/logging"
	"github.com/zed/txfib/internal/orchestration"
	"github.com/zed/txfib/internal/sysmon"
)

// PoolInspector exposes the occupancy of the thread offload pool.
type PoolInspector interface {
	Size() int
	Queued() int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSecurityConfig replaces DefaultSecurityConfig.
func WithSecurityConfig(c SecurityConfig) Option {
	return func(s *Server) { s.security = c }
}

// WithPool reports the pool in GET /stats.
func WithPool(p PoolInspector) Option {
	return func(s *Server) { s.pool = p }
}

// Server serves Fibonacci computations over HTTP.
type Server struct {
	dispatcher *orchestration.Dispatcher
	pool       PoolInspector
	sampler    *sysmon.Sampler
	metrics    *Metrics
	security   SecurityConfig
	logger     logging.Logger

	addr            string
	pidFile         string
	timeout         time.Duration
	shutdownTimeout time.Duration
	mode            fibonacci.Mode
	started         time.Time
}

// NewServer returns a server dispatching through d, configured from cfg.
func NewServer(d *orchestration.Dispatcher, cfg config.AppConfig, opts ...Option) *Server {
	mode, _ := fibonacci.ParseMode(cfg.Mode)
	s := &Server{
		dispatcher:      d,
		sampler:         sysmon.NewSampler(),
		metrics:         NewMetrics(),
		security:        DefaultSecurityConfig(),
		logger:          logging.Nop(),
		addr:            cfg.Addr,
		pidFile:         cfg.PIDFile,
		timeout:         cfg.Timeout,
		shutdownTimeout: cfg.ShutdownTimeout,
		mode:            mode,
		started:         time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed and instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	route := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, s.instrument(pattern, h))
	}
	route("GET /fib/{strategy}/{n}", s.handleFib)
	route("GET /iterfib/{n}", s.handleAlias(fibonacci.Linear))
	route("GET /binetfib/{n}", s.handleAlias(fibonacci.ClosedFormExact))
	route("GET /strategies", s.handleStrategies)
	route("GET /health", s.handleHealth)
	route("GET /stats", s.handleStats)
	route("/metrics", s.handleMetrics)

	return SecurityMiddleware(s.security, s.requestIDMiddleware(s.metricsMiddleware(mux.ServeHTTP)))
}

// Start listens on the configured address and serves until ctx ends.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx ends, then drains in-flight requests for up
// to the shutdown timeout. The pid file, if configured, exists while
// serving.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.pidFile != "" {
		if err := writePIDFile(s.pidFile); err != nil {
			ln.Close()
			return err
		}
		defer os.Remove(s.pidFile)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info("server listening", logging.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("graceful shutdown failed", err)
		srv.Close()
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writePIDFile(path string) error {
	if err := os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	return nil
}
