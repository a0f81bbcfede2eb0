// Package httpserver runs the API listener and drains it on shutdown.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// DefaultShutdownTimeout bounds how long in-flight requests may finish.
const DefaultShutdownTimeout = 10 * time.Second

// Server is an http.Server bound to a context: it serves until the context
// ends, then stops accepting and waits for in-flight requests.
type Server struct {
	srv     *http.Server
	logger  *slog.Logger
	drainIn time.Duration
}

type Option func(*Server)

// WithLogger routes server errors (TLS handshakes, panics in handlers) and
// lifecycle messages to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
		s.srv.ErrorLog = slog.NewLogLogger(logger.Handler(), slog.LevelWarn)
	}
}

// WithShutdownTimeout overrides DefaultShutdownTimeout. Non-positive values
// are ignored.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.drainIn = d
		}
	}
}

// WithWriteTimeout overrides the response write deadline; history exports
// and large search pages may need more than the default.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.srv.WriteTimeout = d
		}
	}
}

// New builds a server for handler on addr.
func New(addr string, handler http.Handler, opts ...Option) *Server {
	s := &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger:  slog.Default(),
		drainIn: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Addr is the configured listen address.
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Run listens on the configured address and serves until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.srv.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx ends, then shuts down gracefully. A clean
// shutdown returns nil.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errc := make(chan error, 1)
	go func() {
		errc <- s.srv.Serve(ln)
	}()
	s.logger.Info("http server listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", ln.Addr(), err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.drainIn)
	defer cancel()
	s.logger.Info("draining http server", "timeout", s.drainIn)
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve %s: %w", ln.Addr(), err)
	}
	return nil
}
