// Package server runs a pipeline behind net/http with graceful shutdown.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/albedosehen/dawn/internal/config"
	dawnerrors "github.com/albedosehen/dawn/internal/errors"
	"github.com/albedosehen/dawn/internal/observability"
)

// Default timeouts applied when the configuration leaves them at zero.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultGracefulTimeout = 30 * time.Second
)

// Stats is a snapshot of connection and request counters.
type Stats struct {
	ActiveConnections int64
	TotalConnections  int64
	TotalRequests     int64
	StartTime         time.Time
}

// Option customises a Server.
type Option func(*Server)

// WithTLS serves HTTPS using cfg.
func WithTLS(cfg *tls.Config) Option {
	return func(s *Server) {
		s.tlsConfig = cfg
	}
}

// WithGracefulTimeout bounds how long Run waits for in-flight requests
// before closing connections.
func WithGracefulTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.gracefulTimeout = d
		}
	}
}

// Server serves one handler on one address.
type Server struct {
	addr            string
	server          *http.Server
	tlsConfig       *tls.Config
	gracefulTimeout time.Duration
	logger          observability.Logger

	mu       sync.Mutex
	listener net.Listener
	ready    chan struct{}
	stopping atomic.Bool
	running  atomic.Bool

	startTime         time.Time
	activeConnections atomic.Int64
	totalConnections  atomic.Int64
	totalRequests     atomic.Int64
}

// New returns a server listening on addr with default timeouts.
func New(addr string, handler http.Handler, logger observability.Logger, opts ...Option) *Server {
	return NewFromConfig(config.ServerConfig{}, addr, handler, logger, opts...)
}

// NewFromConfig returns a server using the timeouts from cfg. An empty addr
// uses cfg's host and port.
func NewFromConfig(
	cfg config.ServerConfig,
	addr string,
	handler http.Handler,
	logger observability.Logger,
	opts ...Option,
) *Server {
	if addr == "" {
		addr = cfg.GetServerAddress()
	}

	s := &Server{
		addr:            addr,
		gracefulTimeout: orDefault(cfg.GracefulTimeout, DefaultGracefulTimeout),
		logger:          logger.WithFields(observability.Component("server")),
		ready:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.countRequests(handler),
		ReadTimeout:       orDefault(cfg.ReadTimeout, DefaultReadTimeout),
		ReadHeaderTimeout: orDefault(cfg.ReadTimeout, DefaultReadTimeout),
		WriteTimeout:      orDefault(cfg.WriteTimeout, DefaultWriteTimeout),
		IdleTimeout:       orDefault(cfg.IdleTimeout, DefaultIdleTimeout),
		MaxHeaderBytes:    1 << 20,
		ConnState:         s.onConnStateChange,
		TLSConfig:         s.tlsConfig,
	}
	return s
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.totalRequests.Add(1)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) onConnStateChange(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.activeConnections.Add(1)
		s.totalConnections.Add(1)
	case http.StateClosed, http.StateHijacked:
		s.activeConnections.Add(-1)
	}
}

// Start listens and serves until Stop is called, then returns nil. A listen
// failure is a transport error and serving that ends without Stop is an
// unexpected shutdown.
func (s *Server) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return dawnerrors.NewServerError(dawnerrors.ErrCodeTransport, s.addr,
			errors.New("server is already running"))
	}
	if s.stopping.Load() {
		return nil
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return dawnerrors.NewServerError(dawnerrors.ErrCodeTransport, s.addr, err)
	}
	if s.tlsConfig != nil {
		listener = tls.NewListener(listener, s.tlsConfig)
	}

	s.mu.Lock()
	s.listener = listener
	s.startTime = time.Now()
	s.mu.Unlock()
	close(s.ready)

	s.logger.Info(ctx, "Server listening",
		observability.String("address", listener.Addr().String()),
		observability.Bool("tls", s.tlsConfig != nil),
	)

	err = s.server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) && s.stopping.Load() {
		return nil
	}

	// Serving ended without Stop, e.g. the listener failed.
	s.logger.Error(ctx, err, "Server stopped unexpectedly")
	return dawnerrors.NewServerError(dawnerrors.ErrCodeUnexpectedShutdown, s.addr, err)
}

// Stop stops accepting connections and waits for in-flight requests until
// ctx ends. Connections still open then are closed and the returned error
// is a forced shutdown.
func (s *Server) Stop(ctx context.Context) error {
	s.stopping.Store(true)
	if !s.running.Load() {
		return nil
	}

	s.logger.Info(ctx, "Server stopping",
		observability.Int64("active_connections", s.activeConnections.Load()),
	)

	err := s.server.Shutdown(ctx)
	if err == nil {
		s.logger.Info(ctx, "Server stopped",
			observability.Duration("uptime", time.Since(s.Stats().StartTime)),
		)
		return nil
	}

	closeErr := s.server.Close()
	s.logger.Warn(ctx, "Grace period elapsed, closing remaining connections",
		observability.Int64("active_connections", s.activeConnections.Load()),
	)
	return dawnerrors.NewServerError(dawnerrors.ErrCodeForcedShutdown, s.addr, errors.Join(err, closeErr))
}

// Run serves until ctx ends and then shuts down within the graceful timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start(ctx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.gracefulTimeout)
	defer cancel()

	stopErr := s.Stop(stopCtx)
	if err := <-errCh; err != nil && stopErr == nil {
		return err
	}
	return stopErr
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// ListenAddr returns the bound address, or the configured one before Start.
func (s *Server) ListenAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

func (s *Server) Stats() Stats {
	s.mu.Lock()
	start := s.startTime
	s.mu.Unlock()

	return Stats{
		ActiveConnections: s.activeConnections.Load(),
		TotalConnections:  s.totalConnections.Load(),
		TotalRequests:     s.totalRequests.Load(),
		StartTime:         start,
	}
}
