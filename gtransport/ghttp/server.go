// Package ghttp carries consensor messages over HTTP.
//
// Each consensor accepts messages with POST /api/messages
// and sends to peers through a [*Client].
package ghttp

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// DefaultShutdownTimeout bounds how long in-flight requests may run
// after the server's context is cancelled.
const DefaultShutdownTimeout = 2 * time.Second

// Server serves one handler on one listener.
// It stops accepting connections when its context is cancelled
// and drains in-flight requests for up to ServerConfig.ShutdownTimeout.
type Server struct {
	log  *slog.Logger
	srv  *http.Server
	addr net.Addr

	shutdownTimeout time.Duration

	done chan struct{}
}

type ServerConfig struct {
	Listener net.Listener
	Handler  http.Handler

	// Defaults to DefaultShutdownTimeout.
	ShutdownTimeout time.Duration

	// Defaults to ShutdownTimeout.
	ReadHeaderTimeout time.Duration
}

// NewServer starts serving cfg.Handler on cfg.Listener in the background.
// Call [*Server.Wait] to block until it has stopped.
func NewServer(ctx context.Context, log *slog.Logger, cfg ServerConfig) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = cfg.ShutdownTimeout
	}

	s := &Server{
		log:  log.With("addr", cfg.Listener.Addr().String()),
		addr: cfg.Listener.Addr(),

		shutdownTimeout: cfg.ShutdownTimeout,

		done: make(chan struct{}),
	}
	s.srv = &http.Server{
		Handler:           cfg.Handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,

		// Request contexts end with the server's context.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.srv.Serve(cfg.Listener)
	}()
	go s.run(ctx, serveErr)

	return s
}

// Addr is the address of the listener.
func (s *Server) Addr() net.Addr { return s.addr }

func (s *Server) Wait() {
	<-s.done
}

func (s *Server) run(ctx context.Context, serveErr <-chan error) {
	defer close(s.done)

	select {
	case err := <-serveErr:
		// The listener failed on its own.
		s.log.Warn("HTTP server stopped unexpectedly", "err", err)
		return

	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(sctx); err != nil {
		s.log.Warn("Graceful shutdown incomplete; closing connections", "err", err)
		_ = s.srv.Close()
	}

	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Info("HTTP server stopped with error", "err", err)
		return
	}
	s.log.Info("HTTP server stopped")
}
