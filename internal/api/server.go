// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes the session controller over HTTP: JSON control
// endpoints, a WebSocket status stream, health probes and Prometheus metrics.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ManuGH/tetherd/internal/health"
	"github.com/ManuGH/tetherd/internal/log"
	"github.com/ManuGH/tetherd/internal/tether"
	"github.com/rs/zerolog"
)

// Controller is the session surface the API drives.
type Controller interface {
	Start()
	Stop()
	Status() tether.Status
	Running() bool
}

// Config configures the HTTP server.
type Config struct {
	Listen string
	// RateLimit is the per-client limit on start/stop requests per minute; zero disables it.
	RateLimit int
	// ServiceName enables OpenTelemetry HTTP spans when non-empty.
	ServiceName string

	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
}

func (c Config) withDefaults() Config {
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = 5 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 120 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	return c
}

// Server is the control API.
type Server struct {
	cfg    Config
	ctrl   Controller
	health *health.Manager
	hub    *Hub
	logger zerolog.Logger
}

// New creates the API server. The hub must be registered as a status sink
// of ctrl for the event stream to carry notifications.
func New(cfg Config, ctrl Controller, hm *health.Manager, hub *Hub) *Server {
	return &Server{
		cfg:    cfg.withDefaults(),
		ctrl:   ctrl,
		health: hm,
		hub:    hub,
		logger: log.WithComponent("api"),
	}
}

// Serve listens on cfg.Listen and serves until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Listen, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled, then shuts down
// gracefully and disconnects stream clients.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("event", "api.listening").Str("addr", ln.Addr().String()).Msg("HTTP server listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.hub.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.hub.Close()
	<-errCh
	if err != nil {
		s.logger.Error().Err(err).Str("event", "api.shutdown_error").Msg("HTTP server shutdown error")
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info().Str("event", "api.stopped").Msg("HTTP server stopped")
	return nil
}
