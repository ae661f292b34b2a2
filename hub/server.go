// Package hub provides the reusable Hub server: the supervisor that
// composes the frontend and backend listeners over one shared registry,
// and owns their lifecycle.
package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sockethub/sockethub/internal/hub/backend"
	"github.com/sockethub/sockethub/internal/hub/config"
	"github.com/sockethub/sockethub/internal/hub/frontend"
	"github.com/sockethub/sockethub/internal/hub/registry"
)

// Server is a reusable Hub instance. Build one with New, then call Run.
type Server struct {
	cfg config.Config
	reg *registry.Registry

	back    *backend.Listener
	front   *frontend.Listener
	metrics *http.Server

	mu       sync.Mutex
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// New validates cfg and constructs a Server. Call Run to start listening.
func New(cfg config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	reg := registry.New()
	s := &Server{
		cfg:   cfg,
		reg:   reg,
		back:  backend.New(cfg.BackendSocketPath, reg, cfg.AcceptTimeout),
		front: frontend.New(cfg.FrontendAddr, cfg.Backlog, reg, cfg.AcceptTimeout),
	}
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		s.metrics = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	}
	return s, nil
}

// Run binds both listeners and blocks until either one fails fatally or
// Stop is called. It always tears down both listeners, closes every
// registered control connection, and best-effort unlinks the backend
// socket path before returning.
func (s *Server) Run() error {
	if err := s.back.Listen(); err != nil {
		return fmt.Errorf("backend listen: %w", err)
	}
	if err := s.front.Listen(); err != nil {
		_ = s.back.Close()
		return fmt.Errorf("frontend listen: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	errCh := make(chan error, 2)
	go func() { errCh <- s.back.Serve(ctx) }()
	go func() { errCh <- s.front.Serve(ctx) }()

	if s.metrics != nil {
		go func() {
			if err := s.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", "addr", s.cfg.MetricsAddr, "error", err)
			}
		}()
		slog.Info("metrics listening", "addr", s.cfg.MetricsAddr)
	}

	slog.Info("hub listening", "frontend", s.cfg.FrontendAddr, "backend", s.cfg.BackendSocketPath)

	firstErr := <-errCh
	s.Stop()
	secondErr := <-errCh

	// A Serve loop that returned a fatal accept error left its listener open.
	_ = s.back.Close()
	_ = s.front.Close()

	if s.metrics != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = s.metrics.Shutdown(shutdownCtx)
		shutdownCancel()
	}

	s.reg.CloseAll()
	removeBackendSocket(s.cfg.BackendSocketPath)

	if firstErr != nil {
		return firstErr
	}
	return secondErr
}

// Stop requests a graceful shutdown. Idempotent and non-blocking: it only
// cancels the internal context that the accept loops poll against.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		cancel := s.cancel
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	})
}

// Registry exposes the Server's service registry, primarily for tests and
// introspection.
func (s *Server) Registry() *registry.Registry {
	return s.reg
}

func removeBackendSocket(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to unlink backend socket on shutdown", "path", path, "error", err)
	}
}
