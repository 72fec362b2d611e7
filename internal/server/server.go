// Package server exposes the coverage service over HTTP: the /v2 query
// API plus health, readiness and metrics endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/covspect/covspect/internal/metrics"
	"github.com/covspect/covspect/internal/service"
	"github.com/covspect/covspect/pkg/config"
)

const (
	serverReadTimeout  = 15 * time.Second
	serverWriteTimeout = 60 * time.Second
	serverIdleTimeout  = 120 * time.Second
)

// Server serves the coverage query API.
type Server struct {
	service *service.Service
	metrics *metrics.Metrics
	http    *http.Server
}

// New creates a server listening on the configured port.
func New(cfg *config.Config, svc *service.Service, m *metrics.Metrics) *Server {
	s := &Server{service: svc, metrics: m}
	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      s.routes(),
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /v2/latest", s.instrument("latest", s.handleLatest))
	mux.Handle("GET /v2/path", s.instrument("path", s.handlePath))
	mux.Handle("GET /v2/history", s.instrument("history", s.handleHistory))
	mux.Handle("GET /v2/filters", s.instrument("filters", s.handleFilters))
	mux.Handle("GET /v2/extensions", s.instrument("extensions", s.handleExtensions))
	mux.Handle("GET /v2/zero_coverage", s.instrument("zero_coverage", s.handleZeroCoverage))
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.Handle("GET /metrics", s.metrics.Handler())
	return mux
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe blocks serving requests until Shutdown is called.
func (s *Server) ListenAndServe() error {
	slog.Info("server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
