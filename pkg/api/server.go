// Package api provides the exporter's HTTP surface: the metrics endpoint,
// liveness, and service info.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog"

	"github.com/frontend-infra/nginx-log-exporter/internal/exporter"
	"github.com/frontend-infra/nginx-log-exporter/internal/metrics"
)

// Version can be overridden at build time via -ldflags.
var Version = "dev"

// Server serves the metrics exposition and monitoring endpoints.
type Server struct {
	httpServer *http.Server
	engine     *exporter.Engine
	collector  *metrics.Collector
	logger     zerolog.Logger
	config     ServerConfig
}

// ServerConfig configures the API server
type ServerConfig struct {
	// Address to bind the server to (e.g., "0.0.0.0:9090")
	Address string

	// MetricsPath is the route serving the exposition
	MetricsPath string

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration for writing the response
	WriteTimeout time.Duration

	// IdleTimeout is the maximum duration to wait for the next request
	IdleTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Address:      "0.0.0.0:9090",
		MetricsPath:  "/metrics",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewServer creates a new API server around the scrape engine.
func NewServer(config ServerConfig, engine *exporter.Engine, collector *metrics.Collector, logger zerolog.Logger) *Server {
	s := &Server{
		engine:    engine,
		collector: collector,
		logger:    logger.With().Str("component", "api").Logger(),
		config:    config,
	}

	r := chi.NewRouter()
	r.Use(poweredByMiddleware)
	r.Use(requestLogger(s.logger))

	r.Get(config.MetricsPath, s.handleMetrics)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/info", s.handleInfo)

	s.httpServer = &http.Server{
		Addr:         config.Address,
		Handler:      r,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return s
}

// Start starts the HTTP server and blocks until it exits.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.config.Address).Msg("starting API server")
	return s.httpServer.ListenAndServe()
}

// StartBackground starts the server in a background goroutine
func (s *Server) StartBackground() {
	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("API server error")
		}
	}()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// handleMetrics runs one scrape cycle and writes the combined exposition:
// the nginx request-duration histogram first, then the exporter's own
// metrics encoded from its registry.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	body, err := s.engine.Scrape()
	if err != nil {
		s.logger.Error().Err(err).Msg("scrape failed")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "# Error: %v\n", err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	if _, err := w.Write([]byte(body)); err != nil {
		s.logger.Error().Err(err).Msg("failed to write exposition")
		return
	}

	families, err := s.collector.Gatherer().Gather()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to gather exporter metrics")
		return
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			s.logger.Error().Err(err).Msg("failed to encode exporter metrics")
			return
		}
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now(),
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": "nginx-log-exporter",
		"version": Version,
		"endpoints": []string{
			s.config.MetricsPath,
			"/healthz",
			"/info",
		},
	})
}

// Middleware

func poweredByMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Powered-By", "nginx-log-exporter")
		next.ServeHTTP(w, r)
	})
}

func requestLogger(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.status).
				Dur("duration", time.Since(start)).
				Msg("http")
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Helper methods

func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("error encoding JSON response")
	}
}
