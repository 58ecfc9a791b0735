// Package api assembles the HTTP router for the fleet control surface.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	v1 "github.com/gaeaops/fleetkeeper/internal/api/v1"
	"github.com/gaeaops/fleetkeeper/internal/fleet"
	"github.com/gaeaops/fleetkeeper/internal/versions"
)

// ServerOption configures the control API server
type ServerOption func(*serverConfig)

// serverConfig holds the server configuration
type serverConfig struct {
	middlewares    []func(http.Handler) http.Handler
	metricsHandler http.Handler
}

// WithMiddlewares adds middleware to the server
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithMetricsHandler mounts a metrics scrape endpoint at /metrics
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.metricsHandler = h
	}
}

// NewServer creates and configures the HTTP router with the given service
// and options
func NewServer(svc fleet.Service, logs v1.LogProvider, opts ...ServerOption) *chi.Mux {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()

	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	r.Get("/health", healthHandler)
	r.Get("/version", versionHandler)
	if cfg.metricsHandler != nil {
		r.Handle("/metrics", cfg.metricsHandler)
	}

	r.Mount("/api/v1/fleet", v1.Router(svc, logs))

	return r
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func versionHandler(w http.ResponseWriter, _ *http.Request) {
	info := versions.GetVersionInfo()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(info); err != nil {
		slog.Error("Failed to encode version info", "error", err)
	}
}
