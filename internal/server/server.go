// Package server provides the HTTP server for the ring sizing service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/ringfit/internal/server/api"
	"github.com/ayusman/ringfit/internal/store"
)

// Config holds the server configuration. Nil collaborators leave their
// routes unregistered.
type Config struct {
	StaticDir string
	Store     *store.Store
	Measurer  api.Measurer
	Exporter  api.Exporter
	Live      Live
	Logger    *zap.Logger
}

// Server represents the HTTP server.
type Server struct {
	config Config
	logger *zap.Logger
	mux    *http.ServeMux
	start  time.Time
	http   *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		config: config,
		logger: logger.With(zap.String("component", "http")),
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	sizes := api.NewSizesHandler()
	s.mux.Handle("/api/sizes", sizes)
	s.mux.Handle("/api/sizes/", sizes)

	if s.config.Measurer != nil {
		measureHandler := api.NewMeasureHandler(s.config.Measurer, s.logger)
		s.mux.Handle("/api/measure", measureHandler)
		s.mux.Handle("/api/measure/", measureHandler)
	}

	if s.config.Store != nil {
		measurements := api.NewMeasurementsHandler(s.config.Store, s.config.Exporter, s.logger)
		s.mux.Handle("/api/measurements", measurements)
		s.mux.Handle("/api/measurements/", measurements)
		s.mux.Handle("/api/stats", api.NewStatsHandler(s.config.Store))
	}

	if s.config.Exporter != nil {
		s.mux.Handle("/api/exporters", api.NewExportersHandler(s.config.Exporter))
	}

	if s.config.Live != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Live))
		s.mux.Handle("/api/live", NewLiveHandler(s.config.Live, s.logger))
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.Live != nil {
		response["live"] = s.config.Live.IsEnabled()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address and blocks
// until Shutdown is called or the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("listening", zap.String("addr", addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for active requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
