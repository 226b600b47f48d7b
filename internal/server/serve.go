package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Server binds the REST API and the health probes onto one listener.
type Server struct {
	httpServer *http.Server
	health     *HealthChecker
	log        *slog.Logger
}

// NewServer wires the API handler and health endpoints into an HTTP server
// on addr.
func NewServer(addr string, api *API, app *AppContext, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	health := NewHealthChecker(app)
	mux := http.NewServeMux()
	mux.Handle("/api/", api.Handler())
	health.RegisterHealthEndpoints(mux)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		health: health,
		log:    logger,
	}
}

// Health returns the health checker so callers can flip readiness.
func (s *Server) Health() *HealthChecker { return s.health }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.httpServer.Addr }

// Start blocks serving requests until Shutdown or a listener error.
func (s *Server) Start() error {
	s.log.Info("starting api server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	s.log.Info("shutting down api server")
	return s.httpServer.Shutdown(ctx)
}
