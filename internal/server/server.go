package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/namelens/orgmatch/internal/config"
	"github.com/namelens/orgmatch/internal/core/engine"
	apperrors "github.com/namelens/orgmatch/internal/errors"
	"github.com/namelens/orgmatch/internal/observability"
	"github.com/namelens/orgmatch/internal/server/handlers"
	servermw "github.com/namelens/orgmatch/internal/server/middleware"
)

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	cfg    config.ServerConfig
	match  *handlers.MatchHandler
}

// New creates a new HTTP server instance. match serves POST /v1/match.
func New(cfg config.ServerConfig, match *handlers.MatchHandler) *Server {
	r := chi.NewRouter()

	// Recovery sits inside RequestMetrics so recovered panics are counted as 500s.
	r.Use(middleware.RealIP)
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		apperrors.RespondWithError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		apperrors.RespondWithError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	if match == nil {
		match = &handlers.MatchHandler{Options: engine.DefaultOptions()}
	}
	if match.MaxBodyBytes <= 0 {
		match.MaxBodyBytes = cfg.MaxBodyBytes
	}

	s := &Server{
		router: r,
		cfg:    cfg,
		match:  match,
	}

	s.registerRoutes()

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  orDefault(s.cfg.ReadTimeout, 30*time.Second),
		WriteTimeout: orDefault(s.cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:  orDefault(s.cfg.IdleTimeout, 120*time.Second),
	}

	observability.OrNop(observability.ServerLogger).Info("Starting HTTP server",
		zap.String("host", s.cfg.Host),
		zap.Int("port", s.cfg.Port),
		zap.String("addr", addr))

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	observability.OrNop(observability.ServerLogger).Info("Shutting down HTTP server")
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the server port for testing
func (s *Server) Port() int {
	return s.cfg.Port
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
