package server

import (
	"net/http"
	"os"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/namelens/orgmatch/internal/config"
	"github.com/namelens/orgmatch/internal/observability"
	"github.com/namelens/orgmatch/internal/server/handlers"
)

// adminRateLimit bounds /admin/signal calls per minute.
const (
	adminRateLimit = 10
	adminRateBurst = 5
)

func (s *Server) registerRoutes() {
	s.router.Route("/health", func(r chi.Router) {
		r.Get("/", handlers.HealthHandler)
		r.Get("/live", handlers.LivenessHandler)
		r.Get("/ready", handlers.ReadinessHandler)
		r.Get("/startup", handlers.StartupHandler)
	})
	s.router.Get("/version", handlers.VersionHandler)
	s.router.Get("/metrics", MetricsHandler)

	s.router.Route("/v1", func(r chi.Router) {
		r.Method(http.MethodPost, "/match", s.match)
	})

	if h := adminSignalHandler(); h != nil {
		s.router.Post("/admin/signal", h.ServeHTTP)
	}
}

// adminSignalHandler exposes gofulmen's signal manager over HTTP (reload,
// shutdown) when ORGMATCH_ADMIN_TOKEN is set, and returns nil otherwise.
func adminSignalHandler() http.Handler {
	tokenVar := config.EnvPrefix + "ADMIN_TOKEN"
	token := os.Getenv(tokenVar)
	logger := observability.OrNop(observability.ServerLogger)
	if token == "" {
		logger.Debug("Admin signal endpoint disabled", zap.String("env", tokenVar))
		return nil
	}

	logger.Warn("Admin signal endpoint enabled; keep this listener off the public internet",
		zap.String("path", "/admin/signal"))
	return signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: token,
		RateLimit: adminRateLimit,
		RateBurst: adminRateBurst,
	})
}
