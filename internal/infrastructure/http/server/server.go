// Package server provides the JSON API server over the itinerary session
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/wayfarer/v2/internal/infrastructure/config"
	"github.com/wayfarer/v2/internal/infrastructure/http/handlers"
	"github.com/wayfarer/v2/internal/infrastructure/http/middleware"
	"github.com/wayfarer/v2/internal/infrastructure/mapfeed"
	"github.com/wayfarer/v2/internal/infrastructure/monitoring"
	"github.com/wayfarer/v2/pkg/healthcheck"
)

// Server represents the HTTP server
type Server struct {
	config  *config.Config
	logger  *zap.Logger
	router  *chi.Mux
	server  *http.Server
	metrics *monitoring.MetricsCollector
}

// NewServer creates a new HTTP server instance
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	api *handlers.APIHandlers,
	bridge *mapfeed.Bridge,
	health *healthcheck.HealthCheck,
	metrics *monitoring.MetricsCollector,
) *Server {
	s := &Server{
		config:  cfg,
		logger:  logger.Named("http-server"),
		metrics: metrics,
	}

	s.router = s.setupRouter(api, bridge, health)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           s.router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) setupRouter(api *handlers.APIHandlers, bridge *mapfeed.Bridge, health *healthcheck.HealthCheck) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logger(s.logger, s.metrics))
	r.Use(middleware.Security())
	if s.config.Server.EnableCORS {
		r.Use(middleware.CORS(s.config.Server.AllowedOrigins))
	}

	r.Get(s.config.Monitoring.HealthCheckPath, api.HealthCheck)
	r.Get("/health/live", health.LivenessHandler())
	r.Get("/health/ready", health.ReadinessHandler())
	r.Get("/health/detailed", health.Handler())
	if s.config.Monitoring.EnableMetrics {
		r.Handle("/metrics", s.metrics.Handler())
	}

	// The websocket upgrade negotiates its own content type.
	r.Get("/ws/map", bridge.HandleWS)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.JSONOnly())

		r.Post("/plan", api.GeneratePlan)
		r.Get("/phase", api.GetPhase)

		r.Get("/itinerary", api.GetItinerary)
		r.Post("/itinerary/save", api.SaveItinerary)
		r.Post("/itinerary/reset", api.ResetSession)
		r.Put("/itinerary/description", api.UpdateDescription)

		r.Post("/days/{day}/reorder", api.ReorderDay)
		r.Put("/days/{day}/comments/{activityKey}", api.PutComment)
		r.Get("/days/{day}/comments/{activityKey}", api.GetComment)

		r.Put("/view", api.UpdateViewState)
		r.Post("/view/select/{activityKey}", api.SelectActivity)

		r.Get("/history", api.GetHistory)
		r.Delete("/history", api.ClearHistory)
	})

	return r
}

// Router exposes the configured router, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
