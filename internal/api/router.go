// Package api wires the HTTP surface: routing, middleware and handlers.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"scamguard/internal/api/handlers"
	apimiddleware "scamguard/internal/api/middleware"
	"scamguard/internal/config"
	"scamguard/internal/streaming"
	"scamguard/pkg/logger"
)

// Router holds dependencies for the API router
type Router struct {
	config   config.Config
	handlers *handlers.Handlers
	hub      *streaming.Hub
	logger   *logger.Logger
}

// NewRouter creates a new Router instance
func NewRouter(cfg config.Config, h *handlers.Handlers, hub *streaming.Hub, log *logger.Logger) *Router {
	return &Router{
		config:   cfg,
		handlers: h,
		hub:      hub,
		logger:   log.WithComponent("router"),
	}
}

// Setup sets up the Chi router with all routes and middleware
func (r *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Core middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(apimiddleware.Logger(r.logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   r.config.CORS.AllowedOrigins,
		AllowedMethods:   r.config.CORS.AllowedMethods,
		AllowedHeaders:   r.config.CORS.AllowedHeaders,
		AllowCredentials: r.config.CORS.AllowCredentials,
		MaxAge:           r.config.CORS.MaxAge,
	}))

	router.Get("/health", r.handlers.Health.Check)

	// Realtime attach point; clients identify via the user_id query param
	router.Get("/ws", r.hub.ServeWebSocket)

	router.Route("/api/v1", func(api chi.Router) {
		api.Route("/intelligence", func(intel chi.Router) {
			intel.Post("/query", r.handlers.Intelligence.Query)
			intel.Get("/sources", r.handlers.Intelligence.ListSources)
		})

		api.Route("/alerts", func(alerts chi.Router) {
			alerts.Get("/", r.handlers.Alerts.List)
			alerts.Get("/{id}", r.handlers.Alerts.Get)
			alerts.Post("/{id}/acknowledge", r.handlers.Alerts.Acknowledge)
			alerts.Post("/{id}/resolve", r.handlers.Alerts.Resolve)
			alerts.Post("/{id}/dismiss", r.handlers.Alerts.Dismiss)
			alerts.Post("/{id}/escalate", r.handlers.Alerts.Escalate)
			alerts.Post("/{id}/actions/{actionID}", r.handlers.Alerts.ExecuteAction)
		})

		api.Post("/signals", r.handlers.Signals.Ingest)

		api.Route("/preferences", func(prefs chi.Router) {
			prefs.Get("/", r.handlers.Preferences.Get)
			prefs.Put("/", r.handlers.Preferences.Update)
		})
	})

	return router
}
