// Package handlers implements the HTTP API endpoints.
package handlers

import (
	"encoding/json"
	"net/http"

	"scamguard/internal/alerts"
	"scamguard/internal/domain/services"
	"scamguard/internal/rules"
	"scamguard/internal/sources"
	"scamguard/internal/streaming"
	"scamguard/pkg/logger"
)

// Handlers holds all API handlers
type Handlers struct {
	Health       *HealthHandler
	Intelligence *IntelligenceHandler
	Alerts       *AlertsHandler
	Signals      *SignalsHandler
	Preferences  *PreferencesHandler
}

// Dependencies holds dependencies for handlers
type Dependencies struct {
	Aggregator  *services.Aggregator
	Registry    *sources.Registry
	Engine      *rules.Engine
	Manager     *alerts.Manager
	Dispatcher  *alerts.Dispatcher
	Preferences *alerts.PreferenceService
	Hub         *streaming.Hub
	Logger      *logger.Logger
	Version     string
}

// NewHandlers creates all handlers
func NewHandlers(deps Dependencies) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(deps.Hub, deps.Dispatcher, deps.Version, deps.Logger),
		Intelligence: NewIntelligenceHandler(deps.Aggregator, deps.Registry, deps.Logger),
		Alerts:       NewAlertsHandler(deps.Manager, deps.Logger),
		Signals:      NewSignalsHandler(deps.Engine, deps.Manager, deps.Dispatcher, deps.Logger),
		Preferences:  NewPreferencesHandler(deps.Preferences, deps.Logger),
	}
}

// userID extracts the calling user from the request. Identity arrives on
// the X-User-ID header set by the fronting gateway.
func userID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
