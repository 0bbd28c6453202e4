package handlers

import (
	"net/http"
	"time"

	"scamguard/internal/alerts"
	"scamguard/internal/streaming"
	"scamguard/pkg/logger"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	hub        *streaming.Hub
	dispatcher *alerts.Dispatcher
	version    string
	logger     *logger.Logger
	startTime  time.Time
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(hub *streaming.Hub, dispatcher *alerts.Dispatcher, version string, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		hub:        hub,
		dispatcher: dispatcher,
		version:    version,
		logger:     log.WithComponent("health"),
		startTime:  time.Now(),
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	Uptime     string `json:"uptime"`
	Timestamp  string `json:"timestamp"`
	Clients    int    `json:"ws_clients"`
	QueueDepth int    `json:"queue_depth"`
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if h.hub != nil {
		response.Clients = h.hub.ClientCount()
	}
	if h.dispatcher != nil {
		response.QueueDepth = h.dispatcher.QueueDepth()
	}

	respondJSON(w, http.StatusOK, response)
}
