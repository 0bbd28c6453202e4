package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"scamguard/internal/alerts"
	"scamguard/internal/domain/models"
	"scamguard/internal/repository"
	"scamguard/pkg/logger"
)

// AlertsHandler handles alert lifecycle endpoints
type AlertsHandler struct {
	manager *alerts.Manager
	logger  *logger.Logger
}

// NewAlertsHandler creates a new AlertsHandler
func NewAlertsHandler(manager *alerts.Manager, log *logger.Logger) *AlertsHandler {
	return &AlertsHandler{
		manager: manager,
		logger:  log.WithComponent("alerts-api"),
	}
}

// List handles GET /api/v1/alerts
func (h *AlertsHandler) List(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		respondError(w, http.StatusUnauthorized, "user identity required")
		return
	}

	filter := repository.AlertFilter{
		Status:   models.AlertStatus(r.URL.Query().Get("status")),
		Type:     models.AlertType(r.URL.Query().Get("type")),
		Severity: models.Severity(r.URL.Query().Get("severity")),
		Limit:    50,
	}

	list, err := h.manager.ListForUser(r.Context(), user, filter)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", user).Msg("failed to list alerts")
		respondError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"data":  list,
		"total": len(list),
	})
}

// Get handles GET /api/v1/alerts/{id}
func (h *AlertsHandler) Get(w http.ResponseWriter, r *http.Request) {
	alert, ok := h.loadAlert(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, alert)
}

// transitionRequest carries the optional note on a transition
type transitionRequest struct {
	Resolution string `json:"resolution,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Handler    string `json:"handler,omitempty"`
}

// Acknowledge handles POST /api/v1/alerts/{id}/acknowledge
func (h *AlertsHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id uuid.UUID, user string, _ transitionRequest) (*models.Alert, error) {
		return h.manager.Acknowledge(r.Context(), id, user)
	})
}

// Resolve handles POST /api/v1/alerts/{id}/resolve
func (h *AlertsHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id uuid.UUID, user string, req transitionRequest) (*models.Alert, error) {
		return h.manager.Resolve(r.Context(), id, user, req.Resolution)
	})
}

// Dismiss handles POST /api/v1/alerts/{id}/dismiss
func (h *AlertsHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id uuid.UUID, user string, req transitionRequest) (*models.Alert, error) {
		return h.manager.Dismiss(r.Context(), id, user, req.Reason)
	})
}

// Escalate handles POST /api/v1/alerts/{id}/escalate
func (h *AlertsHandler) Escalate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id uuid.UUID, user string, req transitionRequest) (*models.Alert, error) {
		return h.manager.Escalate(r.Context(), id, user, req.Handler)
	})
}

// ExecuteAction handles POST /api/v1/alerts/{id}/actions/{actionID}
func (h *AlertsHandler) ExecuteAction(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		respondError(w, http.StatusUnauthorized, "user identity required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid alert id")
		return
	}
	actionID := chi.URLParam(r, "actionID")

	alert, err := h.manager.ExecuteAction(r.Context(), id, actionID, user)
	if err != nil {
		h.respondLifecycleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, alert)
}

func (h *AlertsHandler) transition(w http.ResponseWriter, r *http.Request,
	apply func(uuid.UUID, string, transitionRequest) (*models.Alert, error)) {

	user := userID(r)
	if user == "" {
		respondError(w, http.StatusUnauthorized, "user identity required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid alert id")
		return
	}

	var req transitionRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req) // body is optional
	}

	alert, err := apply(id, user, req)
	if err != nil {
		h.respondLifecycleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, alert)
}

func (h *AlertsHandler) loadAlert(w http.ResponseWriter, r *http.Request) (*models.Alert, bool) {
	user := userID(r)
	if user == "" {
		respondError(w, http.StatusUnauthorized, "user identity required")
		return nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid alert id")
		return nil, false
	}

	alert, err := h.manager.Get(r.Context(), id, user)
	if err != nil {
		h.respondLifecycleError(w, err)
		return nil, false
	}
	return alert, true
}

func (h *AlertsHandler) respondLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		respondError(w, http.StatusNotFound, "alert not found")
	case errors.Is(err, alerts.ErrNotOwner):
		// Do not reveal the alert's existence to a non-owner
		respondError(w, http.StatusNotFound, "alert not found")
	case errors.Is(err, alerts.ErrUnknownAction):
		respondError(w, http.StatusNotFound, "unknown action")
	case errors.Is(err, alerts.ErrTerminalState):
		respondError(w, http.StatusConflict, "alert is in a terminal state")
	default:
		h.logger.Error().Err(err).Msg("alert operation failed")
		respondError(w, http.StatusInternalServerError, "alert operation failed")
	}
}
