package handlers

import (
	"encoding/json"
	"net/http"

	"scamguard/internal/alerts"
	"scamguard/internal/domain/models"
	"scamguard/pkg/logger"
)

// PreferencesHandler handles delivery preference endpoints
type PreferencesHandler struct {
	service *alerts.PreferenceService
	logger  *logger.Logger
}

// NewPreferencesHandler creates a new PreferencesHandler
func NewPreferencesHandler(service *alerts.PreferenceService, log *logger.Logger) *PreferencesHandler {
	return &PreferencesHandler{
		service: service,
		logger:  log.WithComponent("preferences-api"),
	}
}

// Get handles GET /api/v1/preferences
func (h *PreferencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		respondError(w, http.StatusUnauthorized, "user identity required")
		return
	}

	prefs, err := h.service.Get(r.Context(), user)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", user).Msg("failed to load preferences")
		respondError(w, http.StatusInternalServerError, "failed to load preferences")
		return
	}
	respondJSON(w, http.StatusOK, prefs)
}

// Update handles PUT /api/v1/preferences
func (h *PreferencesHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		respondError(w, http.StatusUnauthorized, "user identity required")
		return
	}

	var prefs models.AlertPreferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	prefs.UserID = user // the caller can only update their own record

	if err := h.service.Update(r.Context(), &prefs); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, prefs)
}
