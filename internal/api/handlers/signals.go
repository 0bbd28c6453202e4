package handlers

import (
	"encoding/json"
	"net/http"

	"scamguard/internal/alerts"
	"scamguard/internal/domain/models"
	"scamguard/internal/rules"
	"scamguard/pkg/logger"
)

// SignalsHandler ingests detection signals: each signal runs through the
// rule engine and every triggered rule produces an alert queued for
// delivery.
type SignalsHandler struct {
	engine     *rules.Engine
	manager    *alerts.Manager
	dispatcher *alerts.Dispatcher
	logger     *logger.Logger
}

// NewSignalsHandler creates a new SignalsHandler
func NewSignalsHandler(engine *rules.Engine, manager *alerts.Manager, dispatcher *alerts.Dispatcher, log *logger.Logger) *SignalsHandler {
	return &SignalsHandler{
		engine:     engine,
		manager:    manager,
		dispatcher: dispatcher,
		logger:     log.WithComponent("signals"),
	}
}

// ingestResponse reports what one signal produced
type ingestResponse struct {
	Matched int             `json:"matched_rules"`
	Alerts  []*models.Alert `json:"alerts"`
}

// Ingest handles POST /api/v1/signals
func (h *SignalsHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var sig models.Signal
	if err := json.NewDecoder(r.Body).Decode(&sig); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if sig.UserID == "" {
		sig.UserID = userID(r)
	}
	if sig.UserID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if sig.Source == "" {
		sig.Source = models.AlertSourceAIAnalysis
	}

	triggered := h.engine.Evaluate(&sig)

	resp := ingestResponse{Matched: len(triggered)}
	for _, rule := range triggered {
		alert, err := h.manager.CreateFromSignal(r.Context(), &sig, rule)
		if err != nil {
			h.logger.Error().Err(err).
				Str("rule_id", rule.ID).
				Str("user_id", sig.UserID).
				Msg("failed to create alert from signal")
			continue
		}
		h.dispatcher.Enqueue(alert)
		resp.Alerts = append(resp.Alerts, alert)
	}

	h.logger.Info().
		Str("user_id", sig.UserID).
		Str("source", string(sig.Source)).
		Int("matched", resp.Matched).
		Int("alerts", len(resp.Alerts)).
		Msg("signal ingested")

	respondJSON(w, http.StatusAccepted, resp)
}
