package handlers

import (
	"encoding/json"
	"net/http"

	"scamguard/internal/domain/services"
	"scamguard/internal/sources"
	"scamguard/pkg/logger"
)

// IntelligenceHandler handles indicator query endpoints
type IntelligenceHandler struct {
	aggregator *services.Aggregator
	registry   *sources.Registry
	logger     *logger.Logger
}

// NewIntelligenceHandler creates a new IntelligenceHandler
func NewIntelligenceHandler(agg *services.Aggregator, registry *sources.Registry, log *logger.Logger) *IntelligenceHandler {
	return &IntelligenceHandler{
		aggregator: agg,
		registry:   registry,
		logger:     log.WithComponent("intelligence"),
	}
}

// queryRequest is the body for POST /api/v1/intelligence/query
type queryRequest struct {
	Values    []string `json:"values"`
	Sources   []string `json:"sources,omitempty"`
	SkipCache bool     `json:"skip_cache,omitempty"`
	Enrich    bool     `json:"enrich,omitempty"`
}

// Query handles POST /api/v1/intelligence/query
func (h *IntelligenceHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Values) == 0 {
		respondError(w, http.StatusBadRequest, "values array is required")
		return
	}
	if len(req.Values) > 100 {
		respondError(w, http.StatusBadRequest, "maximum 100 values per query")
		return
	}

	summary, err := h.aggregator.QueryIndicators(r.Context(), req.Values, services.QueryOptions{
		Sources:   req.Sources,
		SkipCache: req.SkipCache,
		Enrich:    req.Enrich,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("indicator query failed")
		respondError(w, http.StatusInternalServerError, "failed to query indicators")
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// sourceInfo describes one registered reputation source
type sourceInfo struct {
	Slug        string  `json:"slug"`
	Name        string  `json:"name"`
	Reliability float64 `json:"reliability"`
	Enabled     bool    `json:"enabled"`
}

// ListSources handles GET /api/v1/intelligence/sources
func (h *IntelligenceHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	adapters := h.registry.List()
	out := make([]sourceInfo, 0, len(adapters))
	for _, a := range adapters {
		out = append(out, sourceInfo{
			Slug:        a.Slug(),
			Name:        a.Name(),
			Reliability: a.Reliability(),
			Enabled:     a.IsEnabled(),
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"data":  out,
		"total": len(out),
	})
}
