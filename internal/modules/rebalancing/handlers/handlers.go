// Package handlers provides HTTP handlers for rebalancing operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/stavrou/ballast/internal/modules/rebalancing"
)

// Handler handles rebalancing HTTP requests
type Handler struct {
	service *rebalancing.Service
	log     zerolog.Logger
}

// NewHandler creates a new rebalancing handler
func NewHandler(service *rebalancing.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "rebalancing").Logger(),
	}
}

// HandleValidateWeights handles POST /api/rebalancing/validate
func (h *Handler) HandleValidateWeights(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Weights []rebalancing.Holding `json:"weights"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	imbalance, err := rebalancing.ValidateWeights(req.Weights)

	data := map[string]interface{}{
		"valid":     err == nil,
		"imbalance": imbalance,
	}
	if err != nil {
		data["reason"] = err.Error()
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandlePlanRebalance handles POST /api/rebalancing/plan
func (h *Handler) HandlePlanRebalance(w http.ResponseWriter, r *http.Request) {
	var req rebalancing.PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	plan, err := h.service.Plan(req)
	if err != nil {
		// Validation failures are the caller's fault, report them as such
		h.log.Warn().Err(err).Msg("Rebalance plan rejected")
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": plan,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleListPlans handles GET /api/rebalancing/plans
func (h *Handler) HandleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.Recent(0)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list rebalance plans")
		http.Error(w, "Failed to list rebalance plans", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"plans": plans,
			"count": len(plans),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
