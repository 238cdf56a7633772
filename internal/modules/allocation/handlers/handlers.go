// Package handlers provides HTTP handlers for allocation target operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/stavrou/ballast/internal/events"
	"github.com/stavrou/ballast/internal/modules/allocation"
	"github.com/stavrou/ballast/internal/modules/rebalancing"
)

// Handler handles allocation target HTTP requests
type Handler struct {
	repo *allocation.Repository
	bus  *events.Bus
	log  zerolog.Logger
}

// NewHandler creates a new allocation handler
func NewHandler(repo *allocation.Repository, bus *events.Bus, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		bus:  bus,
		log:  log.With().Str("handler", "allocation").Logger(),
	}
}

// HandleListSets handles GET /api/allocation/targets
func (h *Handler) HandleListSets(w http.ResponseWriter, r *http.Request) {
	sets, err := h.repo.ListSets()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list allocation sets")
		http.Error(w, "Failed to list allocation sets", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"sets":  sets,
			"count": len(sets),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetSet handles GET /api/allocation/targets/{set}
func (h *Handler) HandleGetSet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "set")

	targets, err := h.repo.GetTargets(name)
	if err != nil {
		h.log.Error().Err(err).Str("set", name).Msg("Failed to get allocation set")
		http.Error(w, "Failed to get allocation set", http.StatusInternalServerError)
		return
	}
	if len(targets) == 0 {
		http.Error(w, "Allocation set not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"name":    name,
			"targets": targets,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandlePutSet handles PUT /api/allocation/targets/{set}
//
// The stored vector must satisfy the same sum-to-one invariant the rebalance
// boundary enforces, so a stored set is always usable as a rebalance target.
func (h *Handler) HandlePutSet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "set")

	var req struct {
		Weights map[string]float64 `json:"weights"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Weights) == 0 {
		http.Error(w, "weights are required", http.StatusBadRequest)
		return
	}

	holdings := make([]rebalancing.Holding, 0, len(req.Weights))
	for symbol, weight := range req.Weights {
		holdings = append(holdings, rebalancing.Holding{Symbol: symbol, Weight: weight})
	}
	if _, err := rebalancing.ValidateWeights(holdings); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	if err := h.repo.ReplaceSet(name, req.Weights); err != nil {
		h.log.Error().Err(err).Str("set", name).Msg("Failed to store allocation set")
		http.Error(w, "Failed to store allocation set", http.StatusInternalServerError)
		return
	}

	if h.bus != nil {
		h.bus.EmitTyped("allocation", &events.AllocationTargetsChangedData{
			SetName: name,
			Count:   len(req.Weights),
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"name":    name,
			"symbols": len(req.Weights),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleDeleteSet handles DELETE /api/allocation/targets/{set}
func (h *Handler) HandleDeleteSet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "set")

	deleted, err := h.repo.DeleteSet(name)
	if err != nil {
		h.log.Error().Err(err).Str("set", name).Msg("Failed to delete allocation set")
		http.Error(w, "Failed to delete allocation set", http.StatusInternalServerError)
		return
	}
	if deleted == 0 {
		http.Error(w, "Allocation set not found", http.StatusNotFound)
		return
	}

	if h.bus != nil {
		h.bus.EmitTyped("allocation", &events.AllocationTargetsChangedData{SetName: name})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"name":    name,
			"deleted": deleted,
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
