// Package handlers provides HTTP handlers for forecast operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/stavrou/ballast/internal/modules/forecast"
)

// Handler handles forecast HTTP requests
type Handler struct {
	service *forecast.Service
	log     zerolog.Logger
}

// NewHandler creates a new forecast handler
func NewHandler(service *forecast.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "forecast").Logger(),
	}
}

// HandleRefresh handles POST /api/forecasts/refresh
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req forecast.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Symbols) == 0 {
		http.Error(w, "symbols are required", http.StatusBadRequest)
		return
	}

	result, err := h.service.Refresh(req)
	if err != nil {
		h.log.Error().Err(err).Msg("Forecast refresh failed")
		http.Error(w, "Forecast refresh failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleListForecasts handles GET /api/forecasts
func (h *Handler) HandleListForecasts(w http.ResponseWriter, r *http.Request) {
	snapshots, err := h.service.Snapshots()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list forecast snapshots")
		http.Error(w, "Failed to list forecast snapshots", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"snapshots": snapshots,
			"count":     len(snapshots),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetForecast handles GET /api/forecasts/{symbol}
func (h *Handler) HandleGetForecast(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	snapshot, err := h.service.Snapshot(symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get forecast snapshot")
		http.Error(w, "Failed to get forecast snapshot", http.StatusInternalServerError)
		return
	}
	if snapshot == nil {
		http.Error(w, "No forecast cached for symbol", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": snapshot,
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
