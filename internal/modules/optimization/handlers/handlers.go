// Package handlers provides HTTP handlers for optimization operations.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/stavrou/ballast/internal/modules/optimization"
)

// Handler handles optimization HTTP requests
type Handler struct {
	service *optimization.Service
	log     zerolog.Logger
}

// NewHandler creates a new optimization handler
func NewHandler(service *optimization.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "optimization").Logger(),
	}
}

// HandleRunOptimization handles POST /api/optimizations
func (h *Handler) HandleRunOptimization(w http.ResponseWriter, r *http.Request) {
	// Every field is optional, so an empty body is a valid request
	var req optimization.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Run(req)
	if err != nil {
		h.log.Error().Err(err).Msg("Optimization run failed")
		http.Error(w, "Optimization run failed", http.StatusInternalServerError)
		return
	}

	if len(result.Weights) == 0 {
		http.Error(w, "No usable forecasts available", http.StatusUnprocessableEntity)
		return
	}

	response := map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleListOptimizations handles GET /api/optimizations
func (h *Handler) HandleListOptimizations(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "limit must be an integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	results, err := h.service.Recent(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list optimization results")
		http.Error(w, "Failed to list optimization results", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"results": results,
			"count":   len(results),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetOptimization handles GET /api/optimizations/{id}
func (h *Handler) HandleGetOptimization(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	result, err := h.service.Get(id)
	if err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("Failed to get optimization result")
		http.Error(w, "Failed to get optimization result", http.StatusInternalServerError)
		return
	}
	if result == nil {
		http.Error(w, "Optimization result not found", http.StatusNotFound)
		return
	}

	response := map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGenerateFrontier handles POST /api/optimizations/frontier
func (h *Handler) HandleGenerateFrontier(w http.ResponseWriter, r *http.Request) {
	var req optimization.FrontierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	points, err := h.service.Frontier(req)
	if err != nil {
		h.log.Error().Err(err).Msg("Frontier generation failed")
		http.Error(w, "Frontier generation failed", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"points": points,
			"count":  len(points),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
