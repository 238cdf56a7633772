// Package handlers provides HTTP handlers for portfolio metrics.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/stavrou/ballast/internal/modules/forecast"
	"github.com/stavrou/ballast/internal/modules/metrics"
)

// ForecastSource resolves cached forecasts by symbol. Nil when the handler
// should only accept inline forecasts.
type ForecastSource interface {
	AvailableForecasts(symbols []string) ([]forecast.AssetForecast, error)
}

// Handler handles metrics HTTP requests
type Handler struct {
	forecasts           ForecastSource
	defaultRiskFreeRate float64
	log                 zerolog.Logger
}

// NewHandler creates a new metrics handler
func NewHandler(forecasts ForecastSource, defaultRiskFreeRate float64, log zerolog.Logger) *Handler {
	return &Handler{
		forecasts:           forecasts,
		defaultRiskFreeRate: defaultRiskFreeRate,
		log:                 log.With().Str("handler", "metrics").Logger(),
	}
}

// calculateRequest accepts either inline forecasts or cached symbols.
type calculateRequest struct {
	Symbols      []string                 `json:"symbols,omitempty"`
	Forecasts    []forecast.AssetForecast `json:"forecasts,omitempty"`
	Weights      []float64                `json:"weights"`
	RiskFreeRate *float64                 `json:"risk_free_rate,omitempty"`
	Correlation  *float64                 `json:"correlation,omitempty"`
}

// HandleCalculate handles POST /api/metrics/calculate
func (h *Handler) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	forecasts := req.Forecasts
	if len(forecasts) == 0 && len(req.Symbols) > 0 {
		if h.forecasts == nil {
			http.Error(w, "symbol lookup not available, supply forecasts inline", http.StatusBadRequest)
			return
		}
		resolved, err := h.forecasts.AvailableForecasts(req.Symbols)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to resolve forecasts")
			http.Error(w, "Failed to resolve forecasts", http.StatusInternalServerError)
			return
		}
		forecasts = resolved
	}

	if len(forecasts) != len(req.Weights) {
		http.Error(w, "weights must match forecasts one to one", http.StatusBadRequest)
		return
	}

	var risk metrics.RiskModel
	if req.Correlation != nil {
		risk = metrics.NewScalarCorrelation(*req.Correlation)
	}
	calc := metrics.NewCalculator(risk)

	riskFreeRate := h.defaultRiskFreeRate
	if req.RiskFreeRate != nil {
		riskFreeRate = *req.RiskFreeRate
	}

	result := calc.Compute(forecasts, req.Weights, riskFreeRate)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": result,
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
