package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all forecast routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/forecasts", func(r chi.Router) {
		r.Post("/refresh", h.HandleRefresh)
		r.Get("/", h.HandleListForecasts)
		r.Get("/{symbol}", h.HandleGetForecast)
	})
}
