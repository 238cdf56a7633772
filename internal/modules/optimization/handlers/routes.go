package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all optimization routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/optimizations", func(r chi.Router) {
		r.Post("/", h.HandleRunOptimization)
		r.Get("/", h.HandleListOptimizations)
		r.Post("/frontier", h.HandleGenerateFrontier)
		r.Get("/{id}", h.HandleGetOptimization)
	})
}
