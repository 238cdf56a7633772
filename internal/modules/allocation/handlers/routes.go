package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all allocation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/allocation/targets", func(r chi.Router) {
		r.Get("/", h.HandleListSets)
		r.Get("/{set}", h.HandleGetSet)
		r.Put("/{set}", h.HandlePutSet)
		r.Delete("/{set}", h.HandleDeleteSet)
	})
}
