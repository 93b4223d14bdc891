package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all simulation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/simulation", func(r chi.Router) {
		r.Post("/diagonalize", h.HandleDiagonalize)
		r.Post("/sweep", h.HandleSweep)
		r.Post("/metrics", h.HandleMetrics)
		r.Post("/anticrossing", h.HandleAntiCrossing)
		r.Get("/sweeps", h.HandleListSweeps)
		r.Get("/sweeps/{id}", h.HandleGetSweep)
		r.Delete("/sweeps/{id}", h.HandleDeleteSweep)
		r.Get("/jobs/{id}", h.HandleJobStatus)
		r.Get("/jobs/{id}/stream", h.HandleStreamJob)
	})
}
