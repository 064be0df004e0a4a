package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)
		r.Post("/force-heat", s.handleForceHeat)

		r.Route("/rooms/{name}", func(r chi.Router) {
			r.Get("/", s.handleGetRoom)
			r.Post("/override", s.handleSetOverride)
			r.Delete("/override", s.handleClearOverride)
			r.Post("/disable", s.handleDisable)
			r.Delete("/disable", s.handleEnable)
			r.Post("/relay", s.handleRelayCommand)
		})
	})

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
