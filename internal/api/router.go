package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the versioned JSON API plus the WebSocket live
// feed. Mutating endpoints sit behind the admin session gate.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Unknown endpoint")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/metrics/latest", h.HandleLatestMetric)
		r.Get("/metrics/history", h.HandleMetricHistory)
		r.Post("/metrics", h.HandleIngestMetric)

		r.Get("/thresholds", h.HandleGetThresholds)
		r.Post("/thresholds", h.sessions.RequireAdmin(h.HandleUpdateThresholds))

		r.Get("/actuators/{device}", h.HandleGetActuator)
		r.Post("/actuators/{device}", h.sessions.RequireAdmin(h.HandleCommandActuator))

		r.Get("/alerts", h.HandleAlerts)
		r.Get("/logs/actuators", h.HandleActuatorLogs)

		r.Get("/auth/me", h.HandleAuthMe)
		r.Post("/auth/login", h.HandleLogin)
		r.Post("/auth/logout", h.HandleLogout)

		r.Get("/system", h.HandleSystem)
	})

	r.Get("/ws", h.HandleWebSocket)

	return r
}
