package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Service request lifecycle
		r.Route("/requests", func(r chi.Router) {
			r.Get("/", s.handleListRequests)
			r.Post("/", s.handleCreateRequest)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetRequest)
				r.Get("/history", s.handleRequestHistory)
				r.Post("/assign", s.handleAssignRequest)
				r.Post("/accept", s.handleAcceptRequest)
				r.Post("/complete", s.handleCompleteRequest)
				r.Post("/cancel", s.handleCancelRequest)
			})
		})

		// Device registry
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleCreateDevice)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Patch("/", s.handleUpdateDevice)
				r.Delete("/", s.handleDeleteDevice)
				r.Post("/pairing", s.handleBeginPairing)
				r.Delete("/pairing", s.handleCancelPairing)
				r.Put("/location", s.handleBindLocation)
				r.Put("/crew", s.handleBindCrewMember)
			})
		})

		// Vessel directory
		r.Route("/locations", func(r chi.Router) {
			r.Get("/", s.handleListLocations)
			r.Get("/{id}", s.handleGetLocation)
			r.Post("/{id}/dnd", s.handleToggleDND)
		})
		r.Route("/crew", func(r chi.Router) {
			r.Get("/", s.handleListCrew)
			r.Get("/on-duty", s.handleOnDutyCrew)
		})

		// Activity log
		r.Get("/activity", s.handleListActivity)

		// WebSocket for live console updates
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
