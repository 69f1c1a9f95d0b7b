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
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/panel", s.handlePanelInfo)
		r.Get("/stats", s.handleStats)

		// Entity endpoints: kind is area, zone, output, or trigger.
		r.Route("/entities/{kind}", func(r chi.Router) {
			r.Get("/", s.handleListEntities)

			r.Route("/{number}", func(r chi.Router) {
				r.Get("/", s.handleGetEntity)
				r.Post("/command", s.handleCommand)
			})
		})

		// WebSocket state stream
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   s.version,
		"connected": s.coord.IsConnected(),
	})
}
