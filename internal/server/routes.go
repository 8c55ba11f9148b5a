package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	r.Get("/health", s.health)

	r.Route("/session", func(r chi.Router) {
		r.Get("/", s.listSessions)
		r.Post("/", s.createSession)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.closeSession)

			r.Post("/message", s.sendMessage) // Streaming response
			r.Get("/summary", s.getSummary)
		})
	})

	// Event streaming (SSE)
	r.Get("/event", s.globalEvents)
}
