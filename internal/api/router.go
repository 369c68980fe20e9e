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
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// WS ticket requires authentication so the feed carries the
			// caller's identity.
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			// Thermometer endpoints
			r.Route("/thermometers", func(r chi.Router) {
				r.Get("/", s.handleListThermometers)
				r.Post("/", s.handleCreateThermometer)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetThermometer)
					r.Put("/", s.handleUpdateThermometer)
					r.Patch("/", s.handleUpdateThermometer)
					r.Delete("/", s.handleDeleteThermometer)
					r.Post("/register", s.handleRegisterThermometer)
				})
			})

			// Reading endpoints are read-only; every write method gets an
			// explicit 405 rather than chi's default.
			r.Route("/temperature-readings", func(r chi.Router) {
				r.Get("/", s.handleListReadings)
				r.Post("/", s.handleReadingWriteAttempt)
				r.Put("/", s.handleReadingWriteAttempt)
				r.Patch("/", s.handleReadingWriteAttempt)
				r.Delete("/", s.handleReadingWriteAttempt)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetReading)
					r.Post("/", s.handleReadingWriteAttempt)
					r.Put("/", s.handleReadingWriteAttempt)
					r.Patch("/", s.handleReadingWriteAttempt)
					r.Delete("/", s.handleReadingWriteAttempt)
				})
			})

			// User detail backs the owner URLs in thermometer payloads
			r.Get("/users/{id}", s.handleGetUser)

			// WebSocket (auth via ticket, validated in handler)
			r.Get("/ws", s.handleWebSocket)
		})
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
