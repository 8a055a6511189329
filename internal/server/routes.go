// Package server wires the HTTP routes onto a chi router.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes builds the router with all application endpoints: health check,
// websocket upgrade, and the test page.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.HealthHandler)
	r.Get("/ws", s.WebSocketHandler)
	r.Get("/test", s.TestPageHandler)
	return r
}
