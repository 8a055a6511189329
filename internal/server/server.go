// Package server constructs and runs the Palaver HTTP service.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"
)

// Server ties the hub and the HTTP listener together.
type Server struct {
	hub        *Hub
	httpServer *http.Server
}

// NewServer applies cfg (nil resets to defaults) and builds a server with a
// fresh hub. The hub is not running yet; call Start, or StartHub when
// serving through an external listener.
func NewServer(cfg *Config) *Server {
	SetConfig(cfg)
	active := currentConfig()

	s := &Server{hub: NewHub()}
	s.httpServer = &http.Server{
		Addr:         active.Port,
		Handler:      s.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Hub returns the server's hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP handler, for tests that serve it themselves.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// StartHub launches the hub's event loop in its own goroutine.
func (s *Server) StartHub() {
	go s.hub.Run()
	log.Println("Hub started and ready to manage connections")
}

// Start runs the hub and the HTTP listener; it blocks until the listener
// stops.
func (s *Server) Start() error {
	s.StartHub()
	log.Printf("Server listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the hub, then drains the HTTP server. Both get the same
// timeout; errors from the two phases are joined.
func (s *Server) Shutdown(timeout time.Duration) error {
	hubErr := s.hub.Shutdown(timeout)

	log.Println("Shutting down HTTP server...")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	httpErr := s.httpServer.Shutdown(ctx)
	if httpErr != nil {
		log.Printf("HTTP server shutdown error: %v", httpErr)
	} else {
		log.Println("HTTP server shutdown completed")
	}

	return errors.Join(hubErr, httpErr)
}
