// Package api serves the read-only query surface over HTTP: stored
// candles, latest snapshots, alerts, the current regime label and
// session level analytics, plus health and Prometheus endpoints.
package api

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Server wraps echo and serves the query API.
type Server struct {
	e    *echo.Echo
	addr string
}

// NewServer builds the router. All routes come from the handler; the
// server only owns middleware and lifecycle.
func NewServer(addr string, h *Handler) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(recoverPanics())
	e.Use(logRequests())

	h.Register(e)

	return &Server{e: e, addr: addr}
}

// Start launches the server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[api] server listening on %s", s.addr)
		if err := s.e.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[api] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
