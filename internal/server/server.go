// Package server wraps http.Server with the timeouts and graceful
// shutdown behavior the service expects.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/decidefyi/decide/internal/common/logging"
)

// Server represents the service's HTTP server.
type Server struct {
	srv *http.Server
}

// New creates a server listening on the given port.
func New(handler http.Handler, port string) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         ":" + port,
			Handler:      handler,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Start begins serving in a background goroutine. A listen failure is
// fatal; there is nothing useful the process can do without a listener.
func (s *Server) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("server stopped unexpectedly", err)
			panic(err)
		}
	}()
}

// Shutdown gracefully shuts down the server, waiting for in-flight
// requests up to the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
