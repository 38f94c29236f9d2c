// Package api serves the backend action surface consumed by clients.
//
// The surface is a single endpoint dispatching on an `action` name, with
// every response wrapped in a JSON envelope carrying an `ok` boolean. Clients
// poll it; nothing is pushed.
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Server hosts the action API over HTTP.
type Server struct {
	httpServer *http.Server
}

// NewServer creates a server listening on addr with the given handler.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}
