package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// Server wraps http.Server with start/stop lifecycle
type Server struct {
	httpServer *http.Server
}

// ServerOptions holds listener settings
type ServerOptions struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewServer creates a new server instance
func NewServer(opts ServerOptions, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              opts.Addr,
			Handler:           handler,
			ReadTimeout:       opts.ReadTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      opts.WriteTimeout,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Start listens in the background; listener errors are sent on the returned channel
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("HTTP server shutting down gracefully...")
	return s.httpServer.Shutdown(ctx)
}
