package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const shutdownTimeout = 5 * time.Second

// Server wraps an http.Server with synchronous port binding and graceful
// shutdown tied to a context.
type Server struct {
	name       string
	port       int
	handler    http.Handler
	logger     *slog.Logger
	httpServer *http.Server
}

// New creates a named [Server] on the given port. The name appears only in
// logs. The server does not listen until [Server.Start] is called.
func New(name string, port int, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		name:    name,
		port:    port,
		handler: handler,
		logger:  logger,
	}
}

// Start binds the port and begins serving in a background goroutine.
//
// The listener is created synchronously so a bind failure is reported to the
// caller immediately; this is the fail-fast contract for startup. Once
// started, the server runs until ctx is cancelled, then shuts down
// gracefully with a 5-second timeout.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s listener to port %d: %w", s.name, s.port, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts derive from the run context, so in-flight
		// handlers observe shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	s.logger.Info("listener started", "server", s.name, "port", s.port)

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "server", s.name, "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "server", s.name, "error", err)
		}
	}()

	return nil
}

// MetricsMux returns the handler tree for the metrics listener: the
// exposition handler at /metrics, 404 elsewhere.
func MetricsMux(exposition http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", exposition)
	return mux
}
