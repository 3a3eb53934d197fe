// Package server sets up the HTTP servers, routers, and route definitions.
//
// This package is the "wiring" layer: it connects handlers, middleware and
// routes, and owns start-up and graceful shutdown. Two servers are built
// here:
//
//	NewPlayground   the editor page, its JSON/SSE API and the orchestrator
//	NewExecution    the reference remote execution service (POST /execute)
//
// Both are composition roots: every dependency is created in the
// constructor and handed down, never looked up globally.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/sakif/script-playground/internal/middleware"
)

const shutdownTimeout = 30 * time.Second

// Server is one HTTP server and the resources it owns.
type Server struct {
	name         string
	router       *chi.Mux
	port         int
	writeTimeout time.Duration
	logger       *slog.Logger

	// onShutdown runs when shutdown starts, before in-flight requests drain.
	onShutdown []func()
	// closers run after the HTTP server has stopped, in order.
	closers []func() error
}

// newServer creates a router with the middleware both servers share.
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns a unique ID to each request (for tracing and logs)
// 2. RealIP: extracts the real client IP from proxy headers
// 3. Logger: logs each request with timing info and the request ID
// 4. Recoverer: catches panics and returns 500 instead of crashing
func newServer(name string, port int, writeTimeout time.Duration, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimiddleware.Recoverer)

	return &Server{
		name:         name,
		router:       r,
		port:         port,
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

// Handler returns the fully wrapped handler: the router behind OpenTelemetry
// instrumentation. Tests serve it with httptest.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, s.name)
}

// Close releases the resources the server owns without serving. Start calls
// it on the way out.
func (s *Server) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Start serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down gracefully:
//  1. Stop accepting new connections and end event streams
//  2. Wait up to 30s for in-flight requests to finish
//  3. Release owned resources (database, in-flight executions)
func (s *Server) Start(ctx context.Context) error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("failed to release resources", slog.String("error", err.Error()))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  60 * time.Second,
	}
	for _, fn := range s.onShutdown {
		srv.RegisterOnShutdown(fn)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server starting",
			slog.String("server", s.name),
			slog.Int("port", s.port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.port)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down", slog.String("server", s.name))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully", slog.String("server", s.name))
		return nil
	})

	return g.Wait()
}
