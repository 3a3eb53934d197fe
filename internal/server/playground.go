package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/script-playground/internal/buffer"
	"github.com/sakif/script-playground/internal/client"
	"github.com/sakif/script-playground/internal/config"
	"github.com/sakif/script-playground/internal/handler"
	"github.com/sakif/script-playground/internal/orchestrator"
	"github.com/sakif/script-playground/web"
)

// StarterScript is the buffer content of a fresh playground.
const StarterScript = `import statistics

def main():
    samples = [2.5, 3.1, 4.7, 1.9, 3.8]

    print("Computing summary statistics")
    print(f"{len(samples)} samples")

    return {
        "mean": statistics.mean(samples),
        "stdev": statistics.stdev(samples),
    }
`

// NewPlayground builds the playground server.
//
// DEPENDENCY CHAIN:
//
//	client.Client (remote contract) → Orchestrator ← Store (policy)
//	Buffer + Orchestrator → PlaygroundHandler → routes
//
// The handler never calls the remote service directly; it only submits to
// the orchestrator and reads the store.
func NewPlayground(cfg config.Playground, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policy, err := orchestrator.ParsePolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}

	remote := client.New(cfg.ExecutorURL, client.WithLogger(logger))
	store := orchestrator.NewStore(policy)
	orch := orchestrator.New(remote, store,
		orchestrator.WithTimeout(cfg.Timeout),
		orchestrator.WithLogger(logger),
	)
	buf := buffer.New(StarterScript)

	playground, err := handler.NewPlaygroundHandler(buf, orch, remote.Endpoint(), logger)
	if err != nil {
		return nil, fmt.Errorf("creating playground handler: %w", err)
	}

	s := newServer("playground", cfg.Port, 15*time.Second, logger)
	s.onShutdown = append(s.onShutdown, playground.Shutdown)
	s.closers = append(s.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return orch.Shutdown(ctx)
	})

	logger.Info("playground configured",
		slog.String("executor", remote.Endpoint()),
		slog.String("policy", policy.String()),
		slog.Duration("timeout", cfg.Timeout),
	)

	s.playgroundRoutes(playground)
	return s, nil
}

// playgroundRoutes configures the playground routes.
//
// ROUTE STRUCTURE:
// GET    /              → Editor page (HTML)
// GET    /static/*      → Embedded JS/CSS
// GET    /health        → Liveness probe
// GET    /api/source    → Buffer text and version
// PUT    /api/source    → Replace buffer text
// POST   /api/run       → Submit for execution (202)
// GET    /api/state     → Current view
// GET    /api/events    → Server-sent events (state, source)
func (s *Server) playgroundRoutes(h *handler.PlaygroundHandler) {
	fileServer := http.FileServerFS(web.Static())
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	s.router.Get("/", h.HandlePlayground)
	s.router.Get("/health", handler.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/source", h.HandleGetSource)
		r.Put("/source", h.HandlePutSource)
		r.Post("/run", h.HandleRun)
		r.Get("/state", h.HandleState)
		r.Get("/events", h.HandleEvents)
	})
}
