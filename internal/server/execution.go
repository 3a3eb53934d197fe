package server

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/script-playground/internal/config"
	"github.com/sakif/script-playground/internal/executor"
	"github.com/sakif/script-playground/internal/handler"
	"github.com/sakif/script-playground/internal/middleware"
	sqliteRepo "github.com/sakif/script-playground/internal/repository/sqlite"
	"github.com/sakif/script-playground/internal/service"
)

// NewExecution builds the reference execution service around sandbox.
//
// DEPENDENCY CHAIN:
//
//	sqlite.DB (run log) + sandbox → ExecutionService → ExecuteHandler, RunHandler
//
// The server owns the database and closes it on shutdown. The sandbox
// belongs to the caller.
func NewExecution(cfg config.Executord, sandbox executor.Executor, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	svc := service.NewExecutionService(sandbox, db, logger)
	executeHandler := handler.NewExecuteHandler(svc, logger)
	runHandler := handler.NewRunHandler(svc, logger)

	// A request may legitimately take the whole sandbox timeout.
	s := newServer("executord", cfg.Port, cfg.Sandbox.Timeout+15*time.Second, logger)
	s.closers = append(s.closers, db.Close)

	s.executionRoutes(executeHandler, runHandler)
	return s, nil
}

// executionRoutes configures the execution service routes.
//
// ROUTE STRUCTURE:
// POST   /execute       → Run a script
// GET    /health        → Liveness probe
// GET    /runs          → Run log, newest first
// GET    /runs/{id}     → Single run
//
// Every route allows cross-origin calls.
func (s *Server) executionRoutes(exec *handler.ExecuteHandler, runs *handler.RunHandler) {
	s.router.Use(middleware.CORS)

	s.router.Post("/execute", exec.HandleExecute)
	s.router.Get("/health", handler.HandleHealth)
	s.router.Get("/runs", runs.HandleList)
	s.router.Get("/runs/{id}", runs.HandleGetByID)
}
