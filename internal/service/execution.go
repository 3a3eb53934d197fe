// Package service contains the business logic of the execution service.
//
// Handlers parse HTTP and call the service; the service validates the
// script, runs it through the sandbox harness, classifies the outcome and
// records it in the run log. It never sees HTTP and never writes SQL.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/script-playground/internal/api"
	"github.com/sakif/script-playground/internal/apperror"
	"github.com/sakif/script-playground/internal/executor"
	"github.com/sakif/script-playground/internal/model"
	"github.com/sakif/script-playground/internal/repository"
)

const (
	MaxScriptLength  = 100000 // ~100KB of code
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// TimeoutMessage is reported when the sandbox kills a script at its deadline.
const TimeoutMessage = "Script execution timed out"

type ExecutionService struct {
	exec   executor.Executor
	runs   repository.RunRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewExecutionService(exec executor.Executor, runs repository.RunRepository, logger *slog.Logger) *ExecutionService {
	return &ExecutionService{
		exec:   exec,
		runs:   runs,
		logger: logger,
		now:    time.Now,
	}
}

// Execute runs script and returns its main() result and captured output.
//
// Errors:
//   - apperror.ErrValidation: the script is too large
//   - apperror.ErrScript: the script ran but failed (Output holds stdout)
//   - anything else: the sandbox failed
func (s *ExecutionService) Execute(ctx context.Context, script string) (*api.ExecuteResponse, error) {
	if len(script) > MaxScriptLength {
		return nil, apperror.ValidationFailed("script",
			fmt.Sprintf("script must be %d characters or less", MaxScriptLength))
	}

	run := &model.Run{
		ScriptBytes:  len(script),
		ScriptDigest: digest(script),
		CreatedAt:    s.now().UTC(),
	}
	defer s.record(run)

	res, err := s.exec.Execute(ctx, executor.ExecutionRequest{Script: executor.WrapScript(script)})
	if err != nil {
		run.Status = model.RunErrored
		run.Error = err.Error()
		s.logger.Error("sandbox execution failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("sandbox: %w", err)
	}

	run.ExitCode = res.ExitCode
	run.Duration = res.Duration
	run.StdoutBytes = len(res.Stdout)

	if res.TimedOut() {
		run.Status = model.RunTimedOut
		run.Error = TimeoutMessage
		return nil, apperror.ScriptFailed(TimeoutMessage, "")
	}

	if res.ExitCode != 0 {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = fmt.Sprintf("Execution failed with exit code %d", res.ExitCode)
		}
		run.Status = model.RunFailed
		run.Error = msg
		return nil, apperror.ScriptFailed(msg, res.Stdout)
	}

	out, err := executor.ParseOutput(res.Stdout)
	if err != nil {
		var outErr *executor.OutputError
		if errors.As(err, &outErr) {
			run.Status = model.RunFailed
			run.Error = outErr.Message
			return nil, apperror.ScriptFailed(outErr.Message, outErr.Stdout)
		}
		run.Status = model.RunErrored
		run.Error = err.Error()
		return nil, fmt.Errorf("parsing script output: %w", err)
	}

	run.Status = model.RunSucceeded
	s.logger.Info("script executed",
		slog.Int("scriptBytes", run.ScriptBytes),
		slog.Duration("duration", res.Duration),
	)

	return &api.ExecuteResponse{
		Stdout: out.Stdout,
		Result: out.Result,
	}, nil
}

// ListRuns returns the newest runs first, optionally filtered by status.
func (s *ExecutionService) ListRuns(ctx context.Context, limit, offset int, status string) ([]model.Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	st := model.RunStatus(strings.TrimSpace(status))
	switch st {
	case "", model.RunSucceeded, model.RunFailed, model.RunTimedOut, model.RunErrored:
	default:
		return nil, apperror.ValidationFailed("status", fmt.Sprintf("unknown run status %q", status))
	}

	runs, err := s.runs.List(ctx, repository.ListOptions{Limit: limit, Offset: offset, Status: st})
	if err != nil {
		s.logger.Error("failed to list runs", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

func (s *ExecutionService) GetRun(ctx context.Context, id string) (*model.Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "run ID is required")
	}
	return s.runs.GetByID(ctx, id)
}

// record writes the run log entry. A failing log never fails the request.
func (s *ExecutionService) record(run *model.Run) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.runs.Create(ctx, run); err != nil {
		s.logger.Warn("failed to record run",
			slog.String("status", string(run.Status)),
			slog.String("error", err.Error()),
		)
	}
}

func digest(script string) string {
	sum := sha256.Sum256([]byte(script))
	return hex.EncodeToString(sum[:8])
}
