// Package executor defines the sandbox abstraction used by the execution
// service, and the Python harness that turns a user script into a program
// whose main() return value can be recovered from its output.
package executor

import (
	"context"
	"time"
)

// TimeoutExitCode is reported when a sandbox kills a run at its deadline,
// mirroring the coreutils timeout command.
const TimeoutExitCode = 124

// ExecutionRequest is the program handed to a sandbox.
type ExecutionRequest struct {
	Script string `json:"script"`
}

// ExecutionResult is the raw process outcome of one sandbox run.
type ExecutionResult struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
}

// TimedOut reports whether the sandbox stopped the run at its deadline.
func (r *ExecutionResult) TimedOut() bool {
	return r.ExitCode == TimeoutExitCode
}

// Executor runs code in an isolated environment. A non-zero exit code is a
// result, not an error; errors mean the sandbox itself failed.
type Executor interface {
	Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error)
}
