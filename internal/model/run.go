// Package model defines the data structures persisted by the execution service.
package model

import "time"

// RunStatus classifies how a sandbox run ended.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	// RunFailed means the script ran but produced no usable result.
	RunFailed   RunStatus = "failed"
	RunTimedOut RunStatus = "timed_out"
	// RunErrored means the sandbox itself failed.
	RunErrored RunStatus = "errored"
)

// Run is one entry of the execution log. The script text itself is not kept;
// only its size and a digest are recorded.
type Run struct {
	ID           string        `json:"id"`
	Status       RunStatus     `json:"status"`
	ExitCode     int           `json:"exitCode"`
	Duration     time.Duration `json:"duration"`
	ScriptBytes  int           `json:"scriptBytes"`
	ScriptDigest string        `json:"scriptDigest"`
	StdoutBytes  int           `json:"stdoutBytes"`
	Error        string        `json:"error,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}
