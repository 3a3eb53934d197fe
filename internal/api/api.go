// Package api holds the JSON contract spoken between the playground and a
// remote execution service.
//
//	POST /execute   {"script": "..."}
//	2xx             {"stdout": "...", "result": <any JSON or null>}
//	non-2xx         {"error": "...", "stdout": "..."}
//
// Both the client (internal/client) and the reference service
// (internal/handler.ExecuteHandler) use these types so the two sides cannot
// drift apart.
package api

import (
	"bytes"
	"encoding/json"
)

// ExecuteRequest is the immutable snapshot of the source text sent for one
// execution.
type ExecuteRequest struct {
	Script string `json:"script"`
}

// ExecuteResponse is the success body. Result is nil when the service
// returned no value or an explicit JSON null.
type ExecuteResponse struct {
	Stdout string          `json:"stdout"`
	Result json.RawMessage `json:"result"`
}

// ErrorResponse is the failure body. Stdout carries whatever the script
// printed before failing; the playground does not display it.
type ErrorResponse struct {
	Error  string `json:"error"`
	Stdout string `json:"stdout,omitempty"`
}

// HealthResponse is returned by GET /health on both servers.
type HealthResponse struct {
	Status string `json:"status"`
}

// IsNull reports whether raw is absent or the JSON literal null.
func IsNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
