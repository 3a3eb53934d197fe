package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// Two error shapes exist because two different clients talk to us:
//
//	playground API   {"error": "not_found", "message": "run not found with id abc123"}
//	execution API    {"error": "NameError: name 'x' is not defined", "stdout": "..."}
//
// The execution shape is a wire contract shared with internal/client (see
// internal/api), so it must not change; the playground shape is ours.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/script-playground/internal/api"
	"github.com/sakif/script-playground/internal/apperror"
)

// ErrorResponse is the standard error format returned by the playground API.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code.
//
// Headers and status MUST be set before the body: once Encode writes, the
// headers are on the wire and later changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// errors.Is() walks the whole chain, so a service error like
//
//	fmt.Errorf("listing runs: %w", apperror.ValidationFailed(...))
//
// still maps to 400.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError

	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest // 400
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound // 404
			errorType = "not_found"
		case errors.Is(err, apperror.ErrScript):
			status = http.StatusBadRequest // 400
			errorType = "script_error"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	// Unknown error: never expose internals (SQL, file paths) to the client.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// writeExecutionError sends a failure in the execution contract shape.
//
// Script failures and bad requests are 400 with the message in "error" and
// whatever the script printed in "stdout". Anything else is the sandbox
// failing, reported as 500 "Error running script: ...".
func writeExecutionError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) &&
		(errors.Is(err, apperror.ErrScript) || errors.Is(err, apperror.ErrValidation)) {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{
			Error:  appErr.Message,
			Stdout: appErr.Output,
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{
		Error: "Error running script: " + err.Error(),
	})
}
