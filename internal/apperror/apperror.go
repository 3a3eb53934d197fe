// Package apperror defines the error vocabulary shared by every layer.
//
// Sentinels identify the error KIND; AppError carries the human-readable
// message that is safe to show to a user. Callers classify with errors.Is
// and extract the message with errors.As.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("Validation Error")

	// Remote execution failures. The orchestrator collapses all three into a
	// single failure message; the distinction exists for logging and tests.
	ErrTransport         = errors.New("transport error")
	ErrApplication       = errors.New("application error")
	ErrMalformedResponse = errors.New("malformed response")
	ErrTimeout           = errors.New("timeout")

	// ErrScript marks a user script that ran but did not produce a usable
	// result (non-zero exit, missing main, bad return value).
	ErrScript = errors.New("script error")
)

// GenericExecutionMessage is shown when no better description exists.
const GenericExecutionMessage = "execution failed"

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Status  int    // Optional: HTTP status observed on the wire
	Output  string // Optional: script stdout captured before the failure
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// ScriptFailed reports a script-level failure together with whatever the
// script printed.
func ScriptFailed(message, output string) *AppError {
	return &AppError{
		Err:     ErrScript,
		Message: message,
		Output:  output,
	}
}

// Transport reports a call that never produced an HTTP response.
func Transport(cause error) *AppError {
	msg := GenericExecutionMessage
	if cause != nil && cause.Error() != "" {
		msg = cause.Error()
	}
	return &AppError{
		Err:     errors.Join(ErrTransport, cause),
		Message: msg,
	}
}

// Application reports a non-2xx response. An empty message falls back to the
// generic one.
func Application(status int, message string) *AppError {
	if message == "" {
		message = GenericExecutionMessage
	}
	return &AppError{
		Err:     ErrApplication,
		Message: message,
		Status:  status,
	}
}

// MalformedResponse reports a 2xx response whose body could not be decoded.
func MalformedResponse(status int, cause error) *AppError {
	return &AppError{
		Err:     errors.Join(ErrMalformedResponse, cause),
		Message: GenericExecutionMessage + ": invalid response body",
		Status:  status,
	}
}

// Timeout reports a call abandoned after the configured deadline.
func Timeout() *AppError {
	return &AppError{
		Err:     ErrTimeout,
		Message: "timeout",
	}
}

// Message extracts the user-facing message from err. Errors that carry no
// AppError fall back to their own text, and nil or empty errors to the
// generic execution message.
func Message(err error) string {
	if err == nil {
		return GenericExecutionMessage
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return GenericExecutionMessage
}
