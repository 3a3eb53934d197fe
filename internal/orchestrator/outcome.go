package orchestrator

import (
	"encoding/json"

	"github.com/sakif/script-playground/internal/api"
)

// Kind tags the active variant of an Outcome.
type Kind int

const (
	KindIdle Kind = iota
	KindPending
	KindSucceeded
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindIdle:
		return "idle"
	case KindPending:
		return "pending"
	case KindSucceeded:
		return "succeeded"
	case KindFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText lets Kind appear as a string in JSON and logs.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Outcome is the displayed result of the latest execution attempt. Exactly
// one variant is active; fields that do not belong to the active variant are
// always zero. Build values with Idle, Pending, Succeeded and Failed.
type Outcome struct {
	Kind Kind `json:"kind"`
	// Seq is the submission that produced this outcome. Zero for Idle.
	Seq uint64 `json:"seq"`

	// Succeeded
	Stdout string          `json:"stdout,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`

	// Failed
	Message string `json:"message,omitempty"`
}

func Idle() Outcome {
	return Outcome{Kind: KindIdle}
}

func Pending(seq uint64) Outcome {
	return Outcome{Kind: KindPending, Seq: seq}
}

// Succeeded normalizes a JSON null result to nil.
func Succeeded(seq uint64, stdout string, result json.RawMessage) Outcome {
	if api.IsNull(result) {
		result = nil
	} else {
		result = append(json.RawMessage(nil), result...)
	}
	return Outcome{Kind: KindSucceeded, Seq: seq, Stdout: stdout, Result: result}
}

func Failed(seq uint64, message string) Outcome {
	return Outcome{Kind: KindFailed, Seq: seq, Message: message}
}

func (o Outcome) IsPending() bool { return o.Kind == KindPending }

// Resolved reports whether o is a terminal outcome for its submission.
func (o Outcome) Resolved() bool {
	return o.Kind == KindSucceeded || o.Kind == KindFailed
}
