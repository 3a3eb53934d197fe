// Package presentation derives what the user sees from the current outcome.
//
// A View is a pure function of an orchestrator.Outcome. Nothing here holds
// state: the HTML page, the JSON state endpoint and the terminal renderer all
// call FromOutcome on a Store snapshot.
package presentation

import (
	"bytes"
	"encoding/json"

	"github.com/sakif/script-playground/internal/orchestrator"
)

const (
	RunLabel     = "Run Code"
	RunningLabel = "Executing..."
)

// View is the presentation state for one outcome.
type View struct {
	Status  string `json:"status"`
	Seq     uint64 `json:"seq"`
	Loading bool   `json:"loading"`

	Error  string `json:"error,omitempty"`
	Stdout string `json:"stdout,omitempty"`
	// Result is the pretty-printed JSON result value.
	Result string `json:"result,omitempty"`

	ShowError  bool `json:"showError"`
	ShowStdout bool `json:"showStdout"`
	ShowResult bool `json:"showResult"`

	ButtonLabel string `json:"buttonLabel"`
}

func FromOutcome(o orchestrator.Outcome) View {
	v := View{
		Status:      o.Kind.String(),
		Seq:         o.Seq,
		Loading:     o.IsPending(),
		ButtonLabel: RunLabel,
	}
	if v.Loading {
		v.ButtonLabel = RunningLabel
	}

	switch o.Kind {
	case orchestrator.KindSucceeded:
		v.Stdout = o.Stdout
		v.ShowStdout = o.Stdout != ""
		if len(o.Result) > 0 {
			v.Result = PrettyJSON(o.Result)
			v.ShowResult = true
		}
	case orchestrator.KindFailed:
		v.Error = o.Message
		v.ShowError = o.Message != ""
	}
	return v
}

// PrettyJSON indents raw with two spaces. Input that is not valid JSON is
// returned unchanged.
func PrettyJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
