package executor

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Output markers printed by the harness after main() returns. Everything
// between them is the JSON return value; everything after the second is what
// main() printed.
const (
	ReturnValueMarker = "RETURN_VALUE_MARKER"
	StdoutMarker      = "STDOUT_MARKER"
)

const harnessPrelude = `import sys
import json
import io
from contextlib import redirect_stdout

`

// harnessEpilogue requires a callable main() returning a dict or list.
// Failures exit non-zero with a message on stderr.
const harnessEpilogue = `

if 'main' not in globals() or not callable(globals()['main']):
    sys.exit("Error: No main() function found in the script")

__captured_output = io.StringIO()

try:
    with redirect_stdout(__captured_output):
        __return_value = main()

    if not isinstance(__return_value, (dict, list)):
        sys.exit(f"Error: main() function must return a JSON object. Got {type(__return_value).__name__} instead: {__return_value!r}")

    try:
        __json_result = json.dumps(__return_value)
    except Exception as e:
        sys.exit(f"Error: Could not convert return value to JSON: {e}")

    print("` + ReturnValueMarker + `")
    print(__json_result)
    print("` + StdoutMarker + `")
    print(__captured_output.getvalue())
except Exception as e:
    import traceback
    sys.exit(f"Error during execution: {e}\n{traceback.format_exc()}")
`

// WrapScript embeds script in the Python harness.
func WrapScript(script string) string {
	var sb strings.Builder
	sb.Grow(len(harnessPrelude) + len(script) + len(harnessEpilogue))
	sb.WriteString(harnessPrelude)
	sb.WriteString(script)
	sb.WriteString(harnessEpilogue)
	return sb.String()
}

// HarnessOutput is what ParseOutput recovers from a successful run.
type HarnessOutput struct {
	Result json.RawMessage
	Stdout string
}

// OutputError describes harness output that cannot be turned into a result.
// Stdout is the best stdout available for the error response.
type OutputError struct {
	Message string
	Stdout  string
}

func (e *OutputError) Error() string { return e.Message }

// ParseOutput splits raw process stdout into the JSON return value and the
// captured stdout, and checks that the value is an object or array.
func ParseOutput(raw string) (*HarnessOutput, error) {
	_, afterReturn, ok := strings.Cut(raw, ReturnValueMarker)
	if !ok || !strings.Contains(afterReturn, StdoutMarker) {
		return nil, &OutputError{Message: "Invalid script output format", Stdout: raw}
	}

	value, printed, _ := strings.Cut(afterReturn, StdoutMarker)
	value = strings.TrimSpace(value)
	printed = strings.TrimSpace(printed)

	if !json.Valid([]byte(value)) {
		var decoded any
		err := json.Unmarshal([]byte(value), &decoded)
		return nil, &OutputError{
			Message: fmt.Sprintf("Failed to parse return value as JSON: %v", err),
			Stdout:  printed,
		}
	}

	if kind := jsonKind(value); kind != "dict" && kind != "list" {
		return nil, &OutputError{
			Message: fmt.Sprintf("Server validation failed: Result must be a JSON object (dict) or array (list), received: %s", kind),
			Stdout:  printed,
		}
	}

	return &HarnessOutput{
		Result: json.RawMessage(value),
		Stdout: printed,
	}, nil
}

// jsonKind names the Python type a JSON value decodes to.
func jsonKind(value string) string {
	if value == "" {
		return "NoneType"
	}
	switch value[0] {
	case '{':
		return "dict"
	case '[':
		return "list"
	case '"':
		return "str"
	case 't', 'f':
		return "bool"
	case 'n':
		return "NoneType"
	default:
		if strings.ContainsAny(value, ".eE") {
			return "float"
		}
		return "int"
	}
}
