package executor

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapScript(t *testing.T) {
	script := "def main():\n    return {'a': 1}\n"
	wrapped := WrapScript(script)

	assert.True(t, strings.HasPrefix(wrapped, "import sys"))
	assert.Contains(t, wrapped, script)
	assert.Contains(t, wrapped, `print("`+ReturnValueMarker+`")`)
	assert.Contains(t, wrapped, `print("`+StdoutMarker+`")`)
	assert.Less(t, strings.Index(wrapped, script), strings.Index(wrapped, "callable(globals()['main'])"),
		"user script must be defined before the harness looks for main()")
}

func TestParseOutput(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantResult string
		wantStdout string
		wantErr    string
	}{
		{
			name:       "dict result with output",
			raw:        "RETURN_VALUE_MARKER\n{\"mean_A\": 0.5}\nSTDOUT_MARKER\nDataFrame created successfully\n\n",
			wantResult: `{"mean_A": 0.5}`,
			wantStdout: "DataFrame created successfully",
		},
		{
			name:       "list result without output",
			raw:        "RETURN_VALUE_MARKER\n[1, 2]\nSTDOUT_MARKER\n\n",
			wantResult: `[1, 2]`,
		},
		{
			name:       "top-level prints before the markers are dropped",
			raw:        "loading\nRETURN_VALUE_MARKER\n{}\nSTDOUT_MARKER\ninside main\n",
			wantResult: `{}`,
			wantStdout: "inside main",
		},
		{
			name:    "missing markers",
			raw:     "just some text\n",
			wantErr: "Invalid script output format",
		},
		{
			name:    "missing stdout marker",
			raw:     "RETURN_VALUE_MARKER\n{}\n",
			wantErr: "Invalid script output format",
		},
		{
			name:    "invalid json",
			raw:     "RETURN_VALUE_MARKER\n{oops\nSTDOUT_MARKER\n",
			wantErr: "Failed to parse return value as JSON",
		},
		{
			name:    "scalar result",
			raw:     "RETURN_VALUE_MARKER\n42\nSTDOUT_MARKER\n",
			wantErr: "received: int",
		},
		{
			name:    "string result",
			raw:     "RETURN_VALUE_MARKER\n\"hi\"\nSTDOUT_MARKER\n",
			wantErr: "received: str",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOutput(tt.raw)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)

				var outErr *OutputError
				assert.True(t, errors.As(err, &outErr))
				return
			}

			require.NoError(t, err)
			assert.JSONEq(t, tt.wantResult, string(got.Result))
			assert.Equal(t, tt.wantStdout, got.Stdout)
		})
	}
}

func TestJSONKind(t *testing.T) {
	tests := map[string]string{
		`{}`:   "dict",
		`[]`:   "list",
		`"s"`:  "str",
		`true`: "bool",
		`null`: "NoneType",
		`1`:    "int",
		`-1.5`: "float",
		`2e10`: "float",
	}
	for in, want := range tests {
		assert.Equal(t, want, jsonKind(in), in)
	}
}

func TestExecutionResultTimedOut(t *testing.T) {
	assert.True(t, (&ExecutionResult{ExitCode: TimeoutExitCode}).TimedOut())
	assert.False(t, (&ExecutionResult{ExitCode: 1}).TimedOut())
}
