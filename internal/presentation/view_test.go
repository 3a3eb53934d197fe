package presentation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/script-playground/internal/orchestrator"
)

func TestFromOutcome(t *testing.T) {
	tests := []struct {
		name    string
		outcome orchestrator.Outcome
		want    View
	}{
		{
			name:    "idle shows nothing",
			outcome: orchestrator.Idle(),
			want:    View{Status: "idle", ButtonLabel: RunLabel},
		},
		{
			name:    "pending is loading and shows nothing",
			outcome: orchestrator.Pending(3),
			want:    View{Status: "pending", Seq: 3, Loading: true, ButtonLabel: RunningLabel},
		},
		{
			name:    "success with nothing to show",
			outcome: orchestrator.Succeeded(1, "", nil),
			want:    View{Status: "succeeded", Seq: 1, ButtonLabel: RunLabel},
		},
		{
			name:    "success with null result",
			outcome: orchestrator.Succeeded(1, "", json.RawMessage("null")),
			want:    View{Status: "succeeded", Seq: 1, ButtonLabel: RunLabel},
		},
		{
			name:    "success with stdout only",
			outcome: orchestrator.Succeeded(2, "hello\n", nil),
			want:    View{Status: "succeeded", Seq: 2, Stdout: "hello\n", ShowStdout: true, ButtonLabel: RunLabel},
		},
		{
			name:    "failure",
			outcome: orchestrator.Failed(4, "syntax error on line 3"),
			want: View{
				Status: "failed", Seq: 4,
				Error: "syntax error on line 3", ShowError: true,
				ButtonLabel: RunLabel,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromOutcome(tt.outcome))
		})
	}
}

func TestFromOutcome_RoundTrip(t *testing.T) {
	v := FromOutcome(orchestrator.Succeeded(1, "X", json.RawMessage(`{"a":1}`)))

	assert.True(t, v.ShowStdout)
	assert.Equal(t, "X", v.Stdout)
	require.True(t, v.ShowResult)
	assert.Equal(t, "{\n  \"a\": 1\n}", v.Result)

	var decoded map[string]int
	require.NoError(t, json.Unmarshal([]byte(v.Result), &decoded))
	assert.Equal(t, 1, decoded["a"])
}

func TestFromOutcome_FalsyResultsAreShown(t *testing.T) {
	// Only null hides the result panel; zero values are real results.
	for _, raw := range []string{`0`, `false`, `""`, `[]`, `{}`} {
		v := FromOutcome(orchestrator.Succeeded(1, "", json.RawMessage(raw)))
		assert.True(t, v.ShowResult, raw)
	}
}

func TestPrettyJSON(t *testing.T) {
	assert.Equal(t, "[\n  1,\n  2\n]", PrettyJSON(json.RawMessage(`[1,2]`)))
	assert.Equal(t, "not json", PrettyJSON(json.RawMessage(`not json`)))
}

func TestRenderTerminal(t *testing.T) {
	t.Run("nothing to show", func(t *testing.T) {
		assert.Empty(t, RenderTerminal(FromOutcome(orchestrator.Idle())))
	})

	t.Run("empty success", func(t *testing.T) {
		out := RenderTerminal(FromOutcome(orchestrator.Succeeded(1, "", nil)))
		assert.Contains(t, out, "finished with no output")
		assert.NotContains(t, out, "Standard Output")
		assert.NotContains(t, out, "Result")
	})

	t.Run("stdout and result", func(t *testing.T) {
		out := RenderTerminal(FromOutcome(orchestrator.Succeeded(1, "X", json.RawMessage(`{"a":1}`))))
		assert.Contains(t, out, "Standard Output")
		assert.Contains(t, out, "X")
		assert.Contains(t, out, "Result")
		assert.Contains(t, out, `"a": 1`)
	})

	t.Run("error", func(t *testing.T) {
		out := RenderTerminal(FromOutcome(orchestrator.Failed(1, "boom")))
		assert.Contains(t, out, "Error:")
		assert.Contains(t, out, "boom")
	})

	t.Run("pending", func(t *testing.T) {
		assert.Contains(t, RenderTerminal(FromOutcome(orchestrator.Pending(1))), RunningLabel)
	})
}
