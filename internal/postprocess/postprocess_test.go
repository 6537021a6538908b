package postprocess

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gerdinv/exec-engine/internal/shared/types"
)

func payload(body string) string {
	return "\n" + PayloadStart + "\n" + body + "\n" + PayloadEnd + "\n\n"
}

const snapshotJSON = `{"structure_kind":"array","structure":{"name":"nums","elements":[{"index":0,"value":"1"}]},"markers":{},"truncated":false}`

func TestExtractPayload(t *testing.T) {
	t.Run("no markers", func(t *testing.T) {
		text, snap := ExtractPayload("hello\nworld\n")
		assert.Equal(t, "hello\nworld\n", text)
		assert.Nil(t, snap)
	})

	t.Run("complete pair", func(t *testing.T) {
		stdout := "before\n" + payload(snapshotJSON) + "after\n"
		text, snap := ExtractPayload(stdout)

		require.NotNil(t, snap)
		assert.Equal(t, "array", string(snap.Kind))
		assert.Equal(t, "nums", snap.Structure.Name)

		assert.NotContains(t, text, PayloadStart)
		assert.NotContains(t, text, PayloadEnd)
		assert.Equal(t, "before\nafter\n", text)
	})

	t.Run("last complete pair wins", func(t *testing.T) {
		first := `{"structure_kind":"tree","structure":{},"markers":{},"truncated":false}`
		stdout := payload(first) + "middle\n" + payload(snapshotJSON)
		text, snap := ExtractPayload(stdout)

		require.NotNil(t, snap)
		assert.Equal(t, "array", string(snap.Kind))
		// The first pair remains untouched.
		assert.Contains(t, text, PayloadStart)
		assert.Contains(t, text, "middle")
	})

	t.Run("malformed payload still excised", func(t *testing.T) {
		stdout := "before\n" + payload("{not json") + "after\n"
		text, snap := ExtractPayload(stdout)

		assert.Nil(t, snap)
		assert.NotContains(t, text, PayloadStart)
		assert.Equal(t, "before\nafter\n", text)
	})

	t.Run("end marker without start", func(t *testing.T) {
		stdout := "x\n" + PayloadEnd + "\ny\n"
		text, snap := ExtractPayload(stdout)
		assert.Nil(t, snap)
		assert.Equal(t, stdout, text)
	})

	t.Run("guest printed markers before real pair", func(t *testing.T) {
		stdout := PayloadStart + "\nfake\n" + payload(snapshotJSON)
		_, snap := ExtractPayload(stdout)
		require.NotNil(t, snap)
		assert.Equal(t, "array", string(snap.Kind))
	})
}

func TestTruncation(t *testing.T) {
	t.Run("over limit", func(t *testing.T) {
		raw := types.RawResult{Stdout: strings.Repeat("a", 25000)}
		result := Process(raw, DefaultOptions())

		assert.True(t, result.Truncation.Stdout)
		assert.Equal(t, DefaultStdoutLimit+len(TruncationSuffix), len(result.Stdout))
		assert.True(t, strings.HasSuffix(result.Stdout, TruncationSuffix))
	})

	t.Run("at limit untouched", func(t *testing.T) {
		raw := types.RawResult{Stdout: strings.Repeat("a", DefaultStdoutLimit)}
		result := Process(raw, DefaultOptions())

		assert.False(t, result.Truncation.Stdout)
		assert.Equal(t, DefaultStdoutLimit, len(result.Stdout))
	})

	t.Run("stderr has its own ceiling", func(t *testing.T) {
		raw := types.RawResult{Stderr: strings.Repeat("e", 15000)}
		result := Process(raw, DefaultOptions())

		assert.True(t, result.Truncation.Stderr)
		assert.Equal(t, DefaultStderrLimit+len(TruncationSuffix), len(result.Stderr))
		assert.False(t, result.Truncation.Stdout)
	})

	t.Run("custom limits", func(t *testing.T) {
		raw := types.RawResult{Stdout: strings.Repeat("a", 100)}
		result := Process(raw, Options{StdoutLimit: 10, StderrLimit: 10})

		assert.True(t, result.Truncation.Stdout)
		assert.Equal(t, 10+len(TruncationSuffix), len(result.Stdout))
	})
}

func TestClassify(t *testing.T) {
	failed := []types.TestOutcome{{ID: "c1", Passed: false}}
	passed := []types.TestOutcome{{ID: "c1", Passed: true}}

	tests := []struct {
		name   string
		raw    types.RawResult
		stderr string
		want   types.ExitReason
	}{
		{
			name: "timeout wins over everything",
			raw:  types.RawResult{TimedOut: true, MemoryExceeded: true, CompileError: true, Outcomes: failed},
			want: types.ExitTimeout,
		},
		{
			name: "memory before compile",
			raw:  types.RawResult{MemoryExceeded: true, CompileError: true},
			want: types.ExitMemoryExceeded,
		},
		{
			name:   "policy violation before compile",
			raw:    types.RawResult{CompileError: true},
			stderr: "disallowed import: fs\n",
			want:   types.ExitPolicyViolation,
		},
		{
			name: "compile error flag",
			raw:  types.RawResult{CompileError: true},
			want: types.ExitCompileError,
		},
		{
			name:   "syntax error text",
			raw:    types.RawResult{},
			stderr: "SyntaxError: Unexpected token\n",
			want:   types.ExitCompileError,
		},
		{
			name: "test failure without exception",
			raw:  types.RawResult{Outcomes: failed},
			want: types.ExitTestFailure,
		},
		{
			name:   "failed case with exception is a runtime error",
			raw:    types.RawResult{Outcomes: failed},
			stderr: "TypeError: x is not a function\n",
			want:   types.ExitRuntimeError,
		},
		{
			name:   "exception with passing cases",
			raw:    types.RawResult{Outcomes: passed},
			stderr: "RangeError: out of range\n",
			want:   types.ExitRuntimeError,
		},
		{
			name:   "uncaught prefix",
			raw:    types.RawResult{},
			stderr: "Uncaught thrown value\n",
			want:   types.ExitRuntimeError,
		},
		{
			name:   "runtime error flag without error name in stderr",
			raw:    types.RawResult{RuntimeError: true},
			stderr: "oops\n\tat main.js:1:1(1)\n",
			want:   types.ExitRuntimeError,
		},
		{
			name:   "runtime error flag outranks test failure",
			raw:    types.RawResult{RuntimeError: true, Outcomes: failed},
			stderr: "oops\n",
			want:   types.ExitRuntimeError,
		},
		{
			name: "timeout outranks runtime error flag",
			raw:  types.RawResult{TimedOut: true, RuntimeError: true},
			want: types.ExitTimeout,
		},
		{
			name: "all passed",
			raw:  types.RawResult{Outcomes: passed},
			want: types.ExitSuccess,
		},
		{
			name: "no cases no errors",
			raw:  types.RawResult{},
			want: types.ExitSuccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.raw, tt.stderr))
		})
	}
}

func TestStripInternalFrames(t *testing.T) {
	in := strings.Join([]string{
		"TypeError: boom",
		"	at solve (main.js:3:5)",
		"	at github.com/dop251/goja/runtime.go:100",
		"	at test (prelude.js:7:2)",
		"	at native stack frame",
		"	at main.js:10:1",
	}, "\n")

	out := StripInternalFrames(in)

	assert.Contains(t, out, "TypeError: boom")
	assert.Contains(t, out, "main.js:3:5")
	assert.Contains(t, out, "main.js:10:1")
	assert.NotContains(t, out, "goja")
	assert.NotContains(t, out, "prelude.js")
	assert.NotContains(t, out, "native stack")
}

func TestProcessDefaults(t *testing.T) {
	result := Process(types.RawResult{}, Options{})

	// Nil outcomes normalize to an empty slice for stable JSON.
	require.NotNil(t, result.Outcomes)
	assert.Len(t, result.Outcomes, 0)
	assert.Equal(t, types.ExitSuccess, result.ExitReason)
}

func TestProcessExtractsVisualization(t *testing.T) {
	raw := types.RawResult{
		Stdout:   "debug line\n" + payload(snapshotJSON),
		Outcomes: []types.TestOutcome{{ID: "c1", Passed: false}},
	}
	result := Process(raw, DefaultOptions())

	require.NotNil(t, result.Visualization)
	assert.Equal(t, "array", string(result.Visualization.Kind))
	assert.Equal(t, "debug line\n", result.Stdout)
	assert.Equal(t, types.ExitTestFailure, result.ExitReason)
}
