package postprocess

import (
	"regexp"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/gerdinv/exec-engine/internal/shared/types"
	"github.com/gerdinv/exec-engine/internal/snapshot"
)

// Marker lines delimiting an embedded snapshot payload in captured stdout.
// The last complete pair wins, guarding against a guest program that
// legitimately prints the markers itself.
const (
	PayloadStart = "=== VIZ_PAYLOAD_START ==="
	PayloadEnd   = "=== VIZ_PAYLOAD_END ==="
)

// TruncationSuffix is appended to any stream cut to its ceiling.
const TruncationSuffix = "\n... [output truncated]"

// Default character ceilings for caller-visible streams.
const (
	DefaultStdoutLimit = 20000
	DefaultStderrLimit = 10000
)

// Options configures post-processing.
type Options struct {
	StdoutLimit int
	StderrLimit int
}

// DefaultOptions returns the default stream ceilings.
func DefaultOptions() Options {
	return Options{StdoutLimit: DefaultStdoutLimit, StderrLimit: DefaultStderrLimit}
}

// Process converts a worker-side raw result into the caller-facing form:
// extracts and excises the embedded snapshot payload, truncates oversized
// streams, and classifies the exit reason.
func Process(raw types.RawResult, opts Options) *types.ExecutionResult {
	if opts.StdoutLimit <= 0 {
		opts.StdoutLimit = DefaultStdoutLimit
	}
	if opts.StderrLimit <= 0 {
		opts.StderrLimit = DefaultStderrLimit
	}

	stdout, visualization := ExtractPayload(raw.Stdout)
	stderr := StripInternalFrames(raw.Stderr)

	result := &types.ExecutionResult{
		Outcomes:      raw.Outcomes,
		Visualization: visualization,
		DurationMs:    raw.DurationMs,
		ExitReason:    Classify(raw, stderr),
	}
	if result.Outcomes == nil {
		result.Outcomes = []types.TestOutcome{}
	}

	result.Stdout, result.Truncation.Stdout = truncate(stdout, opts.StdoutLimit)
	result.Stderr, result.Truncation.Stderr = truncate(stderr, opts.StderrLimit)
	return result
}

// ExtractPayload locates the last complete marker pair in stdout, parses the
// delimited content as a structure snapshot and excises the entire region,
// including one adjacent blank line on each side. The text is returned
// unchanged when no complete pair exists.
func ExtractPayload(stdout string) (string, *snapshot.StructureSnapshot) {
	end := strings.LastIndex(stdout, PayloadEnd)
	if end < 0 {
		return stdout, nil
	}
	start := strings.LastIndex(stdout[:end], PayloadStart)
	if start < 0 {
		return stdout, nil
	}

	body := stdout[start+len(PayloadStart) : end]

	var snap *snapshot.StructureSnapshot
	var parsed snapshot.StructureSnapshot
	if err := sonic.UnmarshalString(strings.TrimSpace(body), &parsed); err == nil {
		snap = &parsed
	}

	return excise(stdout, start, end+len(PayloadEnd)), snap
}

// excise removes [from, to) widened to whole lines plus one adjacent blank
// line on each side.
func excise(text string, from, to int) string {
	// Widen to the start of the marker line.
	if i := strings.LastIndexByte(text[:from], '\n'); i >= 0 {
		from = i + 1
	} else {
		from = 0
	}
	// Widen to the end of the closing marker line.
	if i := strings.IndexByte(text[to:], '\n'); i >= 0 {
		to += i + 1
	} else {
		to = len(text)
	}

	// One adjacent blank line on each side.
	if strings.HasSuffix(text[:from], "\n\n") {
		from--
	}
	if strings.HasPrefix(text[to:], "\n") {
		to++
	}

	return text[:from] + text[to:]
}

// truncate cuts text to the ceiling and appends the fixed suffix.
func truncate(text string, limit int) (string, bool) {
	if len(text) <= limit {
		return text, false
	}
	return text[:limit] + TruncationSuffix, true
}

// exceptionPattern matches a guest exception name in captured stderr.
var exceptionPattern = regexp.MustCompile(`\b[A-Z]\w*Error\b|^Uncaught\b`)

// Classify applies the ordered decision list: explicit timeout, explicit
// memory, policy-violation text, compile-error text, any-test-failed with no
// exception, exception, else success. An exception is either the explicit
// RuntimeError flag or a matching error name in stderr; the flag covers
// thrown primitives, which leave no recognizable name behind.
func Classify(raw types.RawResult, stderr string) types.ExitReason {
	anyFailed := false
	for _, outcome := range raw.Outcomes {
		if !outcome.Passed {
			anyFailed = true
			break
		}
	}
	exception := raw.RuntimeError || exceptionPattern.MatchString(stderr)

	switch {
	case raw.TimedOut:
		return types.ExitTimeout
	case raw.MemoryExceeded:
		return types.ExitMemoryExceeded
	case strings.Contains(stderr, "disallowed import"):
		return types.ExitPolicyViolation
	case raw.CompileError || strings.Contains(stderr, "SyntaxError"):
		return types.ExitCompileError
	case anyFailed && !exception:
		return types.ExitTestFailure
	case exception:
		return types.ExitRuntimeError
	default:
		return types.ExitSuccess
	}
}

// internalFrameMarkers identify engine-owned stack frames that are not
// attributable to guest code.
var internalFrameMarkers = []string{
	"github.com/dop251/goja",
	"prelude.js",
	"native stack",
}

// StripInternalFrames removes engine-internal frames from error text,
// retaining only guest-attributable lines.
func StripInternalFrames(text string) string {
	if text == "" {
		return text
	}
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		internal := false
		for _, marker := range internalFrameMarkers {
			if strings.Contains(line, marker) {
				internal = true
				break
			}
		}
		if !internal {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
