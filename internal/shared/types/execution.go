package types

import "github.com/gerdinv/exec-engine/internal/snapshot"

// EntryKind selects how the harness drives a test case.
type EntryKind string

const (
	// EntryFunction calls a top-level function with arguments.
	EntryFunction EntryKind = "function"
	// EntryMethod instantiates a class with no arguments and calls a method.
	EntryMethod EntryKind = "method"
	// EntrySequence instantiates a class with constructor arguments and
	// drives an ordered list of method calls, collecting every return.
	EntrySequence EntryKind = "sequence"
)

// Operation is one step of a sequence test case.
type Operation struct {
	Name      string `json:"name"`
	Arguments []any  `json:"arguments"`
}

// TestCase describes one harness case.
//
// For EntryFunction, TargetName is the function and Arguments its call
// arguments. For EntryMethod, ClassName is constructed with no arguments and
// TargetName is the method. For EntrySequence, ClassName is constructed with
// Arguments and Operations are applied in order; returns are collected
// positionally with a null in the first slot, aligning with the constructor.
type TestCase struct {
	ID         string      `json:"id"`
	EntryKind  EntryKind   `json:"entry_kind"`
	TargetName string      `json:"target_name,omitempty"`
	ClassName  string      `json:"class_name,omitempty"`
	Arguments  []any       `json:"arguments,omitempty"`
	Operations []Operation `json:"operations,omitempty"`
	// Expected enables structural comparison when non-nil; a nil Expected
	// treats call success as a pass.
	Expected any `json:"expected_value,omitempty"`
}

// ExecutionRequest is immutable once dispatched to a worker.
type ExecutionRequest struct {
	SourceText  string     `json:"source_text" binding:"required"`
	TestCases   []TestCase `json:"test_cases"`
	TimeLimitMs int        `json:"time_limit_ms"`
	MemLimitMB  int        `json:"mem_limit_mb"`
}

// Limits bounds a single execution.
type Limits struct {
	TimeLimitMs int `json:"time_limit_ms"`
	MemLimitMB  int `json:"mem_limit_mb"`
}

// TestOutcome is the result of one test case. Outcomes are order-preserving
// and independently computed: one case's failure never aborts the rest.
type TestOutcome struct {
	ID         string `json:"id"`
	TargetName string `json:"target_name"`
	Passed     bool   `json:"passed"`
	Received   any    `json:"received_value,omitempty"`
	Expected   any    `json:"expected_value,omitempty"`
	ErrorText  string `json:"error_text,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// ExitReason classifies how an execution finished.
type ExitReason string

const (
	ExitSuccess         ExitReason = "success"
	ExitTestFailure     ExitReason = "test_failure"
	ExitRuntimeError    ExitReason = "runtime_error"
	ExitCompileError    ExitReason = "compile_error"
	ExitPolicyViolation ExitReason = "policy_violation"
	ExitTimeout         ExitReason = "timeout"
	ExitMemoryExceeded  ExitReason = "memory_exceeded"
	ExitTerminated      ExitReason = "terminated"
)

// Truncation flags record which captured streams were cut to their ceiling.
type Truncation struct {
	Stdout bool `json:"stdout"`
	Stderr bool `json:"stderr"`
}

// ExecutionResult is the caller-facing value produced once per request.
type ExecutionResult struct {
	Stdout        string                      `json:"stdout_text"`
	Stderr        string                      `json:"stderr_text"`
	ExitReason    ExitReason                  `json:"exit_reason"`
	Outcomes      []TestOutcome               `json:"outcomes"`
	Visualization *snapshot.StructureSnapshot `json:"visualization,omitempty"`
	DurationMs    int64                       `json:"duration_ms"`
	Truncation    Truncation                  `json:"truncation"`
}

// RawResult is the worker-side result before post-processing: streams still
// carry any embedded snapshot payload and no truncation has been applied.
type RawResult struct {
	Stdout       string
	Stderr       string
	Outcomes     []TestOutcome
	CompileError bool
	// RuntimeError records that top-level execution failed with a guest
	// exception, independent of how the exception rendered into stderr.
	RuntimeError   bool
	TimedOut       bool
	MemoryExceeded bool
	DurationMs     int64
}
