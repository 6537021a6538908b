// Package types provides shared data structures for the execution engine.
//
// This package defines the request and result shapes used across all
// components, keeping the wire contract in one place.
//
// Core Types:
//   - ExecutionRequest: Source text, test cases and limits for one run
//   - TestCase: One harness-driven check (function, method, or sequence)
//   - Operation: One step of an operation-sequence test
//   - ExecutionResult: Normalized outcome returned to callers
//   - TestOutcome: Per-case pass/fail with received and expected values
//   - RawResult: Unprocessed worker output before post-processing
//
// Classification:
//   - ExitReason: Ordered single-label classification of how a run ended
//   - Truncation: Which output streams were cut at their caps
//
// Example Usage:
//
//	req := types.ExecutionRequest{
//	    SourceText: "function add(a, b) { return a + b; }",
//	    TestCases: []types.TestCase{{
//	        ID:         "case-1",
//	        EntryKind:  types.EntryFunction,
//	        TargetName: "add",
//	        Arguments:  []any{2, 3},
//	        Expected:   5,
//	    }},
//	}
package types
