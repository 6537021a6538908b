// Package validation provides size and shape checks for incoming
// execution requests, applied before any work is dispatched to a worker.
package validation

import (
	"fmt"
	"unicode/utf8"

	"github.com/gerdinv/exec-engine/internal/shared/types"
)

// Request size limits.
const (
	// MaxSourceSize bounds submitted source text (bytes).
	MaxSourceSize = 256 * 1024
	// MaxTestCases bounds the number of test cases per request.
	MaxTestCases = 100
	// MaxOperations bounds the steps of one operation-sequence case.
	MaxOperations = 1000
	// MaxIDLength bounds caller-supplied test case ids.
	MaxIDLength = 128
)

// ValidateRequest checks an execution request against the size limits.
// An empty test case list is valid: the code still runs once.
func ValidateRequest(req *types.ExecutionRequest) error {
	if req.SourceText == "" {
		return fmt.Errorf("source text is required")
	}
	if len(req.SourceText) > MaxSourceSize {
		return fmt.Errorf("source text %d bytes exceeds maximum %d bytes", len(req.SourceText), MaxSourceSize)
	}
	if !utf8.ValidString(req.SourceText) {
		return fmt.Errorf("source text is not valid UTF-8")
	}
	if len(req.TestCases) > MaxTestCases {
		return fmt.Errorf("%d test cases exceeds maximum %d", len(req.TestCases), MaxTestCases)
	}
	for i := range req.TestCases {
		if err := validateCase(&req.TestCases[i]); err != nil {
			return fmt.Errorf("test case %d: %w", i, err)
		}
	}
	return nil
}

func validateCase(tc *types.TestCase) error {
	if len(tc.ID) > MaxIDLength {
		return fmt.Errorf("id exceeds maximum length %d", MaxIDLength)
	}
	switch tc.EntryKind {
	case types.EntryFunction:
		if tc.TargetName == "" {
			return fmt.Errorf("function case requires a target name")
		}
	case types.EntryMethod:
		if tc.ClassName == "" || tc.TargetName == "" {
			return fmt.Errorf("method case requires a class and a target name")
		}
	case types.EntrySequence:
		if tc.ClassName == "" {
			return fmt.Errorf("sequence case requires a class name")
		}
		if len(tc.Operations) == 0 {
			return fmt.Errorf("sequence case requires at least one operation")
		}
		if len(tc.Operations) > MaxOperations {
			return fmt.Errorf("%d operations exceeds maximum %d", len(tc.Operations), MaxOperations)
		}
	default:
		return fmt.Errorf("unknown entry kind %q", tc.EntryKind)
	}
	return nil
}
