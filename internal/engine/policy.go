package engine

import (
	"fmt"
	"regexp"

	"github.com/samber/lo"
)

// PolicyError reports a disallowed import in guest source. It surfaces like
// a compile failure: detected before execution, attributed to the guest.
type PolicyError struct {
	Module string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("disallowed import: %s", e.Module)
}

var (
	requirePattern = regexp.MustCompile(`\brequire\s*\(\s*["']([^"']+)["']\s*\)`)
	importPattern  = regexp.MustCompile(`(?m)^\s*import\b[^\n"']*["']([^"']+)["']`)
)

// ValidatePolicy checks every import in source against the allow-list,
// rejecting anything else before execution.
func ValidatePolicy(source string, allowed []string) error {
	for _, pattern := range []*regexp.Regexp{importPattern, requirePattern} {
		for _, match := range pattern.FindAllStringSubmatch(source, -1) {
			module := match[1]
			if !lo.Contains(allowed, module) {
				return &PolicyError{Module: module}
			}
		}
	}
	return nil
}
