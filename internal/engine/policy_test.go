package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePolicy(t *testing.T) {
	tests := []struct {
		name       string
		source     string
		allowed    []string
		wantModule string
	}{
		{
			name:   "no imports",
			source: `function add(a, b) { return a + b; }`,
		},
		{
			name:       "require rejected",
			source:     `var fs = require("fs");`,
			wantModule: "fs",
		},
		{
			name:       "require single quotes",
			source:     `var net = require('net');`,
			wantModule: "net",
		},
		{
			name:       "import statement rejected",
			source:     `import path from "path";`,
			wantModule: "path",
		},
		{
			name:       "indented import",
			source:     "  import { x } from 'child_process';",
			wantModule: "child_process",
		},
		{
			name:    "allow-listed require passes",
			source:  `var _ = require("lodash");`,
			allowed: []string{"lodash"},
		},
		{
			name:       "mixed allowed and disallowed",
			source:     `var _ = require("lodash"); var fs = require("fs");`,
			allowed:    []string{"lodash"},
			wantModule: "fs",
		},
		{
			name:   "require mentioned in a string is still flagged",
			source: `var s = 'require("os")';`,
			// Textual detection is deliberately conservative.
			wantModule: "os",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePolicy(tt.source, tt.allowed)
			if tt.wantModule == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var perr *PolicyError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.wantModule, perr.Module)
			assert.Contains(t, err.Error(), "disallowed import: "+tt.wantModule)
		})
	}
}
