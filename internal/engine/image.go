package engine

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/dop251/goja"
)

//go:embed prelude.js
var preludeSource string

// Image is the loaded runtime image: the helper library compiled once and
// shared read-only across requests, amortizing startup cost.
type Image struct {
	prog     *goja.Program
	location string
}

// LoadImage compiles the helper library. An empty location loads the
// embedded default; otherwise the file at location is used. A load failure
// is fatal for the owning worker and is not auto-retried.
func LoadImage(location string) (*Image, error) {
	src := preludeSource
	if location != "" {
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("load runtime image: %w", err)
		}
		src = string(data)
	}

	prog, err := goja.Compile("prelude.js", src, true)
	if err != nil {
		return nil, fmt.Errorf("compile runtime image: %w", err)
	}
	return &Image{prog: prog, location: location}, nil
}
