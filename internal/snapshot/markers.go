package snapshot

import (
	"strings"

	"github.com/samber/lo"
)

// pointerNames are conventionally-named pointer variables worth annotating.
var pointerNames = []string{"i", "j", "left", "right", "slow", "fast", "lo", "hi", "mid", "current", "prev"}

// orderNames are conventionally-named visited-order containers.
var orderNames = []string{"visited", "seen", "path", "order"}

const orderRenderLimit = 20

// isMarkerName reports whether a binding is an annotation by naming
// convention rather than a structure candidate.
func isMarkerName(name string) bool {
	lower := strings.ToLower(name)
	return lo.Contains(pointerNames, lower) ||
		lo.Contains(orderNames, lower) ||
		strings.Contains(lower, "cycle")
}

// DetectMarkers scans bindings for conventionally-named pointer variables,
// visited-order containers and cycle flags. Detection is by naming
// convention, not static analysis, and never fails.
func DetectMarkers(bindings []Binding) (m Markers) {
	defer func() {
		if recover() != nil {
			m = Markers{}
		}
	}()

	for _, b := range bindings {
		lower := strings.ToLower(b.Name)
		v := Inspect(b.Value)

		switch {
		case lo.Contains(pointerNames, lower):
			if v.Tag == TagFunction {
				continue
			}
			if m.Pointers == nil {
				m.Pointers = make(map[string]string)
			}
			if v.Tag == TagObject || v.Tag == TagMapping {
				m.Pointers[b.Name] = renderNodeValue(v)
			} else {
				m.Pointers[b.Name] = v.Render()
			}

		case lo.Contains(orderNames, lower):
			if v.Tag != TagSequence {
				continue
			}
			if m.Order == nil {
				m.Order = make(map[string][]string)
			}
			n := v.Len()
			items := make([]string, 0, min(n, orderRenderLimit))
			for i := 0; i < n && i < orderRenderLimit; i++ {
				items = append(items, v.Index(i).Render())
			}
			m.Order[b.Name] = items

		case strings.Contains(lower, "cycle"):
			if m.CycleVars == nil {
				m.CycleVars = make(map[string]string)
			}
			m.CycleVars[b.Name] = v.Render()
			if v.Truthy() {
				m.CycleDetected = true
			}
		}
	}
	return m
}
