package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectMarkersPointers(t *testing.T) {
	bindings := evalBindings(t, listNodeDef+`
		var slow = new ListNode(3);
		var fast = new ListNode(7);
		var i = 4;
	`, "slow", "fast", "i")

	m := DetectMarkers(bindings)

	require.NotNil(t, m.Pointers)
	// Node-like pointers render their payload attribute.
	assert.Equal(t, "3", m.Pointers["slow"])
	assert.Equal(t, "7", m.Pointers["fast"])
	assert.Equal(t, "4", m.Pointers["i"])
}

func TestDetectMarkersFunctionPointerSkipped(t *testing.T) {
	bindings := evalBindings(t, `var left = function() { return 1; };`, "left")

	m := DetectMarkers(bindings)
	assert.Nil(t, m.Pointers)
}

func TestDetectMarkersOrder(t *testing.T) {
	bindings := evalBindings(t, `var visited = ["a", "b", "c"];`, "visited")

	m := DetectMarkers(bindings)

	require.NotNil(t, m.Order)
	assert.Equal(t, []string{"a", "b", "c"}, m.Order["visited"])
}

func TestDetectMarkersOrderLimit(t *testing.T) {
	bindings := evalBindings(t, `
		var seen = [];
		for (var i = 0; i < 40; i++) seen.push(i);
	`, "seen")

	m := DetectMarkers(bindings)

	require.NotNil(t, m.Order)
	assert.Len(t, m.Order["seen"], orderRenderLimit)
}

func TestDetectMarkersOrderRequiresSequence(t *testing.T) {
	bindings := evalBindings(t, `var path = "a->b";`, "path")

	m := DetectMarkers(bindings)
	assert.Nil(t, m.Order)
}

func TestDetectMarkersCycle(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want bool
	}{
		{"truthy flag", `var hasCycle = true;`, true},
		{"falsy flag", `var hasCycle = false;`, false},
		{"non-bool truthy", `var cycleStart = "n3";`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var name string
			switch tt.name {
			case "non-bool truthy":
				name = "cycleStart"
			default:
				name = "hasCycle"
			}
			bindings := evalBindings(t, tt.src, name)

			m := DetectMarkers(bindings)

			require.NotNil(t, m.CycleVars)
			assert.Contains(t, m.CycleVars, name)
			assert.Equal(t, tt.want, m.CycleDetected)
		})
	}
}

func TestIsMarkerName(t *testing.T) {
	assert.True(t, isMarkerName("slow"))
	assert.True(t, isMarkerName("Visited"))
	assert.True(t, isMarkerName("hasCycle"))
	assert.False(t, isMarkerName("head"))
	assert.False(t, isMarkerName("graph"))
}
