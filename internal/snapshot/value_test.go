package snapshot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspectTags(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want Tag
	}{
		{"null", `null`, TagNull},
		{"undefined", `undefined`, TagNull},
		{"bool", `true`, TagBool},
		{"int", `42`, TagInt},
		{"float", `3.5`, TagFloat},
		{"string", `"hi"`, TagText},
		{"array", `[1, 2]`, TagSequence},
		{"plain object", `({a: 1})`, TagMapping},
		{"instance", `(function() { function Node() {} return new Node(); })()`, TagObject},
		{"function", `(function() {})`, TagFunction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Inspect(eval(t, tt.src))
			assert.Equal(t, tt.want, v.Tag)
		})
	}
}

func TestValueAttrAndKeys(t *testing.T) {
	v := Inspect(eval(t, `({a: 1, b: "x"})`))

	attr, ok := v.Attr("a")
	require.True(t, ok)
	assert.Equal(t, TagInt, attr.Tag)

	_, ok = v.Attr("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"a", "b"}, v.Keys())
}

func TestValueSequence(t *testing.T) {
	v := Inspect(eval(t, `[10, "x", null]`))

	assert.Equal(t, 3, v.Len())
	assert.Equal(t, TagInt, v.Index(0).Tag)
	assert.Equal(t, TagText, v.Index(1).Tag)
	assert.Equal(t, TagNull, v.Index(2).Tag)
}

func TestValueInt(t *testing.T) {
	n, ok := Inspect(eval(t, `7`)).Int()
	require.True(t, ok)
	assert.Equal(t, int64(7), n)

	// Whole floats count as integers.
	n, ok = Inspect(eval(t, `7.0`)).Int()
	require.True(t, ok)
	assert.Equal(t, int64(7), n)

	_, ok = Inspect(eval(t, `7.5`)).Int()
	assert.False(t, ok)
}

func TestRenderBounded(t *testing.T) {
	t.Run("long sequence elided", func(t *testing.T) {
		v := Inspect(eval(t, `[1,2,3,4,5,6,7,8,9,10]`))
		out := v.Render()
		assert.Contains(t, out, "...")
		assert.NotContains(t, out, "9")
	})

	t.Run("depth bounded", func(t *testing.T) {
		v := Inspect(eval(t, `[[[1]]]`))
		out := v.Render()
		assert.Contains(t, out, "[...]")
	})

	t.Run("node renders payload", func(t *testing.T) {
		v := Inspect(eval(t, `(function() {
			function Node(val) { this.val = val; this.next = null; }
			return new Node(11);
		})()`))
		assert.Equal(t, "11", v.Render())
	})

	t.Run("instance without payload renders constructor", func(t *testing.T) {
		v := Inspect(eval(t, `(function() {
			function Widget() { this.weight = [1]; }
			return new Widget();
		})()`))
		assert.Equal(t, "<Widget>", v.Render())
	})
}

func TestRenderMappingLimit(t *testing.T) {
	v := Inspect(eval(t, `({a:1, b:2, c:3, d:4, e:5, f:6})`))
	out := v.Render()
	assert.True(t, strings.HasSuffix(out, ", ...}"))
}
