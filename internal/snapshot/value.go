package snapshot

import (
	"strconv"
	"strings"

	"github.com/dop251/goja"
)

// Tag identifies the coarse shape of a guest value as seen through the
// runtime's introspection surface.
type Tag int

const (
	TagNull Tag = iota
	TagBool
	TagInt
	TagFloat
	TagText
	TagSequence // array-like
	TagMapping  // plain object, used as a dictionary
	TagObject   // composite instance with a named constructor
	TagFunction
)

// Value is a tagged view over a guest runtime value. Every accessor is
// guarded: a throwing guest getter degrades to "attribute absent" rather
// than propagating.
type Value struct {
	Tag Tag
	raw goja.Value
	obj *goja.Object // non-nil for Sequence/Mapping/Object/Function
}

// Inspect classifies a guest value into the tagged union.
func Inspect(v goja.Value) Value {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return Value{Tag: TagNull, raw: v}
	}

	if obj, ok := v.(*goja.Object); ok {
		if _, isFn := goja.AssertFunction(v); isFn {
			return Value{Tag: TagFunction, raw: v, obj: obj}
		}
		if className(obj) == "Array" {
			return Value{Tag: TagSequence, raw: v, obj: obj}
		}
		if ctor := constructorName(obj); ctor != "" && ctor != "Object" {
			return Value{Tag: TagObject, raw: v, obj: obj}
		}
		return Value{Tag: TagMapping, raw: v, obj: obj}
	}

	switch exported := v.Export().(type) {
	case bool:
		return Value{Tag: TagBool, raw: v}
	case int64:
		return Value{Tag: TagInt, raw: v}
	case float64:
		_ = exported
		return Value{Tag: TagFloat, raw: v}
	case string:
		return Value{Tag: TagText, raw: v}
	default:
		return Value{Tag: TagNull, raw: v}
	}
}

// IsNull reports whether the value is null or undefined.
func (v Value) IsNull() bool { return v.Tag == TagNull }

// IsComposite reports whether the value has inspectable attributes.
func (v Value) IsComposite() bool {
	return v.Tag == TagSequence || v.Tag == TagMapping || v.Tag == TagObject
}

// Identity returns the underlying object reference for identity-based
// deduplication, or nil for primitives.
func (v Value) Identity() *goja.Object { return v.obj }

// Attr returns the named attribute of a composite value.
func (v Value) Attr(name string) (Value, bool) {
	if v.obj == nil {
		return Value{Tag: TagNull}, false
	}
	raw, ok := safeGet(v.obj, name)
	if !ok {
		return Value{Tag: TagNull}, false
	}
	return Inspect(raw), true
}

// HasAttr reports whether the named attribute exists and is not undefined.
func (v Value) HasAttr(name string) bool {
	_, ok := v.Attr(name)
	return ok
}

// FirstAttr returns the first present attribute among names.
func (v Value) FirstAttr(names ...string) (Value, string, bool) {
	for _, name := range names {
		if attr, ok := v.Attr(name); ok {
			return attr, name, true
		}
	}
	return Value{Tag: TagNull}, "", false
}

// Keys returns the own enumerable keys of a composite value.
func (v Value) Keys() []string {
	if v.obj == nil {
		return nil
	}
	return safeKeys(v.obj)
}

// Len returns the length of a sequence.
func (v Value) Len() int {
	if v.Tag != TagSequence || v.obj == nil {
		return 0
	}
	length, ok := safeGet(v.obj, "length")
	if !ok {
		return 0
	}
	n := length.ToInteger()
	if n < 0 {
		return 0
	}
	return int(n)
}

// Index returns the i-th element of a sequence.
func (v Value) Index(i int) Value {
	if v.obj == nil {
		return Value{Tag: TagNull}
	}
	raw, ok := safeGet(v.obj, strconv.Itoa(i))
	if !ok {
		return Value{Tag: TagNull}
	}
	return Inspect(raw)
}

// Int returns the integral value and whether the value is an integer
// (or a float with no fractional part).
func (v Value) Int() (int64, bool) {
	switch v.Tag {
	case TagInt:
		return v.raw.ToInteger(), true
	case TagFloat:
		f := v.raw.ToFloat()
		if f == float64(int64(f)) {
			return int64(f), true
		}
	}
	return 0, false
}

// Bool returns the boolean value of a TagBool.
func (v Value) Bool() bool {
	return v.Tag == TagBool && v.raw.ToBoolean()
}

// Truthy reports JS truthiness, guarding against nil.
func (v Value) Truthy() bool {
	if v.raw == nil {
		return false
	}
	return v.raw.ToBoolean()
}

const (
	renderSeqLimit = 8
	renderMapLimit = 4
	renderDepth    = 2
)

// Render produces a short, bounded textual form of the value.
func (v Value) Render() string {
	return v.render(renderDepth)
}

func (v Value) render(depth int) string {
	switch v.Tag {
	case TagNull:
		return "null"
	case TagBool, TagInt, TagFloat:
		return safeString(v.raw)
	case TagText:
		return safeString(v.raw)
	case TagFunction:
		return "<function>"
	case TagSequence:
		if depth <= 0 {
			return "[...]"
		}
		n := v.Len()
		parts := make([]string, 0, renderSeqLimit+1)
		for i := 0; i < n && i < renderSeqLimit; i++ {
			parts = append(parts, v.Index(i).render(depth-1))
		}
		if n > renderSeqLimit {
			parts = append(parts, "...")
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case TagMapping:
		if depth <= 0 {
			return "{...}"
		}
		keys := v.Keys()
		parts := make([]string, 0, renderMapLimit+1)
		for i, key := range keys {
			if i >= renderMapLimit {
				parts = append(parts, "...")
				break
			}
			attr, _ := v.Attr(key)
			parts = append(parts, key+": "+attr.render(depth-1))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case TagObject:
		// Prefer a payload attribute when the instance looks node-like.
		if attr, _, ok := v.FirstAttr(valueAttrs...); ok && !attr.IsComposite() {
			return attr.render(0)
		}
		if name := constructorName(v.obj); name != "" {
			return "<" + name + ">"
		}
		return "<object>"
	}
	return ""
}

// valueAttrs are the conventional payload attribute names of node objects.
var valueAttrs = []string{"val", "value", "data"}

// safeGet reads a property, swallowing guest getter exceptions.
func safeGet(obj *goja.Object, name string) (v goja.Value, ok bool) {
	defer func() {
		if recover() != nil {
			v, ok = nil, false
		}
	}()
	v = obj.Get(name)
	if v == nil || goja.IsUndefined(v) {
		return nil, false
	}
	return v, true
}

// safeKeys lists own enumerable keys, swallowing proxy traps.
func safeKeys(obj *goja.Object) (keys []string) {
	defer func() {
		if recover() != nil {
			keys = nil
		}
	}()
	return obj.Keys()
}

// safeString stringifies a value, swallowing guest toString exceptions.
func safeString(v goja.Value) (s string) {
	defer func() {
		if recover() != nil {
			s = "<unprintable>"
		}
	}()
	return v.String()
}

func className(obj *goja.Object) (name string) {
	defer func() {
		if recover() != nil {
			name = ""
		}
	}()
	return obj.ClassName()
}

// constructorName returns the guest constructor name, "" when unknown.
func constructorName(obj *goja.Object) (name string) {
	defer func() {
		if recover() != nil {
			name = ""
		}
	}()
	ctor := obj.Get("constructor")
	if ctor == nil {
		return ""
	}
	ctorObj, ok := ctor.(*goja.Object)
	if !ok {
		return ""
	}
	n := ctorObj.Get("name")
	if n == nil {
		return ""
	}
	return n.String()
}
