package snapshot

import (
	"github.com/dop251/goja"
)

// maxHops bounds linked-list traversal, guaranteeing termination even over
// a corrupted or cyclic structure.
const maxHops = 200

const previewLimit = 16

// backingAttrs are the conventional names of a backing array attribute.
var backingAttrs = []string{"buffer", "data", "items", "array", "arr", "elements"}

// sizeAttrs are the conventional names of a stored element counter.
var sizeAttrs = []string{"size", "length", "count", "n"}

// ExtractInvariants classifies an instance as one of the canonical
// implementations (linked list, growable array list, ring-buffer queue) and
// extracts structural invariants. Unclassifiable instances yield nil: a
// valid, non-error outcome. The routine never fails on adversarial content.
func ExtractInvariants(obj *goja.Object) (inv *InvariantSnapshot) {
	defer func() {
		if recover() != nil {
			inv = nil
		}
	}()

	if obj == nil {
		return nil
	}
	v := Inspect(obj)
	if !v.IsComposite() {
		return nil
	}

	backing, _, hasBacking := v.FirstAttr(backingAttrs...)
	if hasBacking && backing.Tag != TagSequence {
		hasBacking = false
	}

	headIdx, hasHeadIdx := integerAttr(v, "head", "front")

	switch {
	case !hasBacking && v.HasAttr("head"):
		return linkedListInvariants(v)
	case hasBacking && hasHeadIdx:
		return ringBufferInvariants(v, backing, headIdx)
	case hasBacking:
		if size, ok := integerAttr(v, sizeAttrs...); ok {
			return arrayListInvariants(v, backing, size)
		}
	}
	return nil
}

// integerAttr returns the first attribute among names holding an integer.
func integerAttr(v Value, names ...string) (int, bool) {
	for _, name := range names {
		if attr, ok := v.Attr(name); ok {
			if n, isInt := attr.Int(); isInt {
				return int(n), true
			}
		}
	}
	return 0, false
}

func linkedListInvariants(v Value) *InvariantSnapshot {
	inv := &InvariantSnapshot{Kind: InvariantLinkedList}

	head, _ := v.Attr("head")
	inv.HasHead = boolPtr(!head.IsNull())
	if tail, ok := v.Attr("tail"); ok {
		inv.HasTail = boolPtr(!tail.IsNull())
	}

	visited := make(map[*goja.Object]bool)
	count := 0
	cycle := false
	cur := head
	for hops := 0; hops < maxHops && !cur.IsNull(); hops++ {
		obj := cur.Identity()
		if obj == nil {
			break
		}
		if visited[obj] {
			cycle = true
			break
		}
		visited[obj] = true
		count++
		next, ok := cur.Attr("next")
		if !ok {
			break
		}
		cur = next
	}

	inv.ReachableCount = intPtr(count)
	inv.CycleDetected = boolPtr(cycle)

	if stored, ok := integerAttr(v, sizeAttrs...); ok {
		inv.StoredSize = intPtr(stored)
		if !cycle {
			inv.SizeMatches = boolPtr(stored == count)
		}
	}
	return inv
}

func ringBufferInvariants(v Value, backing Value, headIdx int) *InvariantSnapshot {
	inv := &InvariantSnapshot{Kind: InvariantRingBuffer}

	capacity := backing.Len()
	inv.Capacity = intPtr(capacity)
	inv.HeadIndexInBounds = boolPtr(headIdx >= 0 && (capacity == 0 && headIdx == 0 || headIdx < capacity))

	if size, ok := integerAttr(v, sizeAttrs...); ok {
		inv.StoredSize = intPtr(size)
		inv.SizeInBounds = boolPtr(size >= 0 && size <= capacity)
	}
	return inv
}

func arrayListInvariants(v Value, backing Value, size int) *InvariantSnapshot {
	inv := &InvariantSnapshot{Kind: InvariantArrayList}

	capacity := backing.Len()
	inv.Capacity = intPtr(capacity)
	inv.StoredSize = intPtr(size)
	inv.SizeInBounds = boolPtr(size >= 0 && size <= capacity)

	limit := capacity
	if limit > previewLimit {
		limit = previewLimit
	}
	preview := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		preview = append(preview, backing.Index(i).Render())
	}
	inv.BufferPreview = preview
	return inv
}
