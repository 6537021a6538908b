package snapshot

import (
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eval runs a script and returns the resulting value.
func eval(t *testing.T, src string) goja.Value {
	t.Helper()
	vm := goja.New()
	v, err := vm.RunString(src)
	require.NoError(t, err)
	return v
}

// evalBindings runs a script and returns the named globals as bindings.
func evalBindings(t *testing.T, src string, names ...string) []Binding {
	t.Helper()
	vm := goja.New()
	_, err := vm.RunString(src)
	require.NoError(t, err)

	bindings := make([]Binding, 0, len(names))
	for _, name := range names {
		bindings = append(bindings, Binding{Name: name, Value: vm.GlobalObject().Get(name)})
	}
	return bindings
}

const listNodeDef = `
function ListNode(val) { this.val = val; this.next = null; }
`

func TestSnapshotLinkedList(t *testing.T) {
	bindings := evalBindings(t, listNodeDef+`
		var head = new ListNode(1);
		head.next = new ListNode(2);
		head.next.next = new ListNode(3);
	`, "head")

	s := NewSerializer(0)
	snap := s.Snapshot(bindings, nil)

	require.NotNil(t, snap)
	assert.Equal(t, KindLinkedList, snap.Kind)
	require.Len(t, snap.Structure.Nodes, 3)
	assert.Equal(t, "1", snap.Structure.Nodes[0].Value)
	assert.Equal(t, "3", snap.Structure.Nodes[2].Value)
	require.Len(t, snap.Structure.NextPointers, 2)
	assert.Equal(t, "n0", snap.Structure.NextPointers[0].From)
	assert.Equal(t, "n1", snap.Structure.NextPointers[0].To)
	assert.False(t, snap.Truncated)
}

func TestSnapshotCyclicListTerminates(t *testing.T) {
	bindings := evalBindings(t, listNodeDef+`
		var head = new ListNode(1);
		var b = new ListNode(2);
		var c = new ListNode(3);
		head.next = b; b.next = c; c.next = b;
	`, "head")

	s := NewSerializer(0)
	snap := s.Snapshot(bindings, nil)

	require.NotNil(t, snap)
	assert.Equal(t, KindLinkedList, snap.Kind)
	// Three distinct nodes, with the cycle closed by an extra pointer.
	assert.Len(t, snap.Structure.Nodes, 3)
	require.Len(t, snap.Structure.NextPointers, 3)
	last := snap.Structure.NextPointers[2]
	assert.Equal(t, "n2", last.From)
	assert.Equal(t, "n1", last.To)
}

func TestSnapshotNodeCap(t *testing.T) {
	bindings := evalBindings(t, listNodeDef+`
		var head = new ListNode(0);
		var cur = head;
		for (var i = 1; i < 80; i++) { cur.next = new ListNode(i); cur = cur.next; }
	`, "head")

	s := NewSerializer(50)
	snap := s.Snapshot(bindings, nil)

	require.NotNil(t, snap)
	assert.Len(t, snap.Structure.Nodes, 50)
	assert.True(t, snap.Truncated)
}

func TestSnapshotTree(t *testing.T) {
	bindings := evalBindings(t, `
		function TreeNode(val) { this.val = val; this.left = null; this.right = null; }
		var root = new TreeNode(10);
		root.left = new TreeNode(5);
		root.right = new TreeNode(15);
		root.left.left = new TreeNode(2);
	`, "root")

	s := NewSerializer(0)
	snap := s.Snapshot(bindings, nil)

	require.NotNil(t, snap)
	assert.Equal(t, KindTree, snap.Kind)
	assert.Len(t, snap.Structure.Nodes, 4)
	assert.Equal(t, "n0", snap.Structure.RootID)

	labels := map[string]int{}
	for _, e := range snap.Structure.Edges {
		labels[e.Label]++
	}
	assert.Equal(t, 2, labels["L"])
	assert.Equal(t, 1, labels["R"])
}

func TestSnapshotTrie(t *testing.T) {
	bindings := evalBindings(t, `
		function TrieNode() { this.children = {}; this.isEnd = false; }
		var root = new TrieNode();
		root.children["c"] = new TrieNode();
		root.children["c"].children["a"] = new TrieNode();
		root.children["c"].children["a"].isEnd = true;
	`, "root")

	s := NewSerializer(0)
	snap := s.Snapshot(bindings, nil)

	require.NotNil(t, snap)
	// Tries render as trees with keyed edges.
	assert.Equal(t, KindTree, snap.Kind)
	require.Len(t, snap.Structure.Nodes, 3)
	assert.Equal(t, "a*", snap.Structure.Nodes[2].Value)
	require.Len(t, snap.Structure.Edges, 2)
	assert.Equal(t, "c", snap.Structure.Edges[0].Label)
}

func TestSnapshotGraph(t *testing.T) {
	bindings := evalBindings(t, `
		var graph = {"a": ["b", "c"], "b": ["c"], "c": []};
	`, "graph")

	s := NewSerializer(0)
	snap := s.Snapshot(bindings, nil)

	require.NotNil(t, snap)
	assert.Equal(t, KindGraph, snap.Kind)
	assert.Len(t, snap.Structure.Nodes, 3)
	assert.Len(t, snap.Structure.Edges, 3)
	assert.Equal(t, "a", snap.Structure.Edges[0].From)
	assert.Equal(t, "b", snap.Structure.Edges[0].To)
}

func TestSnapshotHeapByName(t *testing.T) {
	bindings := evalBindings(t, `var minHeap = [1, 3, 2, 7, 4];`, "minHeap")

	s := NewSerializer(0)
	snap := s.Snapshot(bindings, nil)

	require.NotNil(t, snap)
	assert.Equal(t, KindHeap, snap.Kind)
	assert.Len(t, snap.Structure.Nodes, 5)
	assert.Equal(t, "n0", snap.Structure.RootID)
	assert.Len(t, snap.Structure.Elements, 5)
	// Implicit children of n0 are n1 and n2.
	assert.Equal(t, Edge{From: "n0", To: "n1"}, snap.Structure.Edges[0])
	assert.Equal(t, Edge{From: "n0", To: "n2"}, snap.Structure.Edges[1])
}

func TestSnapshotArray(t *testing.T) {
	bindings := evalBindings(t, `var nums = [4, 8, 15];`, "nums")

	s := NewSerializer(0)
	snap := s.Snapshot(bindings, nil)

	require.NotNil(t, snap)
	assert.Equal(t, KindArray, snap.Kind)
	assert.Equal(t, "nums", snap.Structure.Name)
	require.Len(t, snap.Structure.Elements, 3)
	assert.Equal(t, Element{Index: 1, Value: "8"}, snap.Structure.Elements[1])
	assert.False(t, snap.Structure.Is2D)
}

func TestSnapshotMatrix(t *testing.T) {
	bindings := evalBindings(t, `var grid = [[1, 2], [3, 4]];`, "grid")

	s := NewSerializer(0)
	snap := s.Snapshot(bindings, nil)

	require.NotNil(t, snap)
	assert.Equal(t, KindArray, snap.Kind)
	assert.True(t, snap.Structure.Is2D)
	require.Len(t, snap.Structure.Rows, 2)
	assert.Equal(t, []string{"3", "4"}, snap.Structure.Rows[1])
}

func TestSnapshotDict(t *testing.T) {
	bindings := evalBindings(t, `var counts = {x: 1, y: 2};`, "counts")

	s := NewSerializer(0)
	snap := s.Snapshot(bindings, nil)

	require.NotNil(t, snap)
	assert.Equal(t, KindTree, snap.Kind)
	require.Len(t, snap.Structure.Nodes, 1)
	assert.Equal(t, snap.Structure.Nodes[0].ID, snap.Structure.RootID)
}

func TestSnapshotPriorityOrder(t *testing.T) {
	// A list node outranks arrays and dictionaries bound alongside it.
	bindings := evalBindings(t, listNodeDef+`
		var nums = [1, 2, 3];
		var lookup = {a: 1};
		var head = new ListNode(9);
	`, "nums", "lookup", "head")

	s := NewSerializer(0)
	snap := s.Snapshot(bindings, nil)

	require.NotNil(t, snap)
	assert.Equal(t, KindLinkedList, snap.Kind)
}

func TestSnapshotNestedStructure(t *testing.T) {
	// The structure hangs one attribute deep off a wrapper instance.
	bindings := evalBindings(t, listNodeDef+`
		function LinkedList() { this.head = new ListNode(7); this.size = 1; }
		var list = new LinkedList();
	`, "list")

	s := NewSerializer(0)
	snap := s.Snapshot(bindings, nil)

	require.NotNil(t, snap)
	assert.Equal(t, KindLinkedList, snap.Kind)
	require.Len(t, snap.Structure.Nodes, 1)
	assert.Equal(t, "7", snap.Structure.Nodes[0].Value)
}

func TestSnapshotMarkerNamesSkipped(t *testing.T) {
	// visited is an annotation, not a structure candidate.
	bindings := evalBindings(t, `
		var visited = ["a", "b"];
	`, "visited")

	s := NewSerializer(0)
	snap := s.Snapshot(bindings, nil)
	assert.Nil(t, snap)
}

func TestSnapshotNothingClassifiable(t *testing.T) {
	bindings := evalBindings(t, `
		var n = 42;
		var s = "hello";
		var f = function() {};
	`, "n", "s", "f")

	s := NewSerializer(0)
	snap := s.Snapshot(bindings, nil)
	assert.Nil(t, snap)
}

func TestSnapshotLastInstanceFirst(t *testing.T) {
	vm := goja.New()
	_, err := vm.RunString(listNodeDef + `
		var nums = [1, 2];
		var inst = new ListNode(5);
	`)
	require.NoError(t, err)

	inst := vm.GlobalObject().Get("inst").(*goja.Object)
	bindings := []Binding{{Name: "nums", Value: vm.GlobalObject().Get("nums")}}

	s := NewSerializer(0)
	snap := s.Snapshot(bindings, inst)

	require.NotNil(t, snap)
	assert.Equal(t, KindLinkedList, snap.Kind)
}

func TestSnapshotThrowingGetter(t *testing.T) {
	bindings := evalBindings(t, `
		var trap = {};
		Object.defineProperty(trap, "next", { get: function() { throw new Error("boom"); }, enumerable: true });
		var nums = [1, 2];
	`, "trap", "nums")

	s := NewSerializer(0)
	snap := s.Snapshot(bindings, nil)

	// The trap degrades silently; the array still renders.
	require.NotNil(t, snap)
	assert.Equal(t, KindArray, snap.Kind)
}
