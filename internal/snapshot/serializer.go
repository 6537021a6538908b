package snapshot

import (
	"strconv"
	"strings"

	"github.com/dop251/goja"
	"github.com/samber/lo"
)

// DefaultNodeCap bounds the number of nodes in any emitted structure.
const DefaultNodeCap = 50

// Binding is one name/value pair from the post-execution guest namespace,
// in namespace order.
type Binding struct {
	Name  string
	Value goja.Value
}

// Serializer infers the most likely data-structure shape among array,
// linked list, tree/heap, trie and graph from namespace bindings and emits
// a bounded structural description. It must never fail regardless of guest
// content: any internal panic degrades to a nil snapshot.
type Serializer struct {
	nodeCap int
}

// NewSerializer creates a serializer with the given node cap.
func NewSerializer(nodeCap int) *Serializer {
	if nodeCap <= 0 {
		nodeCap = DefaultNodeCap
	}
	return &Serializer{nodeCap: nodeCap}
}

// shape orders classifications by priority; lower wins.
type shape int

const (
	shapeNone shape = iota
	shapeLinkedList
	shapeTree
	shapeTrie
	shapeGraph
	shapeHeap
	shapeArray
	shapeDict
)

// Snapshot classifies the bindings (the designated last tested instance
// first, when present) and renders the best candidate. Returns nil when
// nothing classifiable is bound.
func (s *Serializer) Snapshot(bindings []Binding, last *goja.Object) (snap *StructureSnapshot) {
	defer func() {
		if recover() != nil {
			snap = nil
		}
	}()

	candidates := bindings
	if last != nil {
		candidates = append([]Binding{{Name: "", Value: last}}, bindings...)
	}

	bestShape := shapeNone
	var bestName string
	var bestValue Value

	consider := func(name string, v Value) {
		sh := classify(name, v)
		if sh == shapeNone {
			return
		}
		if bestShape == shapeNone || sh < bestShape {
			bestShape, bestName, bestValue = sh, name, v
		}
	}

	for _, b := range candidates {
		if isMarkerName(b.Name) {
			continue
		}
		v := Inspect(b.Value)
		consider(b.Name, v)

		// One level of attribute nesting on composite instances.
		if v.Tag == TagObject {
			for i, key := range v.Keys() {
				if i >= 32 {
					break
				}
				if attr, ok := v.Attr(key); ok {
					consider(key, attr)
				}
			}
		}
	}

	if bestShape == shapeNone {
		return nil
	}

	reg := newRegistry(s.nodeCap)
	var structure Structure
	var kind StructureKind

	switch bestShape {
	case shapeLinkedList:
		kind = KindLinkedList
		structure = buildLinkedList(bestValue, reg)
	case shapeTree:
		kind = KindTree
		structure = buildTree(bestValue, reg)
	case shapeTrie:
		kind = KindTree
		structure = buildTrie(bestValue, reg)
	case shapeGraph:
		kind = KindGraph
		structure = buildGraph(bestValue, reg)
	case shapeHeap:
		kind = KindHeap
		structure = buildHeap(bestName, bestValue, reg)
	case shapeArray:
		kind = KindArray
		structure = buildArray(bestName, bestValue, reg)
	case shapeDict:
		kind = KindTree
		structure = buildDict(bestValue, reg)
	}

	return &StructureSnapshot{
		Kind:      kind,
		Structure: structure,
		Markers:   DetectMarkers(bindings),
		Truncated: reg.truncated,
	}
}

// classify applies the shape tests in priority order; the first match wins.
func classify(name string, v Value) shape {
	if v.IsComposite() && v.Tag != TagSequence {
		if v.HasAttr("next") {
			if _, _, ok := v.FirstAttr(valueAttrs...); ok {
				return shapeLinkedList
			}
		}
		if v.HasAttr("left") || v.HasAttr("right") {
			return shapeTree
		}
		if children, ok := v.Attr("children"); ok && children.Tag == TagMapping {
			if _, _, ok := v.FirstAttr(terminalAttrs...); ok {
				return shapeTrie
			}
		}
	}
	if v.Tag == TagMapping {
		keys := v.Keys()
		if len(keys) > 0 && lo.EveryBy(keys, func(key string) bool {
			attr, ok := v.Attr(key)
			return ok && attr.Tag == TagSequence
		}) {
			return shapeGraph
		}
	}
	if v.Tag == TagSequence {
		if strings.Contains(strings.ToLower(name), "heap") {
			return shapeHeap
		}
		return shapeArray
	}
	if v.Tag == TagMapping {
		return shapeDict
	}
	return shapeNone
}

// terminalAttrs are the conventional end-of-word flags of trie nodes.
var terminalAttrs = []string{"isEnd", "is_end", "isWord", "terminal", "end"}

// registry deduplicates nodes by object identity and caps additions.
type registry struct {
	cap       int
	ids       map[*goja.Object]string
	nodes     []Node
	truncated bool
}

func newRegistry(cap int) *registry {
	return &registry{cap: cap, ids: make(map[*goja.Object]string)}
}

func (r *registry) lookup(obj *goja.Object) (string, bool) {
	id, ok := r.ids[obj]
	return id, ok
}

// add registers an object-backed node. Returns false once the cap is hit,
// setting truncated instead of erroring.
func (r *registry) add(obj *goja.Object, rendered string) (string, bool) {
	if len(r.nodes) >= r.cap {
		r.truncated = true
		return "", false
	}
	id := "n" + strconv.Itoa(len(r.nodes))
	r.ids[obj] = id
	r.nodes = append(r.nodes, Node{ID: id, Value: rendered})
	return id, true
}

// addSynthetic registers a node keyed by a caller-chosen id rather than
// object identity (graphs keyed by names, heaps keyed by index).
func (r *registry) addSynthetic(id, rendered string) bool {
	if len(r.nodes) >= r.cap {
		r.truncated = true
		return false
	}
	r.nodes = append(r.nodes, Node{ID: id, Value: rendered})
	return true
}

// renderNodeValue renders a node's payload attribute, falling back to the
// whole value.
func renderNodeValue(v Value) string {
	if attr, _, ok := v.FirstAttr(valueAttrs...); ok {
		return attr.Render()
	}
	return v.Render()
}

func buildLinkedList(head Value, reg *registry) Structure {
	var pointers []Pointer
	var prevID string

	cur := head
	for !cur.IsNull() {
		obj := cur.Identity()
		if obj == nil {
			break
		}
		if known, ok := reg.lookup(obj); ok {
			// Revisit closes the cycle edge and stops the walk.
			pointers = append(pointers, Pointer{From: prevID, To: known})
			break
		}
		id, ok := reg.add(obj, renderNodeValue(cur))
		if !ok {
			break
		}
		if prevID != "" {
			pointers = append(pointers, Pointer{From: prevID, To: id})
		}
		prevID = id

		next, ok := cur.Attr("next")
		if !ok {
			break
		}
		cur = next
	}

	return Structure{Nodes: reg.nodes, NextPointers: pointers}
}

func buildTree(root Value, reg *registry) Structure {
	rootID, ok := reg.add(root.Identity(), renderNodeValue(root))
	if !ok {
		return Structure{}
	}

	var edges []Edge
	type item struct {
		v  Value
		id string
	}
	queue := []item{{root, rootID}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, side := range []struct{ attr, label string }{{"left", "L"}, {"right", "R"}} {
			child, ok := cur.v.Attr(side.attr)
			if !ok || !child.IsComposite() {
				continue
			}
			obj := child.Identity()
			if obj == nil {
				continue
			}
			if known, seen := reg.lookup(obj); seen {
				// Shared subtree or a corrupted cyclic link: edge only.
				edges = append(edges, Edge{From: cur.id, To: known, Label: side.label})
				continue
			}
			id, added := reg.add(obj, renderNodeValue(child))
			if !added {
				continue
			}
			edges = append(edges, Edge{From: cur.id, To: id, Label: side.label})
			queue = append(queue, item{child, id})
		}
	}

	return Structure{Nodes: reg.nodes, Edges: edges, RootID: rootID}
}

func buildTrie(root Value, reg *registry) Structure {
	rootID, ok := reg.add(root.Identity(), trieLabel("", root))
	if !ok {
		return Structure{}
	}

	var edges []Edge
	type item struct {
		v  Value
		id string
	}
	queue := []item{{root, rootID}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		children, ok := cur.v.Attr("children")
		if !ok || children.Tag != TagMapping {
			continue
		}
		for _, key := range children.Keys() {
			child, ok := children.Attr(key)
			if !ok || !child.IsComposite() {
				continue
			}
			obj := child.Identity()
			if obj == nil {
				continue
			}
			if known, seen := reg.lookup(obj); seen {
				edges = append(edges, Edge{From: cur.id, To: known, Label: key})
				continue
			}
			id, added := reg.add(obj, trieLabel(key, child))
			if !added {
				continue
			}
			edges = append(edges, Edge{From: cur.id, To: id, Label: key})
			queue = append(queue, item{child, id})
		}
	}

	return Structure{Nodes: reg.nodes, Edges: edges, RootID: rootID}
}

// trieLabel renders a trie node as its incoming key, starring terminals.
func trieLabel(key string, node Value) string {
	if key == "" {
		key = "•"
	}
	if flag, _, ok := node.FirstAttr(terminalAttrs...); ok && flag.Truthy() {
		return key + "*"
	}
	return key
}

func buildGraph(adjacency Value, reg *registry) Structure {
	var edges []Edge
	present := make(map[string]bool)

	addNode := func(name string) bool {
		if present[name] {
			return true
		}
		if !reg.addSynthetic(name, name) {
			return false
		}
		present[name] = true
		return true
	}

	for _, key := range adjacency.Keys() {
		if !addNode(key) {
			break
		}
		neighbors, ok := adjacency.Attr(key)
		if !ok || neighbors.Tag != TagSequence {
			continue
		}
		for i := 0; i < neighbors.Len(); i++ {
			to := neighbors.Index(i).Render()
			if !addNode(to) {
				break
			}
			edges = append(edges, Edge{From: key, To: to})
		}
	}

	return Structure{Nodes: reg.nodes, Edges: edges}
}

func buildHeap(name string, seq Value, reg *registry) Structure {
	n := seq.Len()
	var elements []Element
	for i := 0; i < n; i++ {
		if !reg.addSynthetic("n"+strconv.Itoa(i), seq.Index(i).Render()) {
			break
		}
		elements = append(elements, Element{Index: i, Value: seq.Index(i).Render()})
	}

	var edges []Edge
	for i := range reg.nodes {
		for _, child := range []int{2*i + 1, 2*i + 2} {
			if child < len(reg.nodes) {
				edges = append(edges, Edge{From: reg.nodes[i].ID, To: reg.nodes[child].ID})
			}
		}
	}

	structure := Structure{Name: name, Nodes: reg.nodes, Edges: edges, Elements: elements}
	if len(reg.nodes) > 0 {
		structure.RootID = reg.nodes[0].ID
	}
	return structure
}

func buildArray(name string, seq Value, reg *registry) Structure {
	n := seq.Len()
	var elements []Element
	rows2D := true

	for i := 0; i < n; i++ {
		elem := seq.Index(i)
		if elem.Tag != TagSequence {
			rows2D = false
		}
		if !reg.addSynthetic("n"+strconv.Itoa(i), elem.Render()) {
			break
		}
		elements = append(elements, Element{Index: i, Value: elem.Render()})
	}

	structure := Structure{Name: name, Elements: elements}
	if n > 0 && rows2D {
		structure.Is2D = true
		structure.Rows = make([][]string, 0, len(elements))
		for i := range elements {
			row := seq.Index(i)
			structure.Rows = append(structure.Rows, lo.Times(row.Len(), func(j int) string {
				return row.Index(j).Render()
			}))
		}
	}
	return structure
}

// buildDict renders a dictionary as one annotated node.
func buildDict(m Value, reg *registry) Structure {
	id, ok := reg.add(m.Identity(), m.Render())
	if !ok {
		return Structure{}
	}
	return Structure{Nodes: reg.nodes, RootID: id}
}
