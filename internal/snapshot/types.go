package snapshot

// StructureKind identifies the inferred shape of a guest data structure.
type StructureKind string

const (
	KindArray      StructureKind = "array"
	KindLinkedList StructureKind = "linked-list"
	KindTree       StructureKind = "tree"
	KindHeap       StructureKind = "heap"
	KindGraph      StructureKind = "graph"
)

// Node is one rendered node of a structural description.
type Node struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// Pointer is a next-pointer between two linked-list nodes.
type Pointer struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Edge is a labeled edge between two nodes.
type Edge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}

// Element is one rendered slot of an array structure.
type Element struct {
	Index int    `json:"index"`
	Value string `json:"value"`
}

// Structure is the kind-specific structural description. Exactly one field
// group is populated, keyed by StructureSnapshot.Kind: array uses
// Name/Elements/Is2D/Rows, linked-list uses Nodes/NextPointers, tree and
// graph use Nodes/Edges (tree additionally RootID), heap uses
// Nodes/Edges/RootID plus Elements for the backing array view.
type Structure struct {
	Name         string     `json:"name,omitempty"`
	Elements     []Element  `json:"elements,omitempty"`
	Is2D         bool       `json:"is_2d,omitempty"`
	Rows         [][]string `json:"rows,omitempty"`
	Nodes        []Node     `json:"nodes,omitempty"`
	NextPointers []Pointer  `json:"next_pointers,omitempty"`
	Edges        []Edge     `json:"edges,omitempty"`
	RootID       string     `json:"root_id,omitempty"`
}

// Markers are naming-convention annotations detected alongside the
// structure: pointer variables, visited-order containers and cycle flags.
type Markers struct {
	Pointers      map[string]string   `json:"pointers,omitempty"`
	Order         map[string][]string `json:"order,omitempty"`
	CycleVars     map[string]string   `json:"cycle_vars,omitempty"`
	CycleDetected bool                `json:"cycle_detected,omitempty"`
}

// StructureSnapshot is a bounded, typed description of a live guest data
// structure. Node count never exceeds the serializer cap; exceeding it sets
// Truncated instead of erroring, bounding payload size regardless of guest
// topology, including cyclic ones.
type StructureSnapshot struct {
	Kind       StructureKind      `json:"structure_kind"`
	Structure  Structure          `json:"structure"`
	Markers    Markers            `json:"markers"`
	Truncated  bool               `json:"truncated"`
	Invariants *InvariantSnapshot `json:"invariants,omitempty"`
}

// InvariantKind classifies an instance into one of the canonical
// implementations recognized by the extractor.
type InvariantKind string

const (
	InvariantLinkedList InvariantKind = "linked-list"
	InvariantArrayList  InvariantKind = "array-list"
	InvariantRingBuffer InvariantKind = "ring-buffer"
)

// InvariantSnapshot is a kind-specific, best-effort consistency record.
// Absent fields mean "not applicable", never an error.
type InvariantSnapshot struct {
	Kind InvariantKind `json:"kind"`

	// Linked list
	HasHead        *bool `json:"has_head,omitempty"`
	HasTail        *bool `json:"has_tail,omitempty"`
	ReachableCount *int  `json:"reachable_count,omitempty"`
	CycleDetected  *bool `json:"cycle_detected,omitempty"`

	// Linked list and array list
	StoredSize  *int  `json:"stored_size,omitempty"`
	SizeMatches *bool `json:"size_matches,omitempty"`

	// Array list
	Capacity      *int     `json:"capacity,omitempty"`
	BufferPreview []string `json:"buffer_preview,omitempty"`

	// Ring buffer
	HeadIndexInBounds *bool `json:"head_index_in_bounds,omitempty"`
	SizeInBounds      *bool `json:"size_in_bounds,omitempty"`
}

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }
