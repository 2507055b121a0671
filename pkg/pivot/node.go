package pivot

import (
	"fmt"
	"slices"
	"strings"
)

// ValueFieldTag marks a column label that identifies a value-field slot
// rather than a grouping dimension.
const ValueFieldTag = "__value__"

// RawLabel is one (dimension, value) pair as sent by the backend.
type RawLabel struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// RawNode is a hierarchy node as sent by the backend. Row and column
// hierarchies share this shape; Column is only meaningful for column leaves.
type RawNode struct {
	Key        string         `json:"key"`
	ParentKey  string         `json:"parent_key,omitempty"`
	Level      int            `json:"level"`
	Order      float64        `json:"order"`
	Labels     []RawLabel     `json:"labels,omitempty"`
	Values     map[string]any `json:"values,omitempty"`
	Column     string         `json:"column,omitempty"`
	GrandTotal *bool          `json:"grand_total,omitempty"`
}

// Label is a parsed dimension label.
type Label struct {
	Field string // empty for unnamed discriminators
	Value any
	Text  string // display form of Value
}

// Node is one group or leaf of a drill-down dimension.
//
// A node owns its Children. The parent is referenced by ParentKey only;
// look it up in [Forest.Nodes] when needed.
type Node struct {
	Key        string
	ParentKey  string
	Level      int
	Order      float64
	Labels     []Label // accumulated from the root down to this node
	Values     map[string]any
	Column     string
	GrandTotal bool
	Children   []*Node
}

func newNode(r RawNode, key string) *Node {
	n := &Node{
		Key:        key,
		ParentKey:  strings.TrimSpace(r.ParentKey),
		Level:      max(r.Level, 0),
		Order:      r.Order,
		Values:     r.Values,
		Column:     r.Column,
		GrandTotal: isGrandTotalRaw(r),
	}
	n.Labels = make([]Label, 0, len(r.Labels))
	for _, l := range r.Labels {
		n.Labels = append(n.Labels, Label{
			Field: strings.TrimSpace(l.Field),
			Value: l.Value,
			Text:  valueText(l.Value),
		})
	}
	return n
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Terminal returns the node's own label, the last of its accumulated labels.
func (n *Node) Terminal() (Label, bool) {
	if len(n.Labels) == 0 {
		return Label{}, false
	}
	return n.Labels[len(n.Labels)-1], true
}

// Caption is the display text of the node's terminal label, falling back to
// the column name and finally the key.
func (n *Node) Caption() string {
	if l, ok := n.Terminal(); ok && l.Text != "" {
		return l.Text
	}
	if n.Column != "" {
		return n.Column
	}
	return n.Key
}

// LabelFor returns the label bound to field, matched exactly first and then
// by canonical key. When a field appears more than once the deepest wins.
func (n *Node) LabelFor(field string) (Label, bool) {
	for i := len(n.Labels) - 1; i >= 0; i-- {
		if n.Labels[i].Field == field {
			return n.Labels[i], true
		}
	}
	ck := CanonicalKey(field)
	if ck == "" {
		return Label{}, false
	}
	for i := len(n.Labels) - 1; i >= 0; i-- {
		if n.Labels[i].Field != "" && CanonicalKey(n.Labels[i].Field) == ck {
			return n.Labels[i], true
		}
	}
	return Label{}, false
}

// Value returns the aggregate stored for column, matched exactly first and
// then by canonical key.
func (n *Node) Value(column string) (any, bool) {
	return lookup(n.Values, column)
}

// Walk visits n and its descendants depth-first in pre-order. Returning
// false from fn skips the node's children.
func (n *Node) Walk(fn func(n *Node, depth int) bool) {
	n.walk(0, fn)
}

func (n *Node) walk(depth int, fn func(*Node, int) bool) {
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		c.walk(depth+1, fn)
	}
}

// DiagnosticKind classifies a problem found while building a forest.
type DiagnosticKind string

const (
	// DiagnosticOrphan: parent_key did not resolve; the node became a root.
	DiagnosticOrphan DiagnosticKind = "orphan"
	// DiagnosticDropped: the record had no usable key and was skipped.
	DiagnosticDropped DiagnosticKind = "dropped"
	// DiagnosticDuplicate: a later record reused a key; the first one was kept.
	DiagnosticDuplicate DiagnosticKind = "duplicate"
	// DiagnosticCycle: parent links formed a cycle; the node became a root.
	DiagnosticCycle DiagnosticKind = "cycle"
)

// Diagnostic reports one data-integrity issue absorbed by [BuildForest].
type Diagnostic struct {
	Kind      DiagnosticKind `json:"kind"`
	Index     int            `json:"index"` // position in the input list
	Key       string         `json:"key,omitempty"`
	ParentKey string         `json:"parent_key,omitempty"`
}

func (d Diagnostic) String() string {
	switch d.Kind {
	case DiagnosticOrphan:
		return fmt.Sprintf("node %q (#%d): parent %q not found, treated as root", d.Key, d.Index, d.ParentKey)
	case DiagnosticDropped:
		return fmt.Sprintf("record #%d: empty key, dropped", d.Index)
	case DiagnosticDuplicate:
		return fmt.Sprintf("record #%d: duplicate key %q, ignored", d.Index, d.Key)
	case DiagnosticCycle:
		return fmt.Sprintf("node %q (#%d): parent chain through %q is cyclic, treated as root", d.Key, d.Index, d.ParentKey)
	default:
		return fmt.Sprintf("%s: %q (#%d)", d.Kind, d.Key, d.Index)
	}
}

// Forest is a built hierarchy: sorted roots plus a key index of every node.
type Forest struct {
	Roots       []*Node
	Nodes       map[string]*Node
	Diagnostics []Diagnostic
}

// Empty reports whether the forest has no roots. Callers fall back to flat
// rendering in that case.
func (f *Forest) Empty() bool { return f == nil || len(f.Roots) == 0 }

// Len returns the number of nodes.
func (f *Forest) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Nodes)
}

// Depth returns the number of levels of the deepest tree.
func (f *Forest) Depth() int {
	depth := 0
	f.Walk(func(_ *Node, d int) bool {
		depth = max(depth, d+1)
		return true
	})
	return depth
}

// Walk visits every tree in root order.
func (f *Forest) Walk(fn func(n *Node, depth int) bool) {
	if f == nil {
		return
	}
	for _, r := range f.Roots {
		r.Walk(fn)
	}
}

// Leaves returns all leaf nodes in display order.
func (f *Forest) Leaves() []*Node {
	var leaves []*Node
	f.Walk(func(n *Node, _ int) bool {
		if n.IsLeaf() {
			leaves = append(leaves, n)
		}
		return true
	})
	return leaves
}

// Keys returns the node keys in display order.
func (f *Forest) Keys() []string {
	keys := make([]string, 0, f.Len())
	f.Walk(func(n *Node, _ int) bool {
		keys = append(keys, n.Key)
		return true
	})
	return keys
}

// Record is one flat pivot row: column name to value. Lookups are
// case-insensitive through [Record.Get].
type Record map[string]any

// Get returns the value for column, matched exactly first and then by
// canonical key.
func (r Record) Get(column string) (any, bool) {
	return lookup(r, column)
}

// Keys returns the record's column names sorted.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func lookup(m map[string]any, key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	if v, ok := m[key]; ok {
		return v, true
	}
	ck := CanonicalKey(key)
	if ck == "" {
		return nil, false
	}
	// Map order is random; pick the lexically smallest match for stability.
	var (
		best  string
		found bool
	)
	for k := range m {
		if CanonicalKey(k) == ck && (!found || k < best) {
			best, found = k, true
		}
	}
	if !found {
		return nil, false
	}
	return m[best], true
}
