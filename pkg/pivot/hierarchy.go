package pivot

import (
	"cmp"
	"slices"
	"strings"
)

// BuildForest rebuilds a hierarchy from a flat node list.
//
// Linking is order-independent: a child may appear before its parent. Nodes
// whose parent does not resolve become roots, as do nodes caught in a parent
// cycle (the earliest member of the cycle in input order is promoted).
// Records without a key are dropped and duplicate keys keep the first
// occurrence. Each of these cases is recorded in [Forest.Diagnostics].
//
// Every sibling list, and the roots, are stably sorted with grand-total
// nodes last and otherwise by Order.
//
// BuildForest never returns nil; empty input yields an empty forest.
func BuildForest(raw []RawNode) *Forest {
	f := &Forest{Nodes: make(map[string]*Node, len(raw))}

	nodes := make([]*Node, 0, len(raw))
	index := make(map[*Node]int, len(raw))
	for i, r := range raw {
		key := strings.TrimSpace(r.Key)
		if key == "" {
			f.Diagnostics = append(f.Diagnostics, Diagnostic{Kind: DiagnosticDropped, Index: i})
			continue
		}
		if _, dup := f.Nodes[key]; dup {
			f.Diagnostics = append(f.Diagnostics, Diagnostic{Kind: DiagnosticDuplicate, Index: i, Key: key})
			continue
		}
		n := newNode(r, key)
		f.Nodes[key] = n
		index[n] = i
		nodes = append(nodes, n)
	}

	promoted := breakCycles(f, nodes, index)

	for _, n := range nodes {
		if promoted[n] {
			f.Roots = append(f.Roots, n)
			continue
		}
		p := parentOf(f, n)
		if p == nil {
			switch {
			case n.ParentKey == n.Key:
				f.Diagnostics = append(f.Diagnostics, Diagnostic{
					Kind: DiagnosticCycle, Index: index[n], Key: n.Key, ParentKey: n.ParentKey,
				})
			case n.ParentKey != "":
				f.Diagnostics = append(f.Diagnostics, Diagnostic{
					Kind: DiagnosticOrphan, Index: index[n], Key: n.Key, ParentKey: n.ParentKey,
				})
			}
			f.Roots = append(f.Roots, n)
			continue
		}
		p.Children = append(p.Children, n)
	}

	sortSiblings(f.Roots)
	return f
}

// parentOf resolves n's parent. A node naming itself is a root.
func parentOf(f *Forest, n *Node) *Node {
	if n.ParentKey == "" || n.ParentKey == n.Key {
		return nil
	}
	return f.Nodes[n.ParentKey]
}

// breakCycles finds parent chains that loop and returns the nodes to promote
// to roots, one per cycle.
func breakCycles(f *Forest, nodes []*Node, index map[*Node]int) map[*Node]bool {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[*Node]int, len(nodes))
	promoted := make(map[*Node]bool)

	for _, start := range nodes {
		var path []*Node
		cur := start
		for cur != nil && state[cur] == unvisited {
			state[cur] = visiting
			path = append(path, cur)
			if promoted[cur] {
				break
			}
			cur = parentOf(f, cur)
		}
		if cur != nil && state[cur] == visiting && !promoted[cur] {
			at := slices.Index(path, cur)
			cycle := path[at:]
			victim := slices.MinFunc(cycle, func(a, b *Node) int { return cmp.Compare(index[a], index[b]) })
			promoted[victim] = true
			f.Diagnostics = append(f.Diagnostics, Diagnostic{
				Kind: DiagnosticCycle, Index: index[victim], Key: victim.Key, ParentKey: victim.ParentKey,
			})
		}
		for _, n := range path {
			state[n] = done
		}
	}
	return promoted
}

// sortSiblings orders nodes grand totals last, then by Order, recursively.
func sortSiblings(nodes []*Node) {
	slices.SortStableFunc(nodes, compareSiblings)
	for _, n := range nodes {
		if len(n.Children) > 0 {
			sortSiblings(n.Children)
		}
	}
}

func compareSiblings(a, b *Node) int {
	if a.GrandTotal != b.GrandTotal {
		if a.GrandTotal {
			return 1
		}
		return -1
	}
	return cmp.Compare(a.Order, b.Order)
}
