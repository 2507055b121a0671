package pivot

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuildForestEmpty(t *testing.T) {
	for _, in := range [][]RawNode{nil, {}} {
		f := BuildForest(in)
		if f == nil {
			t.Fatal("BuildForest returned nil")
		}
		if !f.Empty() || f.Len() != 0 {
			t.Errorf("BuildForest(%v) = %d roots, %d nodes; want empty", in, len(f.Roots), f.Len())
		}
	}
}

func TestBuildForestLinksOutOfOrder(t *testing.T) {
	f := BuildForest(salesNodes())

	if got, want := f.Keys(), []string{"E", "E.NYC", "E.BOS", "W", "W.LA", "GT"}; !slices.Equal(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	if len(f.Diagnostics) != 0 {
		t.Errorf("Diagnostics = %v, want none", f.Diagnostics)
	}
	if f.Depth() != 2 {
		t.Errorf("Depth() = %d, want 2", f.Depth())
	}
	if !f.Nodes["GT"].GrandTotal {
		t.Error("GT should be detected as grand total")
	}
}

func TestBuildForestGrandTotalLast(t *testing.T) {
	tests := []struct {
		name  string
		label string
	}{
		{"title case", "Grand Total"},
		{"upper snake", "GRAND_TOTAL"},
		{"dashed", "grand-total"},
		{"spaced", "  grand   total "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := BuildForest([]RawNode{
				{Key: "gt", Order: -10, Labels: []RawLabel{lbl("Region", tt.label)}},
				{Key: "b", Order: 2, Labels: []RawLabel{lbl("Region", "B")}},
				{Key: "a", Order: 1, Labels: []RawLabel{lbl("Region", "A")}},
			})
			if got := f.Keys(); !slices.Equal(got, []string{"a", "b", "gt"}) {
				t.Errorf("Keys() = %v, want grand total last", got)
			}
		})
	}
}

func TestBuildForestGrandTotalByColumn(t *testing.T) {
	f := BuildForest([]RawNode{
		{Key: "c1", Order: 0, Column: "Grand Total"},
		{Key: "c2", Order: 1, Column: "Sales"},
	})
	if got := f.Keys(); !slices.Equal(got, []string{"c2", "c1"}) {
		t.Errorf("Keys() = %v, want column discriminator to sort last", got)
	}
}

func TestBuildForestExplicitTagWins(t *testing.T) {
	f := BuildForest([]RawNode{
		{Key: "literal", Order: 0, Labels: []RawLabel{lbl("Product", "Grand Total")}, GrandTotal: boolPtr(false)},
		{Key: "tagged", Order: 1, Labels: []RawLabel{lbl("Product", "All")}, GrandTotal: boolPtr(true)},
		{Key: "plain", Order: 2, Labels: []RawLabel{lbl("Product", "Widget")}},
	})
	if got := f.Keys(); !slices.Equal(got, []string{"literal", "plain", "tagged"}) {
		t.Errorf("Keys() = %v, want explicit tag to decide grand-total-ness", got)
	}
}

func TestBuildForestUnnamedDiscriminator(t *testing.T) {
	f := BuildForest([]RawNode{
		{Key: "gt", Labels: []RawLabel{lbl("", "Grand Total")}},
		{Key: "x", Order: 1, Labels: []RawLabel{lbl("Region", "X")}},
	})
	if !f.Nodes["gt"].GrandTotal {
		t.Error("unnamed label should still mark grand total")
	}
	if _, ok := f.Nodes["gt"].LabelFor("Region"); ok {
		t.Error("unnamed label must not bind to a row field")
	}
}

func TestBuildForestDiagnostics(t *testing.T) {
	f := BuildForest([]RawNode{
		{Key: "a"},
		{Key: "  "},
		{Key: "a", Order: 5},
		{Key: "orphan", ParentKey: "missing"},
		{Key: "self", ParentKey: "self"},
	})

	want := []Diagnostic{
		{Kind: DiagnosticDropped, Index: 1},
		{Kind: DiagnosticDuplicate, Index: 2, Key: "a"},
		{Kind: DiagnosticOrphan, Index: 3, Key: "orphan", ParentKey: "missing"},
		{Kind: DiagnosticCycle, Index: 4, Key: "self", ParentKey: "self"},
	}
	if diff := cmp.Diff(want, f.Diagnostics); diff != "" {
		t.Errorf("Diagnostics mismatch (-want +got):\n%s", diff)
	}
	if f.Nodes["a"].Order != 0 {
		t.Error("duplicate key should keep the first occurrence")
	}
	if len(f.Roots) != 3 {
		t.Errorf("len(Roots) = %d, want 3", len(f.Roots))
	}
}

func TestBuildForestBreaksCycles(t *testing.T) {
	f := BuildForest([]RawNode{
		{Key: "leaf", ParentKey: "b"},
		{Key: "a", ParentKey: "c"},
		{Key: "b", ParentKey: "a"},
		{Key: "c", ParentKey: "b"},
	})

	if len(f.Roots) != 1 || f.Roots[0].Key != "a" {
		t.Fatalf("Roots = %v, want the earliest cycle member a", rootKeys(f))
	}
	if got := f.Keys(); !slices.Equal(got, []string{"a", "b", "c", "leaf"}) && !slices.Equal(got, []string{"a", "b", "leaf", "c"}) {
		t.Errorf("Keys() = %v, want every node reachable from a", got)
	}
	if len(f.Diagnostics) != 1 || f.Diagnostics[0].Kind != DiagnosticCycle || f.Diagnostics[0].Key != "a" {
		t.Errorf("Diagnostics = %v, want one cycle diagnostic for a", f.Diagnostics)
	}
	assertForest(t, f)
}

func TestBuildForestInvariantUnderPermutation(t *testing.T) {
	base := []RawNode{
		{Key: "r1"}, {Key: "r2", Order: 1},
		{Key: "a", ParentKey: "r1"}, {Key: "b", ParentKey: "r1", Order: 1},
		{Key: "a1", ParentKey: "a"}, {Key: "a2", ParentKey: "a", Order: 1},
		{Key: "c", ParentKey: "r2"}, {Key: "c1", ParentKey: "c"},
		{Key: "x", ParentKey: "y"}, {Key: "y", ParentKey: "z"}, {Key: "z", ParentKey: "x"},
		{Key: "o", ParentKey: "nope"},
	}
	rng := rand.New(rand.NewSource(7))
	for i := range 50 {
		in := slices.Clone(base)
		rng.Shuffle(len(in), func(a, b int) { in[a], in[b] = in[b], in[a] })
		f := BuildForest(in)
		if f.Len() != len(base) {
			t.Fatalf("permutation %d: %d nodes, want %d", i, f.Len(), len(base))
		}
		assertForest(t, f)
	}
}

func TestBuildForestSortIsStable(t *testing.T) {
	f := BuildForest([]RawNode{
		{Key: "p"},
		{Key: "c3", ParentKey: "p", Order: 1},
		{Key: "c1", ParentKey: "p", Order: 0},
		{Key: "c2", ParentKey: "p", Order: 0},
	})
	var got []string
	for _, c := range f.Nodes["p"].Children {
		got = append(got, c.Key)
	}
	if want := []string{"c1", "c2", "c3"}; !slices.Equal(got, want) {
		t.Errorf("children = %v, want %v", got, want)
	}
}

// assertForest checks that every node is reachable from exactly one root
// and no node is its own descendant.
func assertForest(t *testing.T, f *Forest) {
	t.Helper()
	seen := map[string]int{}
	var visit func(n *Node, path map[string]bool)
	visit = func(n *Node, path map[string]bool) {
		if path[n.Key] {
			t.Fatalf("node %q is its own ancestor", n.Key)
		}
		seen[n.Key]++
		path[n.Key] = true
		for _, c := range n.Children {
			visit(c, path)
		}
		delete(path, n.Key)
	}
	for _, r := range f.Roots {
		visit(r, map[string]bool{})
	}
	for k := range f.Nodes {
		if seen[k] != 1 {
			t.Errorf("node %q reached %d times, want 1", k, seen[k])
		}
	}
}

func rootKeys(f *Forest) []string {
	var keys []string
	for _, r := range f.Roots {
		keys = append(keys, r.Key)
	}
	return keys
}

func TestCanonicalKey(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Grand Total", "grandtotal"},
		{"Sales ($)", "sales"},
		{"sum_of_Sales", "sumofsales"},
		{"Région", "région"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CanonicalKey(tt.in); got != tt.want {
			t.Errorf("CanonicalKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
