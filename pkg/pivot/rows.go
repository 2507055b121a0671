package pivot

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/pivotview/pkg/errors"
)

// Layout selects how the row hierarchy is projected.
type Layout string

const (
	// LayoutCompact shows one indented label column.
	LayoutCompact Layout = "compact"
	// LayoutOutline shows one column per row field, one populated per row.
	LayoutOutline Layout = "outline"
	// LayoutTabular repeats every ancestor label on every row.
	LayoutTabular Layout = "tabular"
)

// Layouts lists the layouts in cycling order.
var Layouts = []Layout{LayoutCompact, LayoutOutline, LayoutTabular}

// ParseLayout parses a layout name. Empty stays empty: no layout was chosen,
// so compact is used and the automatic switch to tabular stays available.
func ParseLayout(s string) (Layout, error) {
	switch l := Layout(strings.ToLower(strings.TrimSpace(s))); l {
	case "", LayoutCompact, LayoutOutline, LayoutTabular:
		return l, nil
	}
	return "", errors.New(errors.ErrCodeInvalidLayout, "unknown layout %q (want compact, outline or tabular)", s)
}

// Next returns the following layout in cycling order.
func (l Layout) Next() Layout {
	i := slices.Index(Layouts, l)
	return Layouts[(i+1)%len(Layouts)]
}

// Materializer returns the projection for the layout. Unknown layouts use compact.
func (l Layout) Materializer() Materializer {
	switch l {
	case LayoutOutline:
		return Outline{}
	case LayoutTabular:
		return Tabular{}
	default:
		return Compact{}
	}
}

// Subtotals is the subtotal placement policy.
type Subtotals string

const (
	SubtotalsOff    Subtotals = "off"
	SubtotalsTop    Subtotals = "top"
	SubtotalsBottom Subtotals = "bottom"
)

// ParseSubtotals parses a subtotal placement. Empty means bottom.
func ParseSubtotals(s string) (Subtotals, error) {
	switch p := Subtotals(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return SubtotalsBottom, nil
	case SubtotalsOff, SubtotalsTop, SubtotalsBottom:
		return p, nil
	}
	return "", errors.New(errors.ErrCodeInvalidMode, "unknown subtotal placement %q (want off, top or bottom)", s)
}

// Next cycles off -> top -> bottom -> off.
func (s Subtotals) Next() Subtotals {
	switch s {
	case SubtotalsOff:
		return SubtotalsTop
	case SubtotalsTop:
		return SubtotalsBottom
	default:
		return SubtotalsOff
	}
}

// KeySet is a set of node keys, used for the collapsed set.
type KeySet map[string]struct{}

// NewKeySet returns a set holding keys.
func NewKeySet(keys ...string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has reports whether k is in the set. A nil set is empty.
func (s KeySet) Has(k string) bool {
	_, ok := s[k]
	return ok
}

// Toggle adds k when absent and removes it when present.
func (s KeySet) Toggle(k string) {
	if s.Has(k) {
		delete(s, k)
	} else {
		s[k] = struct{}{}
	}
}

// Clone returns an independent copy (never nil).
func (s KeySet) Clone() KeySet {
	c := make(KeySet, len(s))
	maps.Copy(c, s)
	return c
}

// Sorted returns the keys in lexical order.
func (s KeySet) Sorted() []string {
	return slices.Sorted(maps.Keys(s))
}

// FlatRow is one materialized row, shared by all layouts.
type FlatRow struct {
	Node   *Node  // nil for flat fallback rows
	Key    string // node key, or composite key for flat rows
	Record Record // row-field labels and value-column values
	Depth  int    // tree depth, drives indentation
	Level  int    // index of the row field this row binds

	HasChildren  bool
	Collapsed    bool
	IsTotal      bool // synthetic subtotal row
	IsGrandTotal bool
	HasValues    bool // value columns carry the node's aggregate
}

// Label returns the display label of the row's own level.
func (r FlatRow) Label(rowFields []string) string {
	if r.Level < 0 || r.Level >= len(rowFields) {
		return ""
	}
	return valueText(r.Record[rowFields[r.Level]])
}

// MaterializeInput is everything the row materializers depend on.
type MaterializeInput struct {
	Roots        []*Node
	RowFields    []string
	ValueColumns []string
	Subtotals    Subtotals
	Collapsed    KeySet
	Rows         []Record // flat source rows for the fallback
}

func (in MaterializeInput) hierarchical() bool {
	return len(in.RowFields) > 0 && len(in.Roots) > 0
}

// Materializer projects a row hierarchy into flat rows.
type Materializer interface {
	Materialize(in MaterializeInput) []FlatRow
}

// Materialize projects the hierarchy with the given layout. Grand-total rows
// always end up last. Without row fields or roots every layout renders the
// flat source rows.
func Materialize(layout Layout, in MaterializeInput) []FlatRow {
	return layout.Materializer().Materialize(in)
}

// Compact emits one row per visible node with the full label path.
type Compact struct{}

// Materialize implements Materializer.
func (Compact) Materialize(in MaterializeInput) []FlatRow {
	if !in.hierarchical() {
		return flatRows(in)
	}
	w := newWalker(in, func(i, level int) bool { return i <= level })
	for _, r := range in.Roots {
		w.nested(r, 0, w.blank())
	}
	return relocateGrandTotals(w.rows)
}

// Outline emits the same rows as Compact but keeps only the label of the
// row's own level.
type Outline struct{}

// Materialize implements Materializer.
func (Outline) Materialize(in MaterializeInput) []FlatRow {
	if !in.hierarchical() {
		return flatRows(in)
	}
	w := newWalker(in, func(i, level int) bool { return i == level })
	for _, r := range in.Roots {
		w.nested(r, 0, w.blank())
	}
	return relocateGrandTotals(w.rows)
}

// Tabular repeats ancestor labels on every row; group aggregates only
// appear as subtotal rows.
type Tabular struct{}

// Materialize implements Materializer.
func (Tabular) Materialize(in MaterializeInput) []FlatRow {
	if !in.hierarchical() {
		return flatRows(in)
	}
	w := newWalker(in, func(i, level int) bool { return i <= level })
	for _, r := range in.Roots {
		w.tabular(r, 0, w.blank())
	}
	return relocateGrandTotals(w.rows)
}

type walker struct {
	in   MaterializeInput
	show func(i, level int) bool // which row-field labels a record keeps
	rows []FlatRow
}

func newWalker(in MaterializeInput, show func(i, level int) bool) *walker {
	return &walker{in: in, show: show}
}

func (w *walker) blank() []string { return make([]string, len(w.in.RowFields)) }

// level is the row-field index a node binds, clamped to the field list.
func (w *walker) level(n *Node) int {
	return min(n.Level, len(w.in.RowFields)-1)
}

// labels merges the node's labels over the inherited ones.
func (w *walker) labels(n *Node, inherited []string) []string {
	out := slices.Clone(inherited)
	for i, f := range w.in.RowFields {
		if l, ok := n.LabelFor(f); ok {
			out[i] = l.Text
		}
	}
	if lv := w.level(n); out[lv] == "" {
		out[lv] = n.Caption()
	}
	return out
}

func (w *walker) collapsed(n *Node) bool {
	return !n.IsLeaf() && w.in.Collapsed.Has(n.Key)
}

// nested is the pre-order walk shared by Compact and Outline.
func (w *walker) nested(n *Node, depth int, inherited []string) {
	labels := w.labels(n, inherited)
	switch {
	case n.IsLeaf():
		w.emit(n, depth, labels, true, false)
	case w.collapsed(n):
		w.emit(n, depth, labels, w.in.Subtotals != SubtotalsOff, false)
	case w.in.Subtotals == SubtotalsTop:
		w.emit(n, depth, labels, true, false)
		w.children(n, depth, labels, w.nested)
	case w.in.Subtotals == SubtotalsBottom:
		w.children(n, depth, labels, w.nested)
		w.emit(n, depth, labels, true, true)
	default:
		w.emit(n, depth, labels, false, false)
		w.children(n, depth, labels, w.nested)
	}
}

// tabular interleaves subtotal rows with the leaves.
func (w *walker) tabular(n *Node, depth int, inherited []string) {
	labels := w.labels(n, inherited)
	switch {
	case n.IsLeaf():
		w.emit(n, depth, labels, true, false)
	case w.collapsed(n):
		w.emit(n, depth, labels, true, false)
	case w.in.Subtotals == SubtotalsTop:
		w.emit(n, depth, labels, true, true)
		w.children(n, depth, labels, w.tabular)
	case w.in.Subtotals == SubtotalsBottom:
		w.children(n, depth, labels, w.tabular)
		w.emit(n, depth, labels, true, true)
	default:
		w.children(n, depth, labels, w.tabular)
	}
}

func (w *walker) children(n *Node, depth int, labels []string, visit func(*Node, int, []string)) {
	for _, c := range n.Children {
		visit(c, depth+1, labels)
	}
}

func (w *walker) emit(n *Node, depth int, labels []string, values, total bool) {
	level := w.level(n)
	rec := make(Record, len(w.in.RowFields)+len(w.in.ValueColumns))
	for i, f := range w.in.RowFields {
		switch {
		case !w.show(i, level):
			rec[f] = ""
		case total && i == level:
			rec[f] = totalLabel(labels[i])
		default:
			rec[f] = labels[i]
		}
	}
	for _, c := range w.in.ValueColumns {
		rec[c] = nil
		if values {
			if v, ok := n.Value(c); ok {
				rec[c] = v
			}
		}
	}
	w.rows = append(w.rows, FlatRow{
		Node:         n,
		Key:          n.Key,
		Record:       rec,
		Depth:        depth,
		Level:        level,
		HasChildren:  !n.IsLeaf(),
		Collapsed:    w.collapsed(n),
		IsTotal:      total,
		IsGrandTotal: n.GrandTotal,
		HasValues:    values,
	})
}

// totalLabel appends " Total" unless the label already ends in "total".
func totalLabel(s string) string {
	t := strings.TrimSpace(s)
	if t == "" {
		return "Total"
	}
	if strings.HasSuffix(strings.ToLower(t), "total") {
		return s
	}
	return t + " Total"
}

// flatRows renders the source rows directly.
func flatRows(in MaterializeInput) []FlatRow {
	rows := make([]FlatRow, 0, len(in.Rows))
	for i, src := range in.Rows {
		var rec Record
		if len(in.RowFields) == 0 && len(in.ValueColumns) == 0 {
			rec = maps.Clone(src)
		} else {
			rec = make(Record, len(in.RowFields)+len(in.ValueColumns))
			for _, f := range in.RowFields {
				v, _ := src.Get(f)
				rec[f] = v
			}
			for _, c := range in.ValueColumns {
				v, _ := src.Get(c)
				rec[c] = v
			}
		}
		rows = append(rows, FlatRow{
			Key:          RecordKey(src, in.RowFields, i),
			Record:       rec,
			IsGrandTotal: isGrandTotalRecord(src, in.RowFields),
			HasValues:    true,
		})
	}
	return relocateGrandTotals(rows)
}

// RecordKey is the composite canonical key of a flat row: its row-field
// values, canonicalized and joined. Rows without row fields are keyed by
// position.
func RecordKey(rec Record, rowFields []string, index int) string {
	if len(rowFields) == 0 {
		return "row:" + strconv.Itoa(index)
	}
	parts := make([]string, len(rowFields))
	for i, f := range rowFields {
		v, _ := rec.Get(f)
		parts[i] = CanonicalKey(valueText(v))
	}
	return "row:" + strings.Join(parts, "|")
}

// isGrandTotalRecord checks the row-field values, or every string value when
// there are no row fields.
func isGrandTotalRecord(rec Record, rowFields []string) bool {
	if len(rowFields) == 0 {
		for _, v := range rec {
			if s, ok := v.(string); ok && IsGrandTotalText(s) {
				return true
			}
		}
		return false
	}
	for _, f := range rowFields {
		if v, ok := rec.Get(f); ok && IsGrandTotalText(valueText(v)) {
			return true
		}
	}
	return false
}

// relocateGrandTotals moves grand-total rows to the end, keeping the
// relative order of both partitions.
func relocateGrandTotals(rows []FlatRow) []FlatRow {
	slices.SortStableFunc(rows, func(a, b FlatRow) int {
		switch {
		case a.IsGrandTotal == b.IsGrandTotal:
			return 0
		case a.IsGrandTotal:
			return 1
		default:
			return -1
		}
	})
	return rows
}
