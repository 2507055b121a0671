package pivot

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Align is a horizontal alignment hint for renderers.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// ValueField is one configured measure.
type ValueField struct {
	Field        string `json:"field" toml:"field"`
	Aggregation  string `json:"aggregation,omitempty" toml:"aggregation"`
	WeightColumn string `json:"weight_column,omitempty" toml:"weight_column"`
}

// AggregationTitle returns the display name of the aggregation
// ("sum" -> "Sum", "count_distinct" -> "Count Distinct"). Empty means sum.
func (v ValueField) AggregationTitle() string {
	agg := strings.TrimSpace(v.Aggregation)
	if agg == "" {
		agg = "sum"
	}
	// Casers are stateful; one per call.
	return cases.Title(language.English).String(strings.NewReplacer("_", " ", "-", " ").Replace(agg))
}

// Title returns the header label of the measure: "Sum of Sales", or
// "Weighted Average (by Units)" when a weight column is configured.
func (v ValueField) Title() string {
	if v.WeightColumn != "" {
		return "Weighted Average (by " + v.WeightColumn + ")"
	}
	return v.AggregationTitle() + " of " + v.Field
}

// candidates lists the data-key spellings a backend may use for the measure.
func (v ValueField) candidates() []string {
	agg := strings.ToLower(strings.TrimSpace(v.Aggregation))
	if agg == "" {
		agg = "sum"
	}
	return []string{v.Field, agg + "_" + v.Field, v.Title()}
}

// HeaderCell is one cell of the column header matrix.
type HeaderCell struct {
	Key          string `json:"key"`
	Label        string `json:"label"`
	Column       string `json:"column,omitempty"` // leaf value column
	ColSpan      int    `json:"colspan"`
	RowSpan      int    `json:"rowspan"`
	Level        int    `json:"level"`
	Align        Align  `json:"align"`
	IsLeaf       bool   `json:"is_leaf,omitempty"`
	IsGrandTotal bool   `json:"is_grand_total,omitempty"`
}

// ColumnInput is everything the column projector depends on.
type ColumnInput struct {
	Nodes        []RawNode
	ColumnFields []string
	ValueFields  []ValueField
	DataKeys     []string // keys seen in the flat rows, in first-seen order
}

// ColumnProjection is the projected column dimension.
type ColumnProjection struct {
	Rows        [][]HeaderCell
	LeafColumns []string
	// GrandTotal holds the leaf columns that represent a grand total.
	GrandTotal map[string]bool
	Forest     *Forest
}

// IsGrandTotalColumn reports whether column is a grand-total column, either
// structurally or by name.
func (p ColumnProjection) IsGrandTotalColumn(column string) bool {
	return p.GrandTotal[column] || IsGrandTotalText(column)
}

// ProjectColumns builds the header matrix and the ordered leaf value columns.
//
// Without column fields the header matrix is empty and the leaf columns are
// the value fields mapped onto matching data keys. Otherwise the column
// forest is built like the row forest; each node spans as many columns as it
// has leaves, leaves span the remaining header rows, and grand-total leaves
// are moved to the end of the leaf ordering.
func ProjectColumns(in ColumnInput) ColumnProjection {
	proj := ColumnProjection{GrandTotal: map[string]bool{}}

	if len(in.ColumnFields) == 0 {
		proj.LeafColumns = valueColumns(in.ValueFields, in.DataKeys)
		return proj
	}

	forest := BuildForest(in.Nodes)
	proj.Forest = forest
	if forest.Empty() {
		proj.LeafColumns = valueColumns(in.ValueFields, in.DataKeys)
		return proj
	}

	labels := valueLabels(in.ValueFields)
	totalDepth := forest.Depth()
	leafCounts := make(map[string]int, forest.Len())
	proj.Rows = make([][]HeaderCell, totalDepth)

	var leaves, totals []string
	forest.Walk(func(n *Node, depth int) bool {
		cell := HeaderCell{
			Key:          n.Key,
			Label:        headerLabel(n, labels),
			ColSpan:      leafCount(n, leafCounts),
			RowSpan:      1,
			Level:        depth,
			Align:        AlignCenter,
			IsGrandTotal: n.GrandTotal,
		}
		if n.IsLeaf() {
			col := n.Column
			if col == "" {
				col = n.Key
			}
			cell.Column = col
			cell.IsLeaf = true
			cell.Align = AlignRight
			cell.RowSpan = max(totalDepth-depth, 1)
			if n.GrandTotal || IsGrandTotalText(col) {
				proj.GrandTotal[col] = true
				totals = append(totals, col)
			} else {
				leaves = append(leaves, col)
			}
		}
		proj.Rows[depth] = append(proj.Rows[depth], cell)
		return true
	})

	proj.LeafColumns = dedupe(append(leaves, totals...))
	return proj
}

// leafCount returns the number of leaves under n, memoized by key.
func leafCount(n *Node, memo map[string]int) int {
	if c, ok := memo[n.Key]; ok {
		return c
	}
	c := 0
	if n.IsLeaf() {
		c = 1
	}
	for _, ch := range n.Children {
		c += leafCount(ch, memo)
	}
	memo[n.Key] = c
	return c
}

// valueLabels maps value-field spellings (canonical) to their titles.
func valueLabels(fields []ValueField) map[string]string {
	m := make(map[string]string, len(fields)*2)
	for _, f := range fields {
		title := f.Title()
		for _, c := range f.candidates() {
			if ck := CanonicalKey(c); ck != "" {
				if _, taken := m[ck]; !taken {
					m[ck] = title
				}
			}
		}
	}
	return m
}

func headerLabel(n *Node, values map[string]string) string {
	if l, ok := n.Terminal(); ok && l.Field == ValueFieldTag {
		if title, ok := values[CanonicalKey(l.Text)]; ok {
			return title
		}
	}
	return n.Caption()
}

// valueColumns maps each value field to a data key, case-insensitively,
// falling back to the field name itself.
func valueColumns(fields []ValueField, dataKeys []string) []string {
	if len(fields) == 0 {
		return nil
	}
	byCanon := make(map[string]string, len(dataKeys))
	for _, k := range dataKeys {
		ck := CanonicalKey(k)
		if _, taken := byCanon[ck]; !taken {
			byCanon[ck] = k
		}
	}
	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		col := f.Field
		for _, c := range f.candidates() {
			if k, ok := byCanon[CanonicalKey(c)]; ok {
				col = k
				break
			}
		}
		cols = append(cols, col)
	}
	return dedupe(cols)
}

func dedupe(s []string) []string {
	seen := make(map[string]bool, len(s))
	return slices.DeleteFunc(s, func(v string) bool {
		if seen[v] {
			return true
		}
		seen[v] = true
		return false
	})
}
