package pivot

import (
	"strings"

	"github.com/matzehuels/pivotview/pkg/errors"
)

// PercentMode selects the denominator of percentage display.
type PercentMode string

const (
	PercentOff        PercentMode = "off"
	PercentRow        PercentMode = "row"
	PercentColumn     PercentMode = "column"
	PercentGrandTotal PercentMode = "grand_total"
)

// ParsePercentMode parses a percentage mode. Empty means off.
func ParsePercentMode(s string) (PercentMode, error) {
	m := PercentMode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case "":
		return PercentOff, nil
	case PercentOff, PercentRow, PercentColumn, PercentGrandTotal:
		return m, nil
	case "grandtotal", "grand-total", "total":
		return PercentGrandTotal, nil
	}
	return "", errors.New(errors.ErrCodeInvalidMode, "unknown percentage mode %q (want off, row, column or grand_total)", s)
}

// Next cycles off -> row -> column -> grand_total -> off.
func (m PercentMode) Next() PercentMode {
	switch m {
	case PercentOff:
		return PercentRow
	case PercentRow:
		return PercentColumn
	case PercentColumn:
		return PercentGrandTotal
	default:
		return PercentOff
	}
}

// TotalsInput is everything the totals pre-pass depends on.
type TotalsInput struct {
	Mode         PercentMode
	Rows         []Record // flat source rows; forest leaves are used when empty
	RowFields    []string
	ValueColumns []string
	// GrandTotalColumn reports whether a value column is a grand-total
	// column. nil means name matching only.
	GrandTotalColumn func(column string) bool
	Forest           *Forest
}

// Totals holds the denominators for percentage display.
type Totals struct {
	Mode        PercentMode
	RowTotals   map[string]float64 // by composite record key or leaf key
	NodeTotals  map[string]float64 // by hierarchy node key
	ColumnTotal map[string]float64
	GrandTotal  float64

	isGrandTotalColumn func(string) bool
}

// ComputeTotals runs the totals pre-pass.
//
// Row totals sum the numeric value columns of each source row, skipping
// grand-total columns. Column totals and the grand total skip grand-total
// rows; grand-total columns only enter the column totals in column mode.
// A parallel pass over the forest yields node-keyed row totals.
func ComputeTotals(in TotalsInput) *Totals {
	isGT := in.GrandTotalColumn
	if isGT == nil {
		isGT = IsGrandTotalText
	}
	t := &Totals{
		Mode:               in.Mode,
		RowTotals:          map[string]float64{},
		NodeTotals:         map[string]float64{},
		ColumnTotal:        map[string]float64{},
		isGrandTotalColumn: isGT,
	}
	if in.Mode == "" || in.Mode == PercentOff {
		return t
	}

	add := func(key string, isGrandTotalRow bool, get func(string) (any, bool)) {
		rowTotal := 0.0
		for _, c := range in.ValueColumns {
			v, ok := get(c)
			if !ok {
				continue
			}
			f, ok := toFloat(v)
			if !ok {
				continue
			}
			gtCol := isGT(c)
			if !gtCol {
				rowTotal += f
			}
			if isGrandTotalRow {
				continue
			}
			if !gtCol || in.Mode == PercentColumn {
				t.ColumnTotal[c] += f
			}
			if !gtCol {
				t.GrandTotal += f
			}
		}
		t.RowTotals[key] = rowTotal
	}

	if len(in.Rows) > 0 {
		for i, rec := range in.Rows {
			add(RecordKey(rec, in.RowFields, i), isGrandTotalRecord(rec, in.RowFields), rec.Get)
		}
	} else {
		for _, n := range in.Forest.Leaves() {
			add(n.Key, n.GrandTotal, n.Value)
		}
	}

	for key, n := range nodesOf(in.Forest) {
		sum := 0.0
		for _, c := range in.ValueColumns {
			if isGT(c) {
				continue
			}
			if v, ok := n.Value(c); ok {
				if f, ok := toFloat(v); ok {
					sum += f
				}
			}
		}
		t.NodeTotals[key] = sum
	}
	return t
}

func nodesOf(f *Forest) map[string]*Node {
	if f == nil {
		return nil
	}
	return f.Nodes
}

// Percent returns the percentage a cell represents, or false when no
// percentage applies (mode off, non-numeric value, missing or zero total).
func (t *Totals) Percent(value any, rowKey, column string, isGrandTotalRow bool) (float64, bool) {
	if t == nil {
		return 0, false
	}
	v, ok := toFloat(value)
	if !ok {
		return 0, false
	}
	var total float64
	switch t.Mode {
	case PercentRow:
		if t.isGrandTotalColumn(column) {
			return 100, true
		}
		if nt, ok := t.NodeTotals[rowKey]; ok {
			total = nt
		} else {
			total = t.RowTotals[rowKey]
		}
	case PercentColumn:
		if isGrandTotalRow {
			return 100, true
		}
		total = t.ColumnTotal[column]
	case PercentGrandTotal:
		total = t.GrandTotal
	default:
		return 0, false
	}
	if total == 0 {
		return 0, false
	}
	return v * 100 / total, true
}
