package sink

import (
	"strings"

	"github.com/matzehuels/pivotview/pkg/pivot"
)

const (
	markerExpanded  = "▾ "
	markerCollapsed = "▸ "
)

// placement is a header cell positioned in the value-column region.
type placement struct {
	cell     pivot.HeaderCell
	row, col int
}

// placeHeader positions header cells, honoring row and column spans.
// Cells are placed left to right into the first free slot of their row.
func placeHeader(header [][]pivot.HeaderCell, width int) []placement {
	occupied := make([][]bool, len(header))
	for i := range occupied {
		occupied[i] = make([]bool, width)
	}

	var out []placement
	for r, row := range header {
		c := 0
		for _, cell := range row {
			for c < width && occupied[r][c] {
				c++
			}
			if c >= width {
				break
			}
			out = append(out, placement{cell: cell, row: r, col: c})
			span := max(cell.ColSpan, 1)
			for rr := r; rr < min(r+max(cell.RowSpan, 1), len(header)); rr++ {
				for cc := c; cc < min(c+span, width); cc++ {
					occupied[rr][cc] = true
				}
			}
			c += span
		}
	}
	return out
}

// labelWidth is the number of row-label columns.
func labelWidth(v *pivot.View) int {
	return len(v.LabelHeaders)
}

// headerRows flattens the header into text rows. Spanned cells carry their
// label in the first slot only. Row-field headers sit on the last row.
func headerRows(v *pivot.View) [][]string {
	lw := labelWidth(v)
	if len(v.Header) == 0 {
		row := make([]string, 0, lw+len(v.Columns))
		row = append(row, v.LabelHeaders...)
		return [][]string{append(row, v.Columns...)}
	}

	rows := make([][]string, len(v.Header))
	for i := range rows {
		rows[i] = make([]string, lw+len(v.Columns))
	}
	copy(rows[len(rows)-1], v.LabelHeaders)
	for _, p := range placeHeader(v.Header, len(v.Columns)) {
		rows[p.row][lw+p.col] = p.cell.Label
	}
	return rows
}

// bodyRow renders one display row as text cells.
func bodyRow(v *pivot.View, r pivot.DisplayRow) []string {
	out := make([]string, 0, len(r.Labels)+len(r.Cells))
	if v.Layout == pivot.LayoutCompact && len(r.Labels) == 1 {
		out = append(out, strings.Repeat("  ", r.Depth)+marker(r)+r.Labels[0])
	} else {
		for i, l := range r.Labels {
			if i == 0 && l != "" {
				l = marker(r) + l
			}
			out = append(out, l)
		}
	}
	for _, c := range r.Cells {
		out = append(out, c.Text)
	}
	return out
}

func marker(r pivot.DisplayRow) string {
	switch {
	case !r.HasChildren || r.IsTotal:
		return ""
	case r.Collapsed:
		return markerCollapsed
	default:
		return markerExpanded
	}
}
