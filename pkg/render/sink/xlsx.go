package sink

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/matzehuels/pivotview/pkg/pivot"
)

// DefaultSheet is the worksheet name used when none is given.
const DefaultSheet = "Pivot"

// XLSXOptions configures [RenderXLSX].
type XLSXOptions struct {
	Sheet string
}

type xlsxStyles struct {
	header, label, number, percent int
	total, totalNumber, totalPct   int
	highlight                      int
}

// RenderXLSX renders v as a single-sheet workbook. Column headers spanning
// several leaves or header rows become merged cells; numeric cells keep
// their raw value, percentages are written as fractions with a percent
// number format.
func RenderXLSX(v *pivot.View, opts XLSXOptions) ([]byte, error) {
	sheet := opts.Sheet
	if sheet == "" {
		sheet = DefaultSheet
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	st, err := newXLSXStyles(f)
	if err != nil {
		return nil, err
	}

	w := &xlsxWriter{f: f, sheet: sheet}
	lw := labelWidth(v)
	headerHeight := max(len(v.Header), 1)

	// Row-field headers span every header row.
	for i, h := range v.LabelHeaders {
		w.set(i+1, 1, h, st.header)
		w.merge(i+1, 1, i+1, headerHeight)
	}
	if len(v.Header) == 0 {
		for i, c := range v.Columns {
			w.set(lw+i+1, 1, c, st.header)
		}
	} else {
		for _, p := range placeHeader(v.Header, len(v.Columns)) {
			col, row := lw+p.col+1, p.row+1
			w.set(col, row, p.cell.Label, st.header)
			w.merge(col, row, col+max(p.cell.ColSpan, 1)-1, min(row+max(p.cell.RowSpan, 1)-1, headerHeight))
		}
	}

	for i, r := range v.Rows {
		row := headerHeight + i + 1
		total := r.IsTotal || r.IsGrandTotal || (len(r.Cells) > 0 && r.Cells[0].IsSubtotal)

		labelStyle := st.label
		if total {
			labelStyle = st.total
		}
		labels := bodyRow(v, r)[:len(r.Labels)]
		for j, l := range labels {
			w.set(j+1, row, strings.TrimLeft(l, " ▾▸"), labelStyle)
		}
		if v.Layout == pivot.LayoutCompact && len(r.Labels) == 1 && r.Depth > 0 {
			w.indent(1, row, r.Depth, total)
		}

		for j, c := range r.Cells {
			col := len(labels) + j + 1
			value, style := xlsxValue(c, st, total)
			w.set(col, row, value, style)
		}
	}

	for i := range lw {
		name, _ := excelize.ColumnNumberToName(i + 1)
		w.err = firstErr(w.err, f.SetColWidth(sheet, name, name, 24))
	}
	if n := len(v.Columns); n > 0 {
		from, _ := excelize.ColumnNumberToName(lw + 1)
		to, _ := excelize.ColumnNumberToName(lw + n)
		w.err = firstErr(w.err, f.SetColWidth(sheet, from, to, 14))
	}
	if w.err != nil {
		return nil, fmt.Errorf("write sheet: %w", w.err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func xlsxValue(c pivot.Cell, st xlsxStyles, total bool) (any, int) {
	switch {
	case c.Percent != nil && total:
		return *c.Percent / 100, st.totalPct
	case c.Percent != nil:
		return *c.Percent / 100, st.percent
	case isNumber(c.Raw) && total:
		return c.Raw, st.totalNumber
	case isNumber(c.Raw) && c.Highlight != "":
		return c.Raw, st.highlight
	case isNumber(c.Raw):
		return c.Raw, st.number
	case total:
		return c.Text, st.total
	default:
		return c.Text, st.label
	}
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int32, int64, uint, uint32, uint64:
		return true
	}
	return false
}

func newXLSXStyles(f *excelize.File) (xlsxStyles, error) {
	numFmt := "#,##0.##"
	var st xlsxStyles
	defs := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&st.header, &excelize.Style{
			Font:      &excelize.Font{Bold: true},
			Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E7E6E6"}, Pattern: 1},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		}},
		{&st.label, &excelize.Style{}},
		{&st.number, &excelize.Style{CustomNumFmt: &numFmt}},
		{&st.percent, &excelize.Style{NumFmt: 10}},
		{&st.total, &excelize.Style{Font: &excelize.Font{Bold: true}}},
		{&st.totalNumber, &excelize.Style{Font: &excelize.Font{Bold: true}, CustomNumFmt: &numFmt}},
		{&st.totalPct, &excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: 10}},
		{&st.highlight, &excelize.Style{
			CustomNumFmt: &numFmt,
			Fill:         excelize.Fill{Type: "pattern", Color: []string{"#FFF2CC"}, Pattern: 1},
		}},
	}
	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return st, fmt.Errorf("create style: %w", err)
		}
		*d.dst = id
	}
	return st, nil
}

// xlsxWriter keeps the first error so cell writes read linearly.
type xlsxWriter struct {
	f       *excelize.File
	sheet   string
	indents map[[2]int]int // (depth, bold) -> style id
	err     error
}

func (w *xlsxWriter) cell(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	w.err = firstErr(w.err, err)
	return name
}

func (w *xlsxWriter) set(col, row int, value any, style int) {
	if w.err != nil {
		return
	}
	c := w.cell(col, row)
	w.err = firstErr(w.err, w.f.SetCellValue(w.sheet, c, value))
	w.err = firstErr(w.err, w.f.SetCellStyle(w.sheet, c, c, style))
}

func (w *xlsxWriter) merge(col1, row1, col2, row2 int) {
	if w.err != nil || (col1 == col2 && row1 == row2) {
		return
	}
	w.err = firstErr(w.err, w.f.MergeCell(w.sheet, w.cell(col1, row1), w.cell(col2, row2)))
}

// indent applies a per-depth indent to a compact label cell.
func (w *xlsxWriter) indent(col, row, depth int, bold bool) {
	if w.err != nil {
		return
	}
	key := [2]int{depth, pick(bold, 1, 0)}
	id, ok := w.indents[key]
	if !ok {
		var err error
		id, err = w.f.NewStyle(&excelize.Style{
			Font:      &excelize.Font{Bold: bold},
			Alignment: &excelize.Alignment{Indent: depth},
		})
		if err != nil {
			w.err = err
			return
		}
		if w.indents == nil {
			w.indents = map[[2]int]int{}
		}
		w.indents[key] = id
	}
	c := w.cell(col, row)
	w.err = firstErr(w.err, w.f.SetCellStyle(w.sheet, c, c, id))
}

func pick(cond bool, a, b int) int {
	if cond {
		return a
	}
	return b
}

func firstErr(a, b error) error {
	if a != nil {
		return a
	}
	return b
}
