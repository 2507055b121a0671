package pivot

import (
	"strings"
)

// Cell is one rendered value cell.
type Cell struct {
	Column             string   `json:"column"`
	Text               string   `json:"text"`
	Raw                any      `json:"raw,omitempty"`
	Percent            *float64 `json:"percent,omitempty"`
	IsGrandTotalColumn bool     `json:"is_grand_total_column,omitempty"`
	IsSubtotal         bool     `json:"is_subtotal,omitempty"`
	Highlight          string   `json:"highlight,omitempty"`
}

// DisplayRow is one rendered row.
type DisplayRow struct {
	Key          string   `json:"key"`
	Depth        int      `json:"depth"`
	HasChildren  bool     `json:"has_children,omitempty"`
	Collapsed    bool     `json:"collapsed,omitempty"`
	IsTotal      bool     `json:"is_total,omitempty"`
	IsGrandTotal bool     `json:"is_grand_total,omitempty"`
	Labels       []string `json:"labels"`
	Cells        []Cell   `json:"cells"`
}

// View is the paginated, formatted result of [Engine.Compute].
type View struct {
	Layout       Layout            `json:"layout"`
	AutoSwitched bool              `json:"auto_switched,omitempty"`
	Subtotals    Subtotals         `json:"subtotals"`
	Percent      PercentMode       `json:"percent"`
	Header       [][]HeaderCell    `json:"header,omitempty"`
	LabelHeaders []string          `json:"label_headers"`
	RowFields    []string          `json:"row_fields,omitempty"`
	Columns      []string          `json:"columns"`
	Rows         []DisplayRow      `json:"rows"`
	TotalRows    int               `json:"total_rows"`
	Page         int               `json:"page"`
	Pages        int               `json:"pages"`
	PageSize     int               `json:"page_size"`
	Diagnostics  []Diagnostic      `json:"diagnostics,omitempty"`
	Sorts        []SortDirective   `json:"sorts,omitempty"`
	Filters      []FilterSelection `json:"filters,omitempty"`
}

type viewInput struct {
	cfg       Config
	layout    Layout
	forest    *Forest
	cols      ColumnProjection
	valueCols []string
	rows      []FlatRow
	totals    *Totals
	switched  bool
}

func (e *Engine) buildView(in viewInput) *View {
	cfg := in.cfg
	f := NewFormatter(cfg.Locale, cfg.Decimals)

	columns := make([]string, 0, len(in.valueCols))
	for _, c := range in.valueCols {
		if in.cols.IsGrandTotalColumn(c) && !cfg.GrandTotals.ShowColumns() {
			continue
		}
		columns = append(columns, c)
	}

	visible := make([]FlatRow, 0, len(in.rows))
	for _, r := range in.rows {
		if r.IsGrandTotal && !cfg.GrandTotals.ShowRows() {
			continue
		}
		visible = append(visible, r)
	}

	e.pager.SetPageSize(cfg.PageSize)
	e.pager.Sync(len(visible), in.layout)
	if cfg.Page > 0 {
		e.pager.SetPage(cfg.Page)
	}
	page := visible
	if !cfg.AllPages {
		page = Slice(e.pager, visible)
	}

	v := &View{
		Layout:       in.layout,
		AutoSwitched: in.switched,
		Subtotals:    cfg.Subtotals,
		Percent:      cfg.Percent,
		Header:       visibleHeader(in.cols, cfg.GrandTotals),
		RowFields:    cfg.RowFields,
		Columns:      columns,
		TotalRows:    len(visible),
		Page:         e.pager.Page(),
		Pages:        e.pager.Pages(),
		PageSize:     e.pager.PageSize(),
		Diagnostics:  in.forest.Diagnostics,
		Sorts:        cfg.Metadata.Sorts,
		Filters:      cfg.Metadata.Filters,
	}
	if cfg.AllPages {
		v.Page, v.Pages = 1, 1
	}
	v.LabelHeaders = labelHeaders(in.layout, cfg)

	v.Rows = make([]DisplayRow, 0, len(page))
	for _, r := range page {
		v.Rows = append(v.Rows, displayRow(r, in, columns, f))
	}
	return v
}

func labelHeaders(layout Layout, cfg Config) []string {
	if len(cfg.RowFields) == 0 {
		return nil
	}
	md := NewMetadata()
	md.Restore(cfg.Metadata, cfg.RowFields)
	if layout == LayoutCompact {
		parts := make([]string, len(cfg.RowFields))
		for i, f := range cfg.RowFields {
			parts[i] = f + md.HeaderState(f).Marker()
		}
		return []string{strings.Join(parts, " / ")}
	}
	out := make([]string, len(cfg.RowFields))
	for i, f := range cfg.RowFields {
		out[i] = f + md.HeaderState(f).Marker()
	}
	return out
}

func displayRow(r FlatRow, in viewInput, columns []string, f *Formatter) DisplayRow {
	d := DisplayRow{
		Key:          r.Key,
		Depth:        r.Depth,
		HasChildren:  r.HasChildren,
		Collapsed:    r.Collapsed,
		IsTotal:      r.IsTotal,
		IsGrandTotal: r.IsGrandTotal,
	}

	switch {
	case in.layout == LayoutCompact && r.Node != nil:
		d.Labels = []string{labelText(r.Record[in.cfg.RowFields[r.Level]], f)}
	default:
		d.Labels = make([]string, len(in.cfg.RowFields))
		for i, field := range in.cfg.RowFields {
			d.Labels[i] = labelText(r.Record[field], f)
		}
	}

	subtotal := r.IsTotal || (r.HasChildren && r.HasValues)
	rowTotal := in.totals.NodeTotals[r.Key]
	if r.Node == nil {
		rowTotal = in.totals.RowTotals[r.Key]
	}

	d.Cells = make([]Cell, 0, len(columns))
	for _, c := range columns {
		raw := r.Record[c]
		cell := Cell{
			Column:             c,
			Raw:                raw,
			IsGrandTotalColumn: in.cols.IsGrandTotalColumn(c),
			IsSubtotal:         subtotal,
		}
		if r.HasValues {
			if p, ok := in.totals.Percent(raw, r.Key, c, r.IsGrandTotal); ok {
				cell.Percent = &p
			}
		}
		cell.Text = f.Cell(raw, cell.Percent)
		if num, ok := toFloat(raw); ok && in.cfg.Highlights != nil {
			env := HighlightEnv{
				Value:        num,
				Column:       c,
				RowTotal:     rowTotal,
				IsTotal:      subtotal,
				IsGrandTotal: r.IsGrandTotal || cell.IsGrandTotalColumn,
			}
			if cell.Percent != nil {
				env.Percent, env.HasPercent = *cell.Percent, true
			}
			cell.Highlight = in.cfg.Highlights.Match(env)
		}
		d.Cells = append(d.Cells, cell)
	}
	return d
}

func labelText(v any, f *Formatter) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		if _, isDate := parseDate(s); !isDate {
			return s
		}
	}
	return f.Value(v)
}

// visibleHeader drops grand-total header cells when grand-total columns are
// hidden and shrinks the spans of their ancestors.
func visibleHeader(cols ColumnProjection, gt GrandTotals) [][]HeaderCell {
	if gt.ShowColumns() || len(cols.Rows) == 0 {
		return cols.Rows
	}
	hidden := map[string]int{}
	var count func(n *Node) int
	count = func(n *Node) int {
		c := 0
		if n.IsLeaf() {
			col := n.Column
			if col == "" {
				col = n.Key
			}
			if cols.IsGrandTotalColumn(col) {
				c = 1
			}
		}
		for _, ch := range n.Children {
			c += count(ch)
		}
		hidden[n.Key] = c
		return c
	}
	if cols.Forest != nil {
		for _, r := range cols.Forest.Roots {
			count(r)
		}
	}

	out := make([][]HeaderCell, 0, len(cols.Rows))
	for _, row := range cols.Rows {
		kept := make([]HeaderCell, 0, len(row))
		for _, c := range row {
			c.ColSpan -= hidden[c.Key]
			if c.IsGrandTotal || c.ColSpan <= 0 {
				continue
			}
			kept = append(kept, c)
		}
		out = append(out, kept)
	}
	return out
}
