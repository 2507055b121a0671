package sink

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/pivotview/pkg/pivot"
)

var (
	colorHeader    = lipgloss.Color("245")
	colorBorder    = lipgloss.Color("240")
	colorTotal     = lipgloss.Color("36")
	colorHighlight = lipgloss.Color("220")
)

// TextOptions configures [RenderText].
type TextOptions struct {
	// Title is printed above the grid when set.
	Title string
	// Footer adds a page and layout summary below the grid.
	Footer bool
	// Selected is the 1-based body row drawn reversed; 0 selects nothing.
	Selected int
}

// RenderText renders v as a bordered terminal grid. Subtotal rows are bold,
// grand-total rows colored, and highlighted cells drawn in amber.
func RenderText(v *pivot.View, opts TextOptions) []byte {
	headers := headerRows(v)
	extra := len(headers) - 1
	lw := labelWidth(v)

	rows := make([][]string, 0, extra+len(v.Rows))
	rows = append(rows, headers[1:]...)
	for _, r := range v.Rows {
		rows = append(rows, bodyRow(v, r))
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorHeader).Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers(headers[0]...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow || row < extra {
				if col >= lw {
					return headerStyle.Align(lipgloss.Center)
				}
				return headerStyle
			}
			s := cellStyle
			if col >= lw {
				s = s.Align(lipgloss.Right)
			}
			idx := row - extra
			if idx >= len(v.Rows) {
				return s
			}
			r := v.Rows[idx]
			switch {
			case r.IsGrandTotal:
				s = s.Bold(true).Foreground(colorTotal)
			case r.IsTotal || (r.HasChildren && len(r.Cells) > 0 && r.Cells[0].IsSubtotal):
				s = s.Bold(true)
			}
			if c := col - lw; c >= 0 && c < len(r.Cells) && r.Cells[c].Highlight != "" {
				s = s.Foreground(colorHighlight)
			}
			if idx == opts.Selected-1 {
				s = s.Reverse(true)
			}
			return s
		})

	var b strings.Builder
	if opts.Title != "" {
		b.WriteString(lipgloss.NewStyle().Bold(true).Render(opts.Title))
		b.WriteString("\n")
	}
	b.WriteString(t.Render())
	b.WriteString("\n")
	if opts.Footer {
		b.WriteString(footer(v))
		b.WriteString("\n")
	}
	return []byte(b.String())
}

func footer(v *pivot.View) string {
	parts := []string{
		fmt.Sprintf("page %d/%d", v.Page, max(v.Pages, 1)),
		fmt.Sprintf("%d rows", v.TotalRows),
		"layout " + string(v.Layout),
	}
	if v.AutoSwitched {
		parts[2] += " (auto)"
	}
	if v.Percent != "" && v.Percent != pivot.PercentOff {
		parts = append(parts, "% of "+strings.ReplaceAll(string(v.Percent), "_", " "))
	}
	if n := len(v.Diagnostics); n > 0 {
		parts = append(parts, fmt.Sprintf("%d diagnostics", n))
	}
	return lipgloss.NewStyle().Foreground(colorHeader).Render(strings.Join(parts, " · "))
}
