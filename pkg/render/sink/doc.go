// Package sink renders a computed [pivot.View] into output formats.
//
// Available sinks:
//
//   - [RenderText]: a bordered terminal grid (lipgloss table)
//   - [RenderJSON]: the view as indented JSON, for API clients
//   - [RenderXLSX]: a spreadsheet with merged column-header cells
//
// Every sink lays out the same grid: the row-label columns first (one for
// the compact layout, one per row field otherwise), then one column per
// visible value column. Multi-level column headers become stacked header
// rows, with each header cell spanning its leaf columns.
//
// The hierarchy diagram formats (DOT, SVG) live in the nodelink package
// since they render the row forest rather than the grid.
//
// [pivot.View]: github.com/matzehuels/pivotview/pkg/pivot.View
package sink
