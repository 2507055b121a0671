// Package render groups the output sinks for computed pivot views.
//
// # Overview
//
// The pivot engine produces a [pivot.View]: header matrix, display rows and
// formatted cells. Rendering turns that view (and, for diagrams, the row
// hierarchy) into bytes:
//
//   - Grids (in [sink] subpackage): terminal text, JSON and XLSX workbooks
//   - Node-link diagrams (in [nodelink] subpackage): the row hierarchy as
//     Graphviz DOT or SVG
//
// # Grids
//
// Every grid sink draws the same layout: label columns on the left, the
// column header matrix on top with spans placed by occupancy, and subtotal
// and grand-total rows styled apart from detail rows.
//
//	text := sink.RenderText(view, sink.TextOptions{Footer: true})
//	xlsx, err := sink.RenderXLSX(view, sink.XLSXOptions{Sheet: "Sales"})
//
// # Node-Link Diagrams
//
// The [nodelink] subpackage draws the row hierarchy left to right. Orphaned
// and cycle-broken nodes are outlined in red so data problems stand out.
//
//	dot := nodelink.ToDOT(forest, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// [pivot.View]: github.com/matzehuels/pivotview/pkg/pivot.View
// [sink]: github.com/matzehuels/pivotview/pkg/render/sink
// [nodelink]: github.com/matzehuels/pivotview/pkg/render/nodelink
package render
