// Package nodelink renders a pivot row hierarchy as a node-link diagram.
//
// # Overview
//
// Each node of the [pivot.Forest] becomes a box, each parent/child link an
// arrow. The diagram is a debugging aid for backend payloads: it shows how
// the flat node list was linked, where grand totals ended up and which
// nodes were promoted to roots because their parent was missing.
//
// # Usage
//
//	dot := nodelink.ToDOT(forest, nodelink.Options{Detailed: true, Columns: []string{"Sales"}})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// # Options
//
//   - Detailed: add the node key and the values of Columns to each label
//
// Grand-total nodes are drawn dashed on a grey fill; nodes named in an
// orphan or cycle diagnostic get a red outline.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering.
//
// [pivot.Forest]: github.com/matzehuels/pivotview/pkg/pivot.Forest
package nodelink
