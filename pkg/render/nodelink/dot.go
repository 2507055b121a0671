package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/pivotview/pkg/pivot"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed includes the node key and value columns in node labels.
	// When false, only the caption is shown.
	Detailed bool
	// Columns are the value columns listed in detailed labels.
	Columns []string
}

// ToDOT converts a forest to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG].
func ToDOT(f *pivot.Forest, opts Options) string {
	flagged := map[string]bool{}
	if f != nil {
		for _, d := range f.Diagnostics {
			if d.Kind == pivot.DiagnosticOrphan || d.Kind == pivot.DiagnosticCycle {
				flagged[d.Key] = true
			}
		}
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	var edges []string
	f.Walk(func(n *pivot.Node, _ int) bool {
		attrs := fmtAttrs(n, fmtLabel(n, opts), flagged[n.Key])
		fmt.Fprintf(&buf, "  %q [%s];\n", n.Key, strings.Join(attrs, ", "))
		for _, c := range n.Children {
			edges = append(edges, fmt.Sprintf("  %q -> %q;\n", n.Key, c.Key))
		}
		return true
	})

	buf.WriteString("\n")
	for _, e := range edges {
		buf.WriteString(e)
	}
	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n *pivot.Node, opts Options) string {
	caption := n.Caption()
	if !opts.Detailed {
		return caption
	}

	parts := []string{caption, "key: " + n.Key}
	for _, c := range opts.Columns {
		if v, ok := n.Value(c); ok {
			parts = append(parts, fmt.Sprintf("%s: %v", c, v))
		}
	}
	return strings.Join(parts, "\n")
}

func fmtAttrs(n *pivot.Node, label string, flagged bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if n.GrandTotal {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey", "fontcolor=black")
	}
	if flagged {
		attrs = append(attrs, "color=red", "penwidth=2")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element to a zero-origin viewBox with
// matching pixel size, so the SVG scales cleanly when embedded.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
