package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/pivotview/pkg/pivot"
	"github.com/matzehuels/pivotview/pkg/render/nodelink"
	"github.com/matzehuels/pivotview/pkg/render/sink"
)

// RenderInput is what the sinks draw from.
type RenderInput struct {
	View *pivot.View
	// Forest is the row hierarchy, needed by the dot and svg formats.
	Forest *pivot.Forest
}

// Render generates output artifacts in the requested formats.
func Render(ctx context.Context, in RenderInput, opts Options) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(opts.Formats))
	var dot string

	for _, format := range opts.Formats {
		var (
			data []byte
			err  error
		)
		switch format {
		case FormatText:
			data = sink.RenderText(in.View, sink.TextOptions{Title: opts.Title, Footer: true})
		case FormatJSON:
			data, err = sink.RenderJSON(in.View)
		case FormatXLSX:
			data, err = sink.RenderXLSX(in.View, sink.XLSXOptions{Sheet: opts.Sheet})
		case FormatDOT, FormatSVG:
			if dot == "" {
				dot = nodelink.ToDOT(in.Forest, nodelink.Options{Detailed: opts.Detailed, Columns: in.View.Columns})
			}
			if format == FormatDOT {
				data = []byte(dot)
			} else {
				data, err = nodelink.RenderSVG(ctx, dot)
			}
		default:
			return nil, fmt.Errorf("unsupported format: %s", format)
		}
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}
