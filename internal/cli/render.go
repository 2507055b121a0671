package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pivotview/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	report   reportFlags
	output   string // output file (single format) or base path (multiple)
	formats  string // comma-separated formats
	title    string // caption above text and xlsx output
	sheet    string // xlsx sheet name
	detailed bool   // detailed labels in hierarchy diagrams
	noCache  bool   // disable the artifact cache
}

// renderCommand creates the render command. It fetches a payload, computes a
// view and writes one artifact per requested format.
//
// A single text render without --output goes to stdout; everything else is
// written to files named after --output, or after the report source.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [source]",
		Short: "Render a pivot view as text, JSON, XLSX, DOT or SVG",
		Long: `Render fetches a pivot payload from a JSON file or an aggregation backend
URL, lays it out and writes the requested formats.

The source may also be set in a TOML report file passed with --config.
Flags override values from the report file.`,
		Example: `  # Compact text view of a payload file
  pivotview render sales.json --rows Region,City --columns Year --value Sales:sum

  # Outline layout with row percentages as XLSX and SVG
  pivotview render -c report.toml --layout outline --percent row -f xlsx,svg -o sales`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var source string
			if len(args) == 1 {
				source = args[0]
			}
			popts, err := opts.report.options(cmd, source)
			if err != nil {
				return err
			}
			popts.Formats = parseFormats(opts.formats)
			popts.Title = opts.title
			popts.Sheet = opts.sheet
			popts.Detailed = opts.detailed
			return c.runRender(cmd.Context(), cmd.OutOrStdout(), popts, &opts)
		},
	}

	opts.report.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s): text (default), json, xlsx, dot, svg (comma-separated)")
	cmd.Flags().StringVar(&opts.title, "title", "", "caption for text and xlsx output")
	cmd.Flags().StringVar(&opts.sheet, "sheet", "", "xlsx sheet name")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "detailed node labels in hierarchy diagrams")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, stdout io.Writer, popts pipeline.Options, opts *renderOpts) error {
	logger := loggerFrom(ctx)

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Rendering "+popts.Source+"...")
	spinner.Start()
	result, err := runner.Execute(ctx, popts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	view := result.View
	printStats(view.TotalRows, view.Pages, string(view.Layout), result.CacheInfo.ComputeHit)
	if view.AutoSwitched {
		printWarning("Several value fields, switched to the tabular layout")
	}
	for _, d := range view.Diagnostics {
		logger.Warn("hierarchy", "issue", d.String())
	}

	formats := popts.Formats
	if len(formats) == 1 && formats[0] == pipeline.FormatText && opts.output == "" {
		_, err := stdout.Write(result.Artifacts[pipeline.FormatText])
		return err
	}

	paths, err := writeArtifacts(result.Artifacts, formats, basePath(opts.output, popts.Source))
	if err != nil {
		return err
	}
	for _, p := range paths {
		printFile(p)
	}
	if view.Pages > 1 && !popts.AllPages {
		printNextStep("Browse all pages", fmt.Sprintf("%s view %s", appName, popts.Source))
	}
	return nil
}

// basePath derives the output base path. A known format extension on output
// is stripped; without output the source's base name is used.
func basePath(output, source string) string {
	if output == "" {
		name := filepath.Base(source)
		if pipeline.IsRemote(source) || name == "." || name == "/" {
			name = "pivot"
		}
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// writeArtifacts writes base.<format> for every format and returns the paths.
func writeArtifacts(artifacts map[string][]byte, formats []string, base string) ([]string, error) {
	paths := make([]string, 0, len(formats))
	for _, format := range formats {
		data, ok := artifacts[format]
		if !ok {
			return paths, fmt.Errorf("no %s output produced", format)
		}
		path := base + "." + format
		out, err := openOutput(path)
		if err != nil {
			return paths, err
		}
		_, werr := out.Write(data)
		cerr := out.Close()
		if werr != nil {
			return paths, werr
		}
		if cerr != nil {
			return paths, cerr
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// nopCloser wraps an io.Writer with a no-op Close method.
type nopCloser struct{ io.Writer }

// Close implements io.Closer with a no-op.
func (nopCloser) Close() error { return nil }

// openOutput returns a WriteCloser for the given path. An empty path or "-"
// means stdout; otherwise the file is created, overwriting if it exists.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.Create(path)
}
