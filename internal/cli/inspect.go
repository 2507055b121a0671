package cli

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pivotview/pkg/pipeline"
	"github.com/matzehuels/pivotview/pkg/pivot"
)

// inspectCommand reports the shape of a payload: hierarchy sizes, data
// integrity diagnostics and, with --distinct, the values of a field.
func (c *CLI) inspectCommand() *cobra.Command {
	var (
		report   reportFlags
		distinct []string
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "inspect [source]",
		Short: "Report hierarchy statistics and diagnostics for a payload",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var source string
			if len(args) == 1 {
				source = args[0]
			}
			opts, err := report.options(cmd, source)
			if err != nil {
				return err
			}
			return c.runInspect(cmd.Context(), opts, distinct, noCache)
		},
	}

	report.register(cmd)
	cmd.Flags().StringSliceVar(&distinct, "distinct", nil, "list the distinct values of these fields")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runInspect(ctx context.Context, opts pipeline.Options, distinct []string, noCache bool) error {
	sw := startStopwatch(loggerFrom(ctx))

	runner, err := c.newRunner(noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	payload, hit, err := runner.FetchWithCacheInfo(ctx, opts)
	if err != nil {
		return err
	}
	sw.done("fetched payload", "source", opts.Source, "cached", hit)

	rows := pivot.BuildForest(payload.RowNodes)
	cols := pivot.BuildForest(payload.ColumnNodes)

	printKeyValue("Source", opts.Source)
	if hit {
		printDetail("payload served from cache")
	}
	printForest("Row nodes", rows)
	printForest("Column nodes", cols)
	printKeyValue("Data rows", strconv.Itoa(len(payload.Rows)))
	if keys := payload.Input().DataKeys; len(keys) > 0 {
		printKeyValue("Data keys", strings.Join(keys, ", "))
	}

	diags := slices.Concat(rows.Diagnostics, cols.Diagnostics)
	if len(diags) == 0 {
		printSuccess("No hierarchy issues")
	} else {
		printWarning("%d hierarchy issue(s)", len(diags))
		for _, d := range diags {
			printDetail("%s", d.String())
		}
	}

	for _, field := range distinct {
		values, err := runner.Distinct(ctx, opts, field)
		if err != nil {
			return fmt.Errorf("distinct %s: %w", field, err)
		}
		printNewline()
		printInfo("%s (%d values)", field, len(values))
		for _, v := range values {
			printDetail("%s", v)
		}
	}
	return nil
}

func printForest(name string, f *pivot.Forest) {
	printKeyValue(name, fmt.Sprintf("%d (depth %d, %d roots, %d leaves)", f.Len(), f.Depth(), len(f.Roots), len(f.Leaves())))
}
