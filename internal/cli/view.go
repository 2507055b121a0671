package cli

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pivotview/pkg/pipeline"
	"github.com/matzehuels/pivotview/pkg/session"
)

// viewCommand opens the interactive pivot viewer.
func (c *CLI) viewCommand() *cobra.Command {
	var (
		report  reportFlags
		noCache bool
		fresh   bool
	)

	cmd := &cobra.Command{
		Use:   "view [source]",
		Short: "Browse a pivot view interactively",
		Long: `View opens a terminal viewer over a pivot payload. Rows can be collapsed
and expanded, and layout, subtotals, percentages and paging switched
without leaving the viewer. Sorting a backend source refetches the payload.

The viewer state is saved on exit and restored the next time the same
source is opened with the same fields, unless --fresh is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var source string
			if len(args) == 1 {
				source = args[0]
			}
			opts, err := report.options(cmd, source)
			if err != nil {
				return err
			}
			return c.runView(cmd.Context(), opts, noCache, fresh)
		},
	}

	report.register(cmd)
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "ignore the saved viewer state")

	return cmd
}

func (c *CLI) runView(ctx context.Context, opts pipeline.Options, noCache, fresh bool) error {
	logger := loggerFrom(ctx)

	id := session.ID(opts.Source, opts.Fields)
	store, err := session.NewFileStore("")
	if err != nil {
		logger.Warn("viewer state disabled", "error", err)
	} else if !fresh {
		if sess, err := store.Get(ctx, id); err != nil {
			logger.Warn("could not restore viewer state", "error", err)
		} else if sess != nil {
			sess.Apply(&opts)
			logger.Debug("restored viewer state", "id", id, "saved", sess.UpdatedAt)
		}
	}

	opts.Logger = c.Logger
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	runner, err := c.newRunner(noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Fetching "+opts.Source+"...")
	spinner.Start()
	payload, err := runner.Fetch(ctx, opts)
	if err != nil {
		spinner.StopWithError("Fetch failed")
		return err
	}
	spinner.Stop()

	p := tea.NewProgram(NewPivotModel(ctx, runner, opts, payload), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return err
	}

	if fm, ok := final.(PivotModel); ok && store != nil {
		if err := store.Set(ctx, fm.Session(id)); err != nil {
			logger.Warn("could not save viewer state", "error", err)
		}
	}
	return nil
}
