package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cohort/internal/pipeline"
)

// demoQueries is the canned walkthrough: each line exercises a different
// part of the lexicon (flags, numeric comparatives, categoricals, joins).
var demoQueries = []string{
	"Customers who have a housing loan and balance over 1000",
	"Married customers with age over 30",
	"Customers with housing loan",
	"Customers with balance over 5000",
}

// DemoOptions holds flags for the demo command.
type DemoOptions struct {
	*RootOptions
	Database   string
	ConfigPath string
}

// NewDemoCommand creates the demo command.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DemoOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted walkthrough of segment creation",
		Long: `Run a fixed set of example descriptions through one pipeline and
print every result plus the resulting segment registry. Segments live
only for the duration of the run.

Example:
  cohort demo --db ./bank.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required unless set in config)")
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to pipeline config YAML")

	return cmd
}

func runDemo(cmd *cobra.Command, opts *DemoOptions) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := loadConfig(opts.ConfigPath, opts.Database)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	p, cat, err := buildPipeline(ctx, cfg, opts.Verbose)
	if err != nil {
		return err
	}
	defer cat.Close()

	var responses []*pipeline.Response
	failures := 0
	for _, query := range demoQueries {
		resp := p.CreateSegment(ctx, query)
		responses = append(responses, resp)
		if resp.Status != pipeline.StatusSuccess {
			failures++
		}
	}

	if opts.Format == "json" {
		if err := formatter.Success(responses); err != nil {
			return err
		}
	} else {
		for _, resp := range responses {
			fmt.Fprintf(formatter.Writer, "=== %s\n", resp.Query)
			writeResponseText(formatter, resp)
			fmt.Fprintln(formatter.Writer)
		}

		fmt.Fprintf(formatter.Writer, "Registry: %d segments\n", p.Store().Len())
		for seg := range p.Store().List() {
			fmt.Fprintf(formatter.Writer, "  %s  %6d customers  %s\n",
				seg.ID, seg.CustomerCount, seg.Query.Text)
		}
	}

	if failures > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d demo queries failed", failures, len(demoQueries)))
	}
	return nil
}
