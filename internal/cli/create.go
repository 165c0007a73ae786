package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cohort/internal/pipeline"
)

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	Database   string
	ConfigPath string
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create <description>",
		Short: "Create a segment from a plain-English description",
		Long: `Create a customer segment from a natural-language description.

The description is parsed into structured criteria, mapped onto the
database schema, compiled to SQL, validated, and materialized as a
segment. The full audit trail is part of the output.

Example:
  cohort create --db ./bank.db "Customers who have a housing loan and balance over 1000"
  cohort create --db ./bank.db --format json "Married customers with age over 30"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required unless set in config)")
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to pipeline config YAML")

	return cmd
}

func runCreate(cmd *cobra.Command, opts *CreateOptions, description string) error {
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

	formatter.VerboseLog("processing: %s", description)
	resp := p.CreateSegment(ctx, description)

	if opts.Format == "json" {
		if resp.Status == pipeline.StatusSuccess {
			if err := formatter.Success(resp); err != nil {
				return err
			}
			return nil
		}
		if err := formatter.Error(resp.Status, resp); err != nil {
			return err
		}
		return NewExitError(ExitFailure, resp.Status)
	}

	writeResponseText(formatter, resp)
	if resp.Status != pipeline.StatusSuccess {
		return NewExitError(ExitFailure, resp.Status)
	}
	return nil
}

// writeResponseText renders a pipeline response for humans.
func writeResponseText(f *OutputFormatter, resp *pipeline.Response) {
	w := f.Writer

	fmt.Fprintf(w, "Status: %s\n", resp.Status)
	if resp.GeneratedQuery != "" {
		fmt.Fprintf(w, "Query:  %s\n", resp.GeneratedQuery)
	}

	switch resp.Status {
	case pipeline.StatusSuccess:
		fmt.Fprintf(w, "Segment: %s (%d customers, ~%d rows estimated)\n",
			resp.SegmentID, resp.CustomerCount, resp.EstimatedRows)
		fmt.Fprintf(w, "Activated in: %s\n", strings.Join(resp.DownstreamSystems, ", "))
	case pipeline.StatusValidationFailed:
		for _, issue := range resp.Issues {
			fmt.Fprintf(w, "Issue: %s\n", issue)
		}
	default:
		fmt.Fprintf(w, "Error: %s\n", resp.Error)
	}

	fmt.Fprintln(w, "Steps:")
	for _, step := range resp.ProcessingSteps {
		status := "completed"
		if step.Err != "" {
			status = "failed: " + step.Err
		}
		fmt.Fprintf(w, "  %-16s %4dms  %s\n", step.Stage, step.Duration.Milliseconds(), status)
	}
}
