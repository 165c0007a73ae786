package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cohort/internal/catalog"
)

// SchemaOptions holds flags for the schema command.
type SchemaOptions struct {
	*RootOptions
	Database   string
	ConfigPath string
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show the queryable schema",
		Long: `Show the tables, columns, and sample values the pipeline can map
business terms onto.

Example:
  cohort schema --db ./bank.db
  cohort schema --db ./bank.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required unless set in config)")
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to pipeline config YAML")

	return cmd
}

func runSchema(cmd *cobra.Command, opts *SchemaOptions) error {
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

	cat, err := catalog.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer cat.Close()

	tables := cat.Tables()
	if opts.Format == "json" {
		return formatter.Success(tables)
	}

	for _, table := range tables {
		fmt.Fprintf(formatter.Writer, "%s (%d columns)\n", table.Name, len(table.Columns))
		for _, col := range table.Columns {
			samples := make([]string, 0, len(col.SampleValues))
			for _, v := range col.SampleValues {
				samples = append(samples, fmt.Sprintf("%v", v))
			}
			fmt.Fprintf(formatter.Writer, "  %-12s %-8s %s\n",
				col.Name, col.DeclaredType, strings.Join(samples, ", "))
		}
	}
	return nil
}
