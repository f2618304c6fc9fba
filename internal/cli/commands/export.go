package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapcheck/pkg/export"
)

// ExportOptions holds options for the export command.
type ExportOptions struct {
	Format string
	Out    string
}

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	opts := &ExportOptions{}
	cmd := &cobra.Command{
		Use:   "export [run-id|latest]",
		Short: "Export the issues of a recorded run",
		Long: `Write the issue table of a recorded run with the columns
row_index, column, issue and value.

Without a run ID the latest run is exported. Composite values such as
duplicate keys are written as JSON objects.`,
		Example: `  # Latest run as CSV on stdout
  leapcheck export

  # A specific run as JSON
  leapcheck export 3f2b... --format json

  # Write to a file
  leapcheck export latest --out issues.csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := "latest"
			if len(args) > 0 {
				id = args[0]
			}
			return runExport(cmd, id, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Export format: csv, json, markdown, table, html (default: from --out, else csv)")
	cmd.Flags().StringVar(&opts.Out, "out", "", "Output file (default: stdout)")

	return cmd
}

func runExport(cmd *cobra.Command, id string, opts *ExportOptions) error {
	format, err := exportFormatFor(opts.Out, opts.Format)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	if err := requireHistory(cmdCtx); err != nil {
		return err
	}

	_, issues, err := lookupRun(cmdCtx.Engine.Store(), id)
	if err != nil {
		return err
	}

	if opts.Out == "" {
		return export.Write(cmd.OutOrStdout(), issues, format)
	}
	if err := writeExport(opts.Out, issues, format); err != nil {
		return err
	}
	cmdCtx.Renderer.Success("Exported " + plural(len(issues), "issue") + " to " + opts.Out)
	return nil
}
