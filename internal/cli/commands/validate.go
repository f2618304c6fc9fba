package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapcheck/internal/cli/output"
	intconfig "github.com/leapstack-labs/leapcheck/internal/config"
	"github.com/leapstack-labs/leapcheck/internal/engine"
	"github.com/leapstack-labs/leapcheck/pkg/core"
	"github.com/leapstack-labs/leapcheck/pkg/export"
	"github.com/leapstack-labs/leapcheck/pkg/source"
)

// ValidateOptions holds options for the validate command.
type ValidateOptions struct {
	Type         string
	Table        string
	Query        string
	DSN          string
	Delimiter    string
	Encoding     string
	Preview      int
	FailOnIssues bool
	FailOn       string
	Export       string
	ExportFormat string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	opts := &ValidateOptions{}

	cmd := &cobra.Command{
		Use:     "validate [file...]",
		Aliases: []string{"check"},
		Short:   "Validate datasets against the rules",
		Long: `Validate one or more datasets against the rules file and print a report.

Without arguments the source configured in leapcheck.yaml is validated.
Several files are validated in parallel (see --workers). Each run is recorded
in the history database unless --no-history is set.`,
		Example: `  # Validate the configured source
  leapcheck validate

  # Validate files with an explicit rules file
  leapcheck validate people.csv orders.parquet --rules rules.yaml

  # A semicolon-separated file in a legacy encoding
  leapcheck validate export.csv --delimiter ';' --encoding windows-1250

  # A table in a SQLite database
  leapcheck validate app.db --table users

  # Fail the build when data violations are found
  leapcheck validate --fail-on-issues --fail-on warning

  # Save the issue table
  leapcheck validate people.csv --export issues.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Type, "type", "", "Source type (csv, duckdb, sqlite, postgres, s3)")
	cmd.Flags().StringVar(&opts.Table, "table", "", "Table to read from a database source")
	cmd.Flags().StringVar(&opts.Query, "query", "", "Query to read from a database source")
	cmd.Flags().StringVar(&opts.DSN, "dsn", "", "Connection string for a database source")
	cmd.Flags().StringVar(&opts.Delimiter, "delimiter", "", "Field delimiter for delimited text")
	cmd.Flags().StringVar(&opts.Encoding, "encoding", "", "Character encoding for delimited text")
	cmd.Flags().IntVar(&opts.Preview, "preview", 0, "Print the first N rows before the report")
	cmd.Flags().BoolVar(&opts.FailOnIssues, "fail-on-issues", false, "Exit non-zero when issues are found")
	cmd.Flags().StringVar(&opts.FailOn, "fail-on", "warning", "Lowest severity that fails with --fail-on-issues (error, warning, info)")
	cmd.Flags().StringVar(&opts.Export, "export", "", "Write the issue table to a file")
	cmd.Flags().StringVar(&opts.ExportFormat, "export-format", "", "Export format (default: from the file extension, else csv)")

	_ = cmd.RegisterFlagCompletionFunc("type", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return source.ListSources(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("fail-on", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"error", "warning", "info"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runValidate(cmd *cobra.Command, args []string, opts *ValidateOptions) error {
	threshold, ok := core.ParseSeverity(opts.FailOn)
	if !ok {
		return fmt.Errorf("invalid --fail-on %q (want error, warning or info)", opts.FailOn)
	}

	var exportFormat export.Format
	if opts.Export != "" {
		if len(args) > 1 {
			return errors.New("--export needs a single source")
		}
		f, err := exportFormatFor(opts.Export, opts.ExportFormat)
		if err != nil {
			return err
		}
		exportFormat = f
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	rs, err := loadRules(cmd, cmdCtx.Cfg, cmdCtx.Logger)
	if err != nil {
		return err
	}

	sources, err := buildSources(cmdCtx.Cfg.Source, args, opts)
	if err != nil {
		return err
	}

	reqs := make([]engine.Request, len(sources))
	for i, src := range sources {
		reqs[i] = engine.Request{Source: src, Rules: rs, Save: true}
	}

	reports, err := cmdCtx.Engine.ValidateAll(cmd.Context(), reqs)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	var all []core.Issue
	for i, rep := range reports {
		if i > 0 {
			r.Println("")
		}
		if opts.Preview > 0 && r.EffectiveMode() != output.ModeJSON {
			renderPreview(r, source.Preview(rep.Dataset, opts.Preview))
		}
		if err := renderReport(r, rep.Run, rep.Issues); err != nil {
			return err
		}
		all = append(all, rep.Issues...)
	}

	if opts.Export != "" {
		if err := writeExport(opts.Export, reports[0].Issues, exportFormat); err != nil {
			return err
		}
		cmdCtx.Logger.Info("issues exported", "path", opts.Export, "format", string(exportFormat))
	}

	if opts.FailOnIssues && failOn(all, threshold) {
		return ErrIssuesFound
	}
	return nil
}

// buildSources turns file arguments into source configs. Flags override the
// configured source; without arguments the configured source is used.
func buildSources(base source.Config, args []string, opts *ValidateOptions) ([]source.Config, error) {
	apply := func(c source.Config) (source.Config, error) {
		if opts.Type != "" {
			c.Type = opts.Type
		}
		if opts.Table != "" {
			c.Table = opts.Table
		}
		if opts.Query != "" {
			c.Query = opts.Query
		}
		if opts.DSN != "" {
			c.DSN = opts.DSN
		}
		if opts.Delimiter != "" {
			c.Delimiter = opts.Delimiter
		}
		if opts.Encoding != "" {
			c.Encoding = opts.Encoding
		}
		intconfig.ApplySourceDefaults(&c)
		if err := intconfig.ValidateSource(&c); err != nil {
			return c, err
		}
		return c, nil
	}

	if len(args) == 0 {
		c, err := apply(base)
		if err != nil {
			return nil, fmt.Errorf("%w (pass a file or set source in leapcheck.yaml)", err)
		}
		return []source.Config{c}, nil
	}

	out := make([]source.Config, 0, len(args))
	for _, path := range args {
		c := base
		c.Path = path
		if opts.Type == "" {
			c.Type = source.DetectType(path)
		}
		c, err := apply(c)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// exportFormatFor picks the explicit format or infers it from the extension.
func exportFormatFor(path, explicit string) (export.Format, error) {
	if explicit != "" {
		return export.ParseFormat(explicit)
	}
	switch filepath.Ext(path) {
	case ".json":
		return export.FormatJSON, nil
	case ".md":
		return export.FormatMarkdown, nil
	case ".html", ".htm":
		return export.FormatHTML, nil
	case ".txt":
		return export.FormatTable, nil
	}
	return export.FormatCSV, nil
}

func writeExport(path string, issues []core.Issue, format export.Format) error {
	f, err := os.Create(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := export.Write(f, issues, format); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write export: %w", err)
	}
	return f.Close()
}
