package commands

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	// sqlite driver for history database queries.
	_ "modernc.org/sqlite"
)

// openStateDBReadOnly opens the history database in read-only mode.
func openStateDBReadOnly(path string) (*sql.DB, error) {
	return sql.Open("sqlite", "file:"+path+"?mode=ro")
}

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Format string
	Input  string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Query the history database",
		Long: `Run SQL against the leapcheck history database.

The database holds the runs table (one row per validation), the issues table
(one row per issue) and the issue_counts view. The database is opened
read-only.

When invoked without arguments on a terminal, enters interactive REPL mode.`,
		Example: `  # Issues per kind for the latest runs
  leapcheck query "SELECT kind, n FROM issue_counts WHERE run_id = (SELECT id FROM runs ORDER BY created_at DESC LIMIT 1)"

  # List available tables
  leapcheck query tables

  # Show schema for a table
  leapcheck query schema issues

  # Issue kinds across all runs
  leapcheck query kinds

  # Output as JSON
  leapcheck query "SELECT * FROM runs" --format json

  # Interactive mode
  leapcheck query`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Format, "format", "f", "table", "Output format: table, json, csv, md")
	cmd.PersistentFlags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")

	cmd.AddCommand(newQueryTablesCommand(opts))
	cmd.AddCommand(newQueryViewsCommand(opts))
	cmd.AddCommand(newQuerySchemaCommand(opts))
	cmd.AddCommand(newQueryKindsCommand(opts))

	return cmd
}

// historyPath returns the history database path, failing when it does not exist yet.
func historyPath(cmd *cobra.Command) (string, error) {
	cmdCtx := NewCommandContextWithoutEngine(cmd)
	statePath := resolveStatePath(cmdCtx.Cfg)
	if _, err := os.Stat(statePath); os.IsNotExist(err) {
		return "", fmt.Errorf("history database not found at %s (run 'leapcheck validate' first)", statePath)
	}
	return statePath, nil
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	statePath, err := historyPath(cmd)
	if err != nil {
		return err
	}

	var sqlQuery string
	switch {
	case len(args) > 0:
		sqlQuery = strings.Join(args, " ")
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		sqlQuery = string(content)
	case !term.IsTerminal(int(os.Stdin.Fd())): //nolint:gosec // file descriptors fit in int
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlQuery = string(content)
	default:
		return runQueryREPL(cmd, statePath, opts)
	}

	return executeAndRender(cmd.Context(), cmd.OutOrStdout(), statePath, sqlQuery, opts.Format)
}

func executeAndRender(ctx context.Context, w io.Writer, statePath, sqlQuery, format string) error {
	db, err := openStateDBReadOnly(statePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	return queryAndRender(ctx, w, db, sqlQuery, format)
}

// queryAndRender runs one query and renders its rows.
func queryAndRender(ctx context.Context, w io.Writer, db *sql.DB, query, format string, args ...any) error {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return renderResults(w, rows, format)
}

func newQueryTablesCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List all tables and views in the history database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHistoryDB(cmd, func(db *sql.DB) error {
				return listTablesFromDB(cmd.Context(), cmd.OutOrStdout(), db, opts.Format, false)
			})
		},
	}
}

func newQueryViewsCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "views",
		Short: "List views only",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHistoryDB(cmd, func(db *sql.DB) error {
				return listTablesFromDB(cmd.Context(), cmd.OutOrStdout(), db, opts.Format, true)
			})
		},
	}
}

func newQuerySchemaCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <table>",
		Short: "Show schema for a table or view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistoryDB(cmd, func(db *sql.DB) error {
				return showSchemaFromDB(cmd.Context(), cmd.OutOrStdout(), db, args[0], opts.Format)
			})
		},
	}
}

// kindsQuery totals issues per kind over all recorded runs.
const kindsQuery = `
	SELECT kind, SUM(n) AS issues, COUNT(DISTINCT run_id) AS runs
	FROM issue_counts
	GROUP BY kind
	ORDER BY issues DESC, kind
`

func newQueryKindsCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "Total issues per kind across all runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHistoryDB(cmd, func(db *sql.DB) error {
				return queryAndRender(cmd.Context(), cmd.OutOrStdout(), db, kindsQuery, opts.Format)
			})
		},
	}
}

func withHistoryDB(cmd *cobra.Command, fn func(db *sql.DB) error) error {
	statePath, err := historyPath(cmd)
	if err != nil {
		return err
	}
	db, err := openStateDBReadOnly(statePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()
	return fn(db)
}
