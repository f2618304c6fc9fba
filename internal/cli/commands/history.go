package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapcheck/internal/cli/output"
	"github.com/leapstack-labs/leapcheck/internal/state"
	"github.com/leapstack-labs/leapcheck/pkg/core"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded validation runs",
		Long: `List, show and delete validation runs recorded in the history database.

A run ID of "latest" refers to the most recent run.`,
		Example: `  # List the last 20 runs
  leapcheck history list

  # Show the issues of the latest run
  leapcheck history show latest

  # Delete a run
  leapcheck history delete 3f2b...`,
	}

	cmd.AddCommand(newHistoryListCommand())
	cmd.AddCommand(newHistoryShowCommand())
	cmd.AddCommand(newHistoryDeleteCommand())

	return cmd
}

func newHistoryListCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			if err := requireHistory(cmdCtx); err != nil {
				return err
			}

			runs, err := cmdCtx.Engine.Store().ListRuns(limit)
			if err != nil {
				return err
			}
			return renderRunList(cmdCtx.Renderer, runs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs (0 for all)")
	return cmd
}

func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id|latest>",
		Short: "Show the report of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			if err := requireHistory(cmdCtx); err != nil {
				return err
			}

			run, issues, err := lookupRun(cmdCtx.Engine.Store(), args[0])
			if err != nil {
				return err
			}
			return renderReport(cmdCtx.Renderer, run, issues)
		},
	}
}

func newHistoryDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>...",
		Short: "Delete recorded runs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			if err := requireHistory(cmdCtx); err != nil {
				return err
			}

			for _, id := range args {
				if err := cmdCtx.Engine.Store().DeleteRun(id); err != nil {
					return err
				}
				cmdCtx.Renderer.StatusLine(id, "success", "deleted")
			}
			return nil
		},
	}
}

// lookupRun loads a run and its issues; "latest" names the newest run.
func lookupRun(store *state.SQLiteStore, id string) (*core.Run, []core.Issue, error) {
	var run *core.Run
	var err error
	if id == "latest" {
		run, err = store.GetLatestRun()
		if err == nil && run == nil {
			err = errors.New("no runs recorded yet")
		}
	} else {
		run, err = store.GetRun(id)
	}
	if err != nil {
		return nil, nil, err
	}

	issues, err := store.GetIssues(run.ID)
	if err != nil {
		return nil, nil, err
	}
	return run, issues, nil
}

func renderRunList(r *output.Renderer, runs []*core.Run) error {
	if r.EffectiveMode() == output.ModeJSON {
		reports := make([]runReport, len(runs))
		for i, run := range runs {
			reports[i] = newRunReport(run, nil)
			reports[i].Issues = nil
		}
		return r.JSON(reports)
	}

	if len(runs) == 0 {
		r.Muted("No runs recorded yet")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Source", "Rows", "Cols", "Issues", "Created", "Duration"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			run.ID,
			run.Source,
			run.Summary.Rows,
			run.Summary.Columns,
			run.Summary.TotalIssues,
			run.CreatedAt.Local().Format(time.DateTime),
			run.Duration.Round(time.Millisecond).String(),
		})
	}

	if r.EffectiveMode() == output.ModeMarkdown {
		t.RenderMarkdown()
	} else {
		t.Render()
	}
	r.Println("")
	r.Muted(fmt.Sprintf("(%s)", plural(len(runs), "run")))
	return nil
}
