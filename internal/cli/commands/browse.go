package commands

import (
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapcheck/internal/engine"
	"github.com/leapstack-labs/leapcheck/internal/tui"
)

// NewBrowseCommand creates the browse command.
func NewBrowseCommand() *cobra.Command {
	var runID string
	opts := &ValidateOptions{}

	cmd := &cobra.Command{
		Use:   "browse [file]",
		Short: "Browse issues interactively",
		Long: `Open an interactive table of issues.

With a file (or the configured source) the data is validated first.
With --run a recorded run is opened instead. Use tab and shift+tab to filter
by issue kind, the arrow keys to scroll and q to quit.`,
		Example: `  # Validate and browse
  leapcheck browse data/people.csv

  # Browse the latest recorded run
  leapcheck browse --run latest`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd, args, runID, opts)
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Browse a recorded run (ID or latest)")
	cmd.Flags().StringVar(&opts.Type, "type", "", "Source type")
	cmd.Flags().StringVar(&opts.Delimiter, "delimiter", "", "Field delimiter for delimited text")
	cmd.Flags().StringVar(&opts.Encoding, "encoding", "", "Character encoding for delimited text")

	return cmd
}

func runBrowse(cmd *cobra.Command, args []string, runID string, opts *ValidateOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	var model tui.Model
	noColor := termenv.EnvNoColor()

	if runID != "" {
		if err := requireHistory(cmdCtx); err != nil {
			return err
		}
		run, issues, err := lookupRun(cmdCtx.Engine.Store(), runID)
		if err != nil {
			return err
		}
		model = tui.NewModel(run.Source, run.Summary, issues, tui.Options{NoColor: noColor})
	} else {
		rs, err := loadRules(cmd, cmdCtx.Cfg, cmdCtx.Logger)
		if err != nil {
			return err
		}
		sources, err := buildSources(cmdCtx.Cfg.Source, args, opts)
		if err != nil {
			return err
		}
		rep, err := cmdCtx.Engine.Validate(cmd.Context(), engine.Request{Source: sources[0], Rules: rs, Save: true})
		if err != nil {
			return err
		}
		model = tui.NewModel(rep.Run.Source, rep.Run.Summary, rep.Issues, tui.Options{NoColor: noColor})
	}

	return tui.Run(cmd.InOrStdin(), cmd.OutOrStdout(), model)
}
