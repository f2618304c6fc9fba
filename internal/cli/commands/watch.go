package commands

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapcheck/internal/engine"
	"github.com/leapstack-labs/leapcheck/internal/watch"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	opts := &ValidateOptions{}
	var rulesToo bool

	cmd := &cobra.Command{
		Use:   "watch [file]",
		Short: "Re-validate a dataset whenever it changes",
		Long: `Validate a file, then watch it and validate again after every change.

Saves are debounced (watch.debounce, default 300ms) so that editors writing
in several steps trigger one validation. With --rules-too, changes to the
rules file reload the rules and re-validate as well.`,
		Example: `  # Watch the configured source
  leapcheck watch

  # Watch a file and the rules
  leapcheck watch data/people.csv --rules-too`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args, opts, rulesToo)
		},
	}

	cmd.Flags().StringVar(&opts.Type, "type", "", "Source type (csv, duckdb, sqlite)")
	cmd.Flags().StringVar(&opts.Delimiter, "delimiter", "", "Field delimiter for delimited text")
	cmd.Flags().StringVar(&opts.Encoding, "encoding", "", "Character encoding for delimited text")
	cmd.Flags().BoolVar(&rulesToo, "rules-too", false, "Also re-validate when the rules file changes")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string, opts *ValidateOptions, rulesToo bool) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	sources, err := buildSources(cmdCtx.Cfg.Source, args, opts)
	if err != nil {
		return err
	}
	src := sources[0]
	if src.Path == "" || src.Type == "postgres" {
		return errors.New("watch needs a local file source")
	}

	r := cmdCtx.Renderer
	validateOnce := func(ctx context.Context) {
		rs, err := loadRules(cmd, cmdCtx.Cfg, cmdCtx.Logger)
		if err != nil {
			r.Error(err.Error())
			return
		}
		rep, err := cmdCtx.Engine.Validate(ctx, engine.Request{Source: src, Rules: rs, Save: true})
		if err != nil {
			r.Error(err.Error())
			return
		}
		if err := renderReport(r, rep.Run, rep.Issues); err != nil {
			cmdCtx.Logger.Error("failed to render report", slog.String("error", err.Error()))
		}
		r.Println("")
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	validateOnce(ctx)

	paths := []string{src.Path}
	if rulesToo {
		paths = append(paths, cmdCtx.Cfg.Rules)
	}
	r.Muted("Watching " + src.Describe() + " (Ctrl+C to stop)")

	w := watch.New(watch.Config{
		Paths:    paths,
		Debounce: cmdCtx.Cfg.Watch.Debounce,
		Logger:   cmdCtx.Logger,
	}, func(ctx context.Context, _ string) {
		validateOnce(ctx)
	})
	return w.Run(ctx)
}
