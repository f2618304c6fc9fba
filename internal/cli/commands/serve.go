package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapcheck/internal/server"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Port  int
	Watch string
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the validation HTTP API",
		Long: `Start a local HTTP server for validating uploads and browsing run history.

Endpoints:
  POST /api/validate             validate a multipart CSV upload ("file")
  GET  /api/checks               list the checks
  GET  /api/runs                 list recorded runs
  GET  /api/runs/{id}            run detail with issues ("latest" allowed)
  GET  /api/runs/{id}/issues.csv download the issue table
  GET  /api/runs/stream          server-sent events for new runs
  GET  /healthz                  health check

Uploads without rule fields are validated against the rules file.
With --watch, data files changed in the directory are re-validated and
announced on the event stream.`,
		Example: `  # Start on the default port
  leapcheck serve

  # Custom port, re-validating files in ./data on change
  leapcheck serve --port 3000 --watch data

  # Validate a file with curl
  curl -F file=@people.csv -F required=id,email http://localhost:8765/api/validate`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default: 8765)")
	cmd.Flags().StringVar(&opts.Watch, "watch", "", "Directory to re-validate on change")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	rs, err := loadRules(cmd, cmdCtx.Cfg, cmdCtx.Logger)
	if err != nil {
		return err
	}

	cfg := cmdCtx.Cfg.Serve
	if opts.Port != 0 {
		cfg.Port = opts.Port
	}
	if opts.Watch != "" {
		cfg.Watch = opts.Watch
	}

	srv := server.New(server.Config{
		Engine:         cmdCtx.Engine,
		Rules:          rs,
		Port:           cfg.Port,
		WatchDir:       cfg.Watch,
		Debounce:       cmdCtx.Cfg.Watch.Debounce,
		MaxUploadBytes: int64(cfg.MaxUploadMB) << 20,
		Logger:         cmdCtx.Logger,
	})

	r := cmdCtx.Renderer
	r.Success(fmt.Sprintf("Serving on http://localhost:%d", cfg.Port))
	if cfg.Watch != "" {
		r.Muted("Watching " + cfg.Watch)
	}
	r.Muted("Press Ctrl+C to stop")

	ctx, stop := signalContext(cmd.Context())
	defer stop()
	return srv.Serve(ctx)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
