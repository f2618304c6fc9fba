// Package engine ties data sources, rules, the validator and run history
// together. The CLI, the watcher and the HTTP server all validate through an
// Engine.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	starctx "github.com/leapstack-labs/leapcheck/internal/starlark"
	"github.com/leapstack-labs/leapcheck/internal/state"
	"github.com/leapstack-labs/leapcheck/pkg/core"
	"github.com/leapstack-labs/leapcheck/pkg/rules"
	"github.com/leapstack-labs/leapcheck/pkg/source"
	"github.com/leapstack-labs/leapcheck/pkg/validate"

	// Register the built-in data sources.
	_ "github.com/leapstack-labs/leapcheck/pkg/sources/csv"
	_ "github.com/leapstack-labs/leapcheck/pkg/sources/duckdb"
	_ "github.com/leapstack-labs/leapcheck/pkg/sources/postgres"
	_ "github.com/leapstack-labs/leapcheck/pkg/sources/s3"
	_ "github.com/leapstack-labs/leapcheck/pkg/sources/sqlite"
)

// Config holds engine configuration.
type Config struct {
	// StatePath is the run history database. Empty disables history.
	StatePath string
	// Workers bounds concurrent validations in ValidateAll and the
	// goroutines used for custom checks.
	Workers int
	// MaxSteps bounds the Starlark steps of one custom check on one row.
	MaxSteps uint64
	// DisabledChecks lists check IDs or names to skip.
	DisabledChecks []string
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Engine validates datasets and records the runs.
type Engine struct {
	store     *state.SQLiteStore
	validator *validate.Validator
	workers   int
	logger    *slog.Logger
}

// Request describes one validation.
type Request struct {
	// Source is loaded when Dataset is nil.
	Source  source.Config
	Dataset *core.Dataset
	Rules   core.RuleSet
	// Save records the run when history is enabled.
	Save bool
}

// Report is the outcome of one validation.
type Report struct {
	Run     *core.Run
	Dataset *core.Dataset
	Issues  []core.Issue
}

// Summary returns the aggregate counts of the report.
func (r *Report) Summary() core.Summary {
	return r.Run.Summary
}

// New creates an engine. The history database is opened and migrated when
// cfg.StatePath is set.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	var store *state.SQLiteStore
	if cfg.StatePath != "" {
		if err := ensureDir(cfg.StatePath); err != nil {
			return nil, err
		}
		store = state.NewSQLiteStore(logger)
		if err := store.Open(cfg.StatePath); err != nil {
			return nil, fmt.Errorf("failed to open state store: %w", err)
		}
		if err := store.InitSchema(); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize state schema: %w", err)
		}
	}

	evalOpts := []starctx.Option{starctx.WithWorkers(workers), starctx.WithLogger(logger)}
	if cfg.MaxSteps > 0 {
		evalOpts = append(evalOpts, starctx.WithMaxSteps(cfg.MaxSteps))
	}
	evaluator := starctx.NewEvaluator(evalOpts...)

	v := validate.New(nil,
		validate.WithLogger(logger),
		validate.WithChecks(evaluator.Def()),
		validate.WithDisabled(cfg.DisabledChecks...),
	)

	logger.Debug("engine initialized",
		slog.String("state_path", cfg.StatePath),
		slog.Int("workers", workers),
		slog.Int("checks", len(v.Checks())))

	return &Engine{store: store, validator: v, workers: workers, logger: logger}, nil
}

// Close releases the history database.
func (e *Engine) Close() error {
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// Store returns the history store, or nil when history is disabled.
func (e *Engine) Store() *state.SQLiteStore {
	return e.store
}

// Validator returns the configured validator.
func (e *Engine) Validator() *validate.Validator {
	return e.validator
}

// Validate loads the dataset if needed, runs every enabled check and
// records the run when requested.
func (e *Engine) Validate(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()

	ds := req.Dataset
	name := req.Source.Describe()
	if ds == nil {
		var err error
		ds, err = source.Load(ctx, req.Source, e.logger)
		if err != nil {
			return nil, err
		}
	} else if ds.Name != "" {
		name = ds.Name
	}

	res, err := e.validator.Validate(ds, req.Rules)
	if err != nil {
		return nil, fmt.Errorf("failed to validate %s: %w", name, err)
	}

	run := &core.Run{
		Source:    name,
		RulesHash: rules.Hash(req.Rules),
		Summary:   res.Summary,
		CreatedAt: time.Now().UTC(),
		Duration:  time.Since(start),
	}

	if req.Save && e.store != nil {
		if err := e.store.SaveRun(run, res.Issues); err != nil {
			return nil, fmt.Errorf("failed to record run: %w", err)
		}
	}

	e.logger.Info("validated",
		slog.String("source", name),
		slog.Int("rows", res.Summary.Rows),
		slog.Int("issues", res.Summary.TotalIssues),
		slog.String("run_id", run.ID))

	return &Report{Run: run, Dataset: ds, Issues: res.Issues}, nil
}

// ValidateAll runs the requests concurrently, at most Workers at a time.
// Reports are returned in request order; the first error cancels the rest.
func (e *Engine) ValidateAll(ctx context.Context, reqs []Request) ([]*Report, error) {
	reports := make([]*Report, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, req := range reqs {
		g.Go(func() error {
			rep, err := e.Validate(ctx, req)
			if err != nil {
				return err
			}
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func ensureDir(statePath string) error {
	if statePath == ":memory:" {
		return nil
	}
	dir := filepath.Dir(statePath)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	return nil
}
