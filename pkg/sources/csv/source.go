package csv

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/leapcheck/pkg/core"
	"github.com/leapstack-labs/leapcheck/pkg/source"
)

// Source reads a delimited text file from disk.
type Source struct {
	cfg    source.Config
	opts   Options
	logger *slog.Logger
}

// New creates a new CSV source instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Source{logger: logger}
}

// Open validates the configuration. The file itself is read by Load.
func (s *Source) Open(_ context.Context, cfg source.Config) error {
	if cfg.Path == "" {
		return fmt.Errorf("csv source requires a path")
	}
	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	s.cfg = cfg
	s.opts = opts
	return nil
}

// Load reads and types the whole file.
func (s *Source) Load(_ context.Context) (*core.Dataset, error) {
	f, err := os.Open(s.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	defer func() { _ = f.Close() }()

	s.logger.Debug("reading csv",
		slog.String("path", s.cfg.Path),
		slog.String("delimiter", string(s.opts.Delimiter)),
		slog.Bool("infer", !s.opts.NoInfer))

	ds, err := Read(f, s.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.cfg.Path, err)
	}
	ds.Name = s.cfg.Path
	return ds, nil
}

// Close is a no-op; Load closes the file it opens.
func (s *Source) Close() error { return nil }

// Ensure Source implements source.Source interface
var _ source.Source = (*Source)(nil)
