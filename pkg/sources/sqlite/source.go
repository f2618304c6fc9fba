package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/leapcheck/pkg/source"

	_ "modernc.org/sqlite" // sqlite driver
)

// Source reads a table or query from a SQLite database file.
type Source struct {
	source.BaseSQLSource
}

// New creates a new SQLite source instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Source{BaseSQLSource: source.BaseSQLSource{Logger: logger}}
}

// Open connects to the database at cfg.Path (or cfg.Database). The file
// must already exist; it is never created.
func (s *Source) Open(ctx context.Context, cfg source.Config) error {
	path := cfg.Path
	if path == "" {
		path = cfg.Database
	}
	if path == "" {
		return fmt.Errorf("sqlite source requires a path")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite: %w", err)
	}

	s.DB = db
	s.Cfg = cfg
	s.Logger.Debug("connected to sqlite", slog.String("path", path))
	return nil
}

// Ensure Source implements source.Source interface
var _ source.Source = (*Source)(nil)
