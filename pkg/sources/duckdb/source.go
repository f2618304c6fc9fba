package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapcheck/pkg/core"
	"github.com/leapstack-labs/leapcheck/pkg/source"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Source reads a table, a query, or a data file (CSV, Parquet, JSON)
// through DuckDB.
type Source struct {
	source.BaseSQLSource
}

// New creates a new DuckDB source instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Source{BaseSQLSource: source.BaseSQLSource{Logger: logger}}
}

// Open connects to DuckDB and applies params. The database is cfg.Database,
// cfg.Path when it names a database file, or an in-memory database.
func (s *Source) Open(ctx context.Context, cfg source.Config) error {
	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}

	dbPath := databasePath(cfg)
	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}
	s.DB = db
	s.Cfg = cfg

	if err := s.applyParams(ctx, params); err != nil {
		_ = s.Close()
		s.DB = nil
		return err
	}
	s.Logger.Debug("connected to duckdb", slog.String("database", dbPath))
	return nil
}

func (s *Source) applyParams(ctx context.Context, p *Params) error {
	for _, ext := range p.Extensions {
		if _, err := s.DB.ExecContext(ctx, fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext)); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}
	for key, val := range p.Settings {
		if _, err := s.DB.ExecContext(ctx, fmt.Sprintf("SET %s = %s", key, quote(val))); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", key, err)
		}
	}
	for _, secret := range p.Secrets {
		if _, err := s.DB.ExecContext(ctx, buildCreateSecretSQL(secret)); err != nil {
			return fmt.Errorf("failed to create %s secret: %w", secret.Type, err)
		}
	}
	return nil
}

// Load reads the configured query, table or data file.
func (s *Source) Load(ctx context.Context) (*core.Dataset, error) {
	query, err := selectQuery(s.Cfg)
	if err != nil {
		return nil, err
	}
	return s.LoadQuery(ctx, query)
}

func selectQuery(cfg source.Config) (string, error) {
	if cfg.Query != "" || cfg.Table != "" {
		return source.SelectQuery(cfg)
	}
	if cfg.Path == "" || isDatabaseFile(cfg.Path) {
		return "", fmt.Errorf("duckdb source needs a table, a query, or a data file path")
	}

	path := cfg.Path
	if !strings.Contains(path, "://") {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = abs
	}

	var reader string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		reader = "read_parquet(%s)"
	case ".json", ".jsonl", ".ndjson":
		reader = "read_json_auto(%s)"
	default:
		reader = "read_csv_auto(%s, header=true)"
	}
	return "SELECT * FROM " + fmt.Sprintf(reader, quote(path)), nil
}

func databasePath(cfg source.Config) string {
	if cfg.Database != "" {
		return cfg.Database
	}
	if isDatabaseFile(cfg.Path) {
		return cfg.Path
	}
	return ":memory:"
}

func isDatabaseFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".duckdb", ".ddb":
		return true
	}
	return path == ":memory:"
}

// Ensure Source implements source.Source interface
var _ source.Source = (*Source)(nil)
