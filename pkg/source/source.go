// Package source defines how datasets are loaded for validation.
//
// A Source turns a Config into a *core.Dataset. Concrete sources live in
// pkg/sources/ subdirectories and register themselves by type name:
//
//	import _ "github.com/leapstack-labs/leapcheck/pkg/sources/csv"
package source

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapcheck/pkg/core"
)

// Config describes where a dataset comes from. Which fields matter depends
// on Type; source-specific options go in Params.
type Config struct {
	Type string `koanf:"type" json:"type"`

	// Path is a file path, object URL, or database file.
	Path string `koanf:"path" json:"path,omitempty"`

	// Table or Query select the rows of SQL-backed sources.
	Table string `koanf:"table" json:"table,omitempty"`
	Query string `koanf:"query" json:"query,omitempty"`

	// DSN is a full connection string and wins over the discrete fields.
	DSN      string `koanf:"dsn" json:"-"`
	Host     string `koanf:"host" json:"host,omitempty"`
	Port     int    `koanf:"port" json:"port,omitempty"`
	Database string `koanf:"database" json:"database,omitempty"`
	Username string `koanf:"username" json:"username,omitempty"`
	Password string `koanf:"password" json:"-"`

	// Encoding and Delimiter apply to delimited text.
	Encoding  string `koanf:"encoding" json:"encoding,omitempty"`
	Delimiter string `koanf:"delimiter" json:"delimiter,omitempty"`

	Options map[string]string `koanf:"options" json:"options,omitempty"`
	Params  map[string]any    `koanf:"params" json:"params,omitempty"`
}

// Describe returns a short human-readable name for the configured data.
func (c Config) Describe() string {
	switch {
	case c.Path != "" && c.Table != "":
		return c.Path + ":" + c.Table
	case c.Path != "":
		return c.Path
	case c.Table != "":
		return c.Type + ":" + c.Table
	case c.Query != "":
		return c.Type + ":query"
	default:
		return c.Type
	}
}

// Source loads a dataset.
type Source interface {
	// Open prepares the source using cfg, e.g. connecting to a database.
	Open(ctx context.Context, cfg Config) error

	// Load reads the whole dataset.
	Load(ctx context.Context) (*core.Dataset, error)

	// Close releases any resources held by the source.
	Close() error
}

// Load opens the source registered for cfg.Type, reads the dataset and
// closes the source again. The dataset is named after the configured data.
func Load(ctx context.Context, cfg Config, logger *slog.Logger) (*core.Dataset, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	src, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := src.Open(ctx, cfg); err != nil {
		return nil, err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			logger.Warn("failed to close source", slog.String("type", cfg.Type), slog.String("error", cerr.Error()))
		}
	}()

	ds, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	if ds.Name == "" {
		ds.Name = cfg.Describe()
	}
	logger.Debug("dataset loaded",
		slog.String("source", cfg.Describe()),
		slog.Int("rows", ds.NumRows()),
		slog.Int("cols", ds.NumColumns()))
	return ds, nil
}

// Preview returns at most n leading rows of ds for display.
func Preview(ds *core.Dataset, n int) *core.Dataset {
	if n < 0 {
		n = 0
	}
	return ds.Head(n)
}

// DetectType guesses a source type from a file path. It returns "" when the
// extension is not recognized.
func DetectType(path string) string {
	if strings.HasPrefix(path, "s3://") {
		return "s3"
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".txt":
		return "csv"
	case ".parquet", ".json", ".jsonl", ".ndjson":
		return "duckdb"
	case ".db", ".sqlite", ".sqlite3":
		return "sqlite"
	}
	return ""
}

// UniqueNames makes column names usable as dataset headers: empty names
// become "Unnamed: i" and repeats get a ".n" suffix.
func UniqueNames(names []string) []string {
	out := make([]string, len(names))
	seen := make(map[string]int, len(names))
	taken := make(map[string]bool, len(names))
	for _, n := range names {
		taken[n] = true
	}
	for i, n := range names {
		if n == "" {
			n = fmt.Sprintf("Unnamed: %d", i)
		}
		if cnt, dup := seen[n]; dup {
			base := n
			for {
				cnt++
				n = fmt.Sprintf("%s.%d", base, cnt)
				if !taken[n] {
					break
				}
			}
			seen[base] = cnt
		}
		seen[n] = 0
		taken[n] = true
		out[i] = n
	}
	return out
}
