package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-viper/mapstructure/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/leapstack-labs/leapcheck/pkg/source"
)

// Params holds PostgreSQL-specific configuration.
// Parsed from source.Config.Params using mapstructure.
type Params struct {
	SearchPath      string `mapstructure:"search_path"`
	ApplicationName string `mapstructure:"application_name"`
}

// Source reads a table or query from PostgreSQL.
type Source struct {
	source.BaseSQLSource
}

// New creates a new PostgreSQL source instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Source{BaseSQLSource: source.BaseSQLSource{Logger: logger}}
}

// Open connects to PostgreSQL.
func (s *Source) Open(ctx context.Context, cfg source.Config) error {
	connCfg, err := connConfig(cfg)
	if err != nil {
		return err
	}

	s.Logger.Debug("connecting to postgres", slog.String("host", connCfg.Host), slog.String("database", connCfg.Database))

	db := stdlib.OpenDB(*connCfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	s.DB = db
	s.Cfg = cfg
	return nil
}

func connConfig(cfg source.Config) (*pgx.ConnConfig, error) {
	var p Params
	if cfg.Params != nil {
		if err := mapstructure.Decode(cfg.Params, &p); err != nil {
			return nil, fmt.Errorf("failed to decode postgres params: %w", err)
		}
	}

	dsn := cfg.DSN
	if dsn == "" {
		dsn = buildPostgresDSN(cfg)
	}
	connCfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres connection string: %w", err)
	}

	if p.SearchPath != "" {
		connCfg.RuntimeParams["search_path"] = p.SearchPath
	}
	name := p.ApplicationName
	if name == "" {
		name = "leapcheck"
	}
	connCfg.RuntimeParams["application_name"] = name
	return connCfg, nil
}

// buildPostgresDSN constructs a key=value connection string.
func buildPostgresDSN(cfg source.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if cfg.Options != nil {
		if mode, ok := cfg.Options["sslmode"]; ok {
			sslmode = mode
		}
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)

	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}

	return dsn
}

// Ensure Source implements source.Source interface
var _ source.Source = (*Source)(nil)
