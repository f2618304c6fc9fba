package source

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapcheck/pkg/core"
)

// BaseSQLSource provides common database/sql functionality for sources.
// Embed this struct in concrete SQL sources to get Close, Load and
// LoadQuery; the embedding type only has to connect.
type BaseSQLSource struct {
	DB     *sql.DB
	Cfg    Config
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLSource) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLSource) IsConnected() bool {
	return b.DB != nil
}

// Load reads the configured table or query.
func (b *BaseSQLSource) Load(ctx context.Context) (*core.Dataset, error) {
	query, err := SelectQuery(b.Cfg)
	if err != nil {
		return nil, err
	}
	return b.LoadQuery(ctx, query)
}

// LoadQuery runs query and converts every row into a dataset row. Cells
// are converted with core.FromGo, so NULL becomes Missing.
func (b *BaseSQLSource) LoadQuery(ctx context.Context, query string, args ...any) (*core.Dataset, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	if b.Logger != nil {
		b.Logger.Debug("loading dataset", slog.String("query", query))
	}

	rows, err := b.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return ScanRows(rows)
}

// ScanRows drains rows into a dataset. Duplicate result column names are
// made unique the same way file headers are.
func ScanRows(rows *sql.Rows) (*core.Dataset, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	var data [][]core.Value
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make([]core.Value, len(cols))
		for i, v := range raw {
			row[i] = core.FromGo(v)
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return core.NewDataset(UniqueNames(cols), data)
}

// SelectQuery returns the query that reads cfg's data: cfg.Query when set,
// otherwise a SELECT over the quoted cfg.Table.
func SelectQuery(cfg Config) (string, error) {
	if q := strings.TrimSpace(cfg.Query); q != "" {
		return q, nil
	}
	if cfg.Table == "" {
		return "", fmt.Errorf("%s source needs a table or a query", cfg.Type)
	}
	return "SELECT * FROM " + QuoteQualified(cfg.Table), nil
}

// QuoteQualified double-quotes each dot-separated part of a table name.
func QuoteQualified(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}
