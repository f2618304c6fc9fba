// Package duckdb provides a DuckDB-backed source for leapcheck.
//
// This file registers the source with the source registry.
// Import this package with a blank identifier to register it:
//
//	import _ "github.com/leapstack-labs/leapcheck/pkg/sources/duckdb"
package duckdb

import (
	"log/slog"

	"github.com/leapstack-labs/leapcheck/pkg/source"
)

func init() {
	source.Register("duckdb", func(logger *slog.Logger) source.Source { return New(logger) })
}
