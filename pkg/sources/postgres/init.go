// Package postgres provides a PostgreSQL source for leapcheck.
//
//	import _ "github.com/leapstack-labs/leapcheck/pkg/sources/postgres"
package postgres

import (
	"log/slog"

	"github.com/leapstack-labs/leapcheck/pkg/source"
)

func init() {
	source.Register("postgres", func(logger *slog.Logger) source.Source { return New(logger) })
}
