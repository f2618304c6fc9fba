// Package sqlite provides a SQLite source for leapcheck.
//
//	import _ "github.com/leapstack-labs/leapcheck/pkg/sources/sqlite"
package sqlite

import (
	"log/slog"

	"github.com/leapstack-labs/leapcheck/pkg/source"
)

func init() {
	source.Register("sqlite", func(logger *slog.Logger) source.Source { return New(logger) })
}
