// Package s3 provides a source that reads CSV objects from Amazon S3 and
// S3-compatible services.
//
//	import _ "github.com/leapstack-labs/leapcheck/pkg/sources/s3"
package s3

import (
	"log/slog"

	"github.com/leapstack-labs/leapcheck/pkg/source"
)

func init() {
	source.Register("s3", func(logger *slog.Logger) source.Source { return New(logger) })
}
