// Package main provides the CLI for the leapcheck data quality validator.
package main

import (
	"errors"
	"os"

	"github.com/leapstack-labs/leapcheck/internal/cli"
	"github.com/leapstack-labs/leapcheck/internal/cli/commands"
)

func main() {
	os.Exit(exitCode(cli.Execute()))
}

// exitCode maps a command error to the process exit status: 1 when
// --fail-on-issues tripped, 2 for any other failure.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, commands.ErrIssuesFound):
		return 1
	default:
		return 2
	}
}
