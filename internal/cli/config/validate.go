package config

import (
	"fmt"
	"slices"

	"github.com/leapstack-labs/leapcheck/internal/cli/output"
	intconfig "github.com/leapstack-labs/leapcheck/internal/config"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.OutputFormat != "" && !slices.Contains(output.Modes(), c.OutputFormat) && c.OutputFormat != "md" {
		return fmt.Errorf("invalid output format %q (want one of %v)", c.OutputFormat, output.Modes())
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Source.Type != "" {
		if err := intconfig.ValidateSource(&c.Source); err != nil {
			return fmt.Errorf("invalid source configuration: %w", err)
		}
	}
	return nil
}
