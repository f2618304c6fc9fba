package validate

import (
	"strings"

	"github.com/leapstack-labs/leapcheck/pkg/check"
)

// Config controls which checks run.
type Config struct {
	// DisabledChecks contains check IDs or names to skip, lower-cased.
	DisabledChecks map[string]bool
}

// NewConfig creates a default configuration with all checks enabled.
func NewConfig() *Config {
	return &Config{
		DisabledChecks: make(map[string]bool),
	}
}

// IsDisabled returns true if the check should be skipped.
func (c *Config) IsDisabled(d check.Def) bool {
	if c == nil {
		return false
	}
	return c.DisabledChecks[strings.ToLower(d.ID)] || c.DisabledChecks[strings.ToLower(d.Name)]
}

// Disable disables checks by ID or name.
func (c *Config) Disable(idsOrNames ...string) *Config {
	for _, id := range idsOrNames {
		c.DisabledChecks[strings.ToLower(strings.TrimSpace(id))] = true
	}
	return c
}
