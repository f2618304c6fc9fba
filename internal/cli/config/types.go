// Package config provides configuration management for the leapcheck CLI.
//
// This package extends the shared project configuration from
// internal/config with CLI-specific fields. The shared types are re-exported
// here via type aliases for convenience.
package config

import (
	intconfig "github.com/leapstack-labs/leapcheck/internal/config"
	"github.com/leapstack-labs/leapcheck/pkg/source"
)

// SourceConfig is an alias for the data source configuration.
type SourceConfig = source.Config

// ServeConfig is an alias for the shared HTTP API configuration.
type ServeConfig = intconfig.ServeConfig

// WatchConfig is an alias for the shared watch configuration.
type WatchConfig = intconfig.WatchConfig

// Config holds all CLI configuration options.
type Config struct {
	Rules          string       `koanf:"rules"`
	Source         SourceConfig `koanf:"source"`
	StatePath      string       `koanf:"state_path"`
	History        bool         `koanf:"history"`
	Workers        int          `koanf:"workers"`
	DisabledChecks []string     `koanf:"disabled_checks"`
	Verbose        bool         `koanf:"verbose"`
	OutputFormat   string       `koanf:"output"`
	Serve          ServeConfig  `koanf:"serve"`
	Watch          WatchConfig  `koanf:"watch"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultRulesFile = intconfig.DefaultRulesFile
	DefaultStateFile = intconfig.DefaultStateFile
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// Project converts the CLI configuration to the shared project form.
func (c *Config) Project() *intconfig.ProjectConfig {
	return &intconfig.ProjectConfig{
		Rules:          c.Rules,
		Source:         c.Source,
		StatePath:      c.StatePath,
		History:        c.History,
		Workers:        c.Workers,
		DisabledChecks: c.DisabledChecks,
		Serve:          c.Serve,
		Watch:          c.Watch,
	}
}

// HistoryPath returns the state path when history is enabled, else "".
func (c *Config) HistoryPath() string {
	if !c.History {
		return ""
	}
	return c.StatePath
}
