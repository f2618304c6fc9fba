// Package config provides shared configuration types for leapcheck.
// This package is decoupled from CLI concerns so that the HTTP server and
// watcher can read project configuration without pulling in cobra.
package config

import (
	"time"

	"github.com/leapstack-labs/leapcheck/pkg/source"
)

// ProjectConfig is the content of a leapcheck.yaml file.
type ProjectConfig struct {
	Rules          string        `koanf:"rules"`
	Source         source.Config `koanf:"source"`
	StatePath      string        `koanf:"state_path"`
	History        bool          `koanf:"history"`
	Workers        int           `koanf:"workers"`
	DisabledChecks []string      `koanf:"disabled_checks"`
	Serve          ServeConfig   `koanf:"serve"`
	Watch          WatchConfig   `koanf:"watch"`
}

// ServeConfig configures the HTTP API.
type ServeConfig struct {
	Port        int    `koanf:"port"`
	Watch       string `koanf:"watch"` // directory re-validated on change
	MaxUploadMB int    `koanf:"max_upload_mb"`
}

// WatchConfig configures file watching.
type WatchConfig struct {
	Debounce time.Duration `koanf:"debounce"`
}

// ApplyDefaults fills unset fields with their defaults.
func (c *ProjectConfig) ApplyDefaults() {
	if c.Rules == "" {
		c.Rules = DefaultRulesFile
	}
	if c.StatePath == "" {
		c.StatePath = DefaultStateFile
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Serve.Port == 0 {
		c.Serve.Port = DefaultServePort
	}
	if c.Serve.MaxUploadMB <= 0 {
		c.Serve.MaxUploadMB = DefaultMaxUploadMB
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = DefaultDebounce
	}
	ApplySourceDefaults(&c.Source)
}
