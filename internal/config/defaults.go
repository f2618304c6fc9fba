package config

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/leapcheck/pkg/source"
)

// Default configuration values.
const (
	DefaultRulesFile   = "rules.yaml"
	DefaultStateFile   = ".leapcheck/history.db"
	DefaultWorkers     = 4
	DefaultServePort   = 8765
	DefaultMaxUploadMB = 32
	DefaultDebounce    = 300 * time.Millisecond
)

// ApplySourceDefaults infers the source type from the path when it is not
// set and applies type-specific defaults.
func ApplySourceDefaults(s *source.Config) {
	if s == nil {
		return
	}
	if s.Type == "" && s.Path != "" {
		s.Type = source.DetectType(s.Path)
	}
	if s.Type == "postgres" && s.Port == 0 && s.DSN == "" {
		s.Port = 5432
	}
}

// ValidateSource checks that a source configuration can be opened.
func ValidateSource(s *source.Config) error {
	if s == nil || (s.Type == "" && s.Path == "") {
		return fmt.Errorf("no data source configured")
	}
	if s.Type == "" {
		return fmt.Errorf("cannot infer source type from %q; set source.type", s.Path)
	}
	if !source.IsRegistered(s.Type) {
		return &source.UnknownSourceError{Type: s.Type, Available: source.ListSources()}
	}
	return nil
}
