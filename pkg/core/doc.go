// Package core defines the shared language of the leapcheck system.
//
// This package contains:
//   - Cell values (Value) and their coercions
//   - The tabular Dataset validated by the engine
//   - Rule configuration (RuleSet)
//   - Issues, the Issues collection and the Summary
//   - Service interfaces (Store) and persisted Run records
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
