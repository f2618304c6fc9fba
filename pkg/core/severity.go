package core

import "strings"

// =============================================================================
// Severity
// =============================================================================

// Severity ranks issue kinds for exit-code thresholds and display.
type Severity int

// Severity levels, most severe first.
const (
	// SeverityError marks rule configuration problems and failed checks that
	// prevent part of the dataset from being validated.
	SeverityError Severity = iota
	// SeverityWarning marks data violations.
	SeverityWarning
	// SeverityInfo is informational.
	SeverityInfo
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// ParseSeverity converts a string to a Severity value.
// Returns the severity and true if valid, or SeverityWarning and false if invalid.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return SeverityError, true
	case "warning", "warn":
		return SeverityWarning, true
	case "info":
		return SeverityInfo, true
	default:
		return SeverityWarning, false
	}
}

// AtLeast reports whether s is as severe as threshold or more.
func (s Severity) AtLeast(threshold Severity) bool {
	return s <= threshold
}
