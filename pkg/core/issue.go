package core

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// Kind
// =============================================================================

// Kind identifies the category of a violation.
type Kind string

// Issue kinds reported by the built-in checks.
const (
	KindMissingRequiredColumn Kind = "missing_required_column"
	KindMissingValue          Kind = "missing_value"
	KindMissingKeyColumn      Kind = "missing_key_column"
	KindDuplicateKey          Kind = "duplicate_key"
	KindDuplicateRow          Kind = "duplicate_row"
	KindTypeMismatch          Kind = "type_mismatch"
	KindUnknownExpectedType   Kind = "unknown_expected_type"
	KindBelowMin              Kind = "below_min"
	KindAboveMax              Kind = "above_max"
	KindValueNotAllowed       Kind = "value_not_allowed"
	KindInvalidEmail          Kind = "invalid_email"

	// Custom expression checks.
	KindCheckFailed  Kind = "check_failed"
	KindCheckError   Kind = "check_error"
	KindInvalidCheck Kind = "invalid_check"
)

// AllKinds lists every kind in reporting order.
func AllKinds() []Kind {
	return []Kind{
		KindMissingRequiredColumn, KindMissingValue, KindMissingKeyColumn,
		KindDuplicateKey, KindDuplicateRow, KindTypeMismatch,
		KindUnknownExpectedType, KindBelowMin, KindAboveMax,
		KindValueNotAllowed, KindInvalidEmail,
		KindCheckFailed, KindCheckError, KindInvalidCheck,
	}
}

// Severity returns the default severity of the kind.
func (k Kind) Severity() Severity {
	switch k {
	case KindMissingRequiredColumn, KindMissingKeyColumn, KindUnknownExpectedType,
		KindInvalidCheck, KindCheckError:
		return SeverityError
	default:
		return SeverityWarning
	}
}

// =============================================================================
// Issue
// =============================================================================

// Issue is one detected violation. Issues are values; the With* methods
// return modified copies.
type Issue struct {
	// Row is the zero-based row index; None for dataset or column level issues.
	Row Optional[int]
	// Column is None when the issue spans no single column.
	Column Optional[string]
	Kind   Kind
	// Value is the offending value, Missing when not applicable.
	Value Value
	// Expected is the rule parameter the value was checked against:
	// a type name, a bound, an allowed set or an expression.
	Expected Value
}

// NewIssue starts a dataset-level issue of the given kind.
func NewIssue(kind Kind) Issue {
	return Issue{Kind: kind}
}

// AtRow returns a copy of i scoped to a row.
func (i Issue) AtRow(row int) Issue {
	i.Row = Some(row)
	return i
}

// InColumn returns a copy of i scoped to a column.
func (i Issue) InColumn(column string) Issue {
	i.Column = Some(column)
	return i
}

// WithValue returns a copy of i carrying the offending value.
func (i Issue) WithValue(v Value) Issue {
	i.Value = v
	return i
}

// WithExpected returns a copy of i carrying the rule parameter.
func (i Issue) WithExpected(v Value) Issue {
	i.Expected = v
	return i
}

// Label returns a human-readable description of the issue.
func (i Issue) Label() string {
	switch i.Kind {
	case KindMissingRequiredColumn:
		return "Missing required column"
	case KindMissingValue:
		return "Missing value"
	case KindMissingKeyColumn:
		return "Missing key column for duplicate check"
	case KindDuplicateKey:
		return "Duplicate key"
	case KindDuplicateRow:
		return "Duplicate row (entire row)"
	case KindTypeMismatch:
		return fmt.Sprintf("Type mismatch (expected %s)", i.Expected.Text())
	case KindUnknownExpectedType:
		return fmt.Sprintf("Unknown expected type '%s'", i.Expected.Text())
	case KindBelowMin:
		return fmt.Sprintf("Value below min (%s)", i.Expected.Text())
	case KindAboveMax:
		return fmt.Sprintf("Value above max (%s)", i.Expected.Text())
	case KindValueNotAllowed:
		return fmt.Sprintf("Value not allowed (allowed=%s)", i.Expected.Text())
	case KindInvalidEmail:
		return "Invalid email (missing '@')"
	case KindCheckFailed:
		return fmt.Sprintf("Check failed (%s)", i.Expected.Text())
	case KindCheckError:
		return fmt.Sprintf("Check error (%s)", i.Expected.Text())
	case KindInvalidCheck:
		return fmt.Sprintf("Invalid check expression (%s)", i.Expected.Text())
	default:
		return string(i.Kind)
	}
}

// String implements fmt.Stringer.
func (i Issue) String() string {
	var b strings.Builder
	if row, ok := i.Row.Get(); ok {
		fmt.Fprintf(&b, "row %d: ", row)
	}
	if col, ok := i.Column.Get(); ok {
		fmt.Fprintf(&b, "%s: ", col)
	}
	b.WriteString(i.Label())
	if !i.Value.IsMissing() {
		fmt.Fprintf(&b, ": %s", i.Value.Text())
	}
	return b.String()
}

type issueJSON struct {
	Row      Optional[int]    `json:"row_index"`
	Column   Optional[string] `json:"column"`
	Kind     Kind             `json:"issue"`
	Value    Value            `json:"value"`
	Expected *Value           `json:"expected,omitempty"`
}

// MarshalJSON encodes the issue with the export field names; expected is
// omitted when not set.
func (i Issue) MarshalJSON() ([]byte, error) {
	out := issueJSON{Row: i.Row, Column: i.Column, Kind: i.Kind, Value: i.Value}
	if !i.Expected.IsMissing() {
		out.Expected = &i.Expected
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (i *Issue) UnmarshalJSON(data []byte) error {
	var in issueJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*i = Issue{Row: in.Row, Column: in.Column, Kind: in.Kind, Value: in.Value}
	if in.Expected != nil {
		i.Expected = *in.Expected
	}
	return nil
}

// =============================================================================
// Issues
// =============================================================================

// Issues is an ordered, append-only collection of issues.
// The zero value is ready to use.
type Issues struct {
	items []Issue
}

// Add appends an issue.
func (c *Issues) Add(i Issue) {
	c.items = append(c.items, i)
}

// Len returns the number of issues.
func (c *Issues) Len() int { return len(c.items) }

// All returns a copy of the issues in discovery order.
func (c *Issues) All() []Issue {
	return append([]Issue(nil), c.items...)
}

// CountByKind returns the occurrence count of each kind in issues.
func CountByKind(issues []Issue) map[Kind]int {
	counts := make(map[Kind]int)
	for _, i := range issues {
		counts[i.Kind]++
	}
	return counts
}

// FilterIssues returns the issues whose kind is one of kinds, keeping order.
func FilterIssues(issues []Issue, kinds ...Kind) []Issue {
	want := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	var out []Issue
	for _, i := range issues {
		if want[i.Kind] {
			out = append(out, i)
		}
	}
	return out
}

// MaxSeverity returns the most severe kind severity among issues, and
// false when there are none.
func MaxSeverity(issues []Issue) (Severity, bool) {
	if len(issues) == 0 {
		return SeverityInfo, false
	}
	worst := SeverityInfo
	for _, i := range issues {
		if s := i.Kind.Severity(); s < worst {
			worst = s
		}
	}
	return worst, true
}

// =============================================================================
// Summary
// =============================================================================

// Summary aggregates one validation run.
type Summary struct {
	Rows        int          `json:"rows"`
	Columns     int          `json:"cols"`
	TotalIssues int          `json:"total_issues"`
	IssueTypes  map[Kind]int `json:"issue_types"`
}

// Summarize computes the summary of issues found in ds.
func Summarize(ds *Dataset, issues []Issue) Summary {
	return Summary{
		Rows:        ds.NumRows(),
		Columns:     ds.NumColumns(),
		TotalIssues: len(issues),
		IssueTypes:  CountByKind(issues),
	}
}

// KindCount is one entry of Summary.Ranked.
type KindCount struct {
	Kind  Kind
	Count int
}

// Ranked returns the issue types ordered by count descending, then by kind.
func (s Summary) Ranked() []KindCount {
	out := make([]KindCount, 0, len(s.IssueTypes))
	for k, n := range s.IssueTypes {
		out = append(out, KindCount{Kind: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}
