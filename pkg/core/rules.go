package core

// ExpectedType names the type a column's values must conform to.
type ExpectedType string

// Supported expected types.
const (
	TypeInt      ExpectedType = "int"
	TypeFloat    ExpectedType = "float"
	TypeDatetime ExpectedType = "datetime"
	TypeString   ExpectedType = "string"
)

// Known reports whether t is one of the supported type names.
func (t ExpectedType) Known() bool {
	switch t {
	case TypeInt, TypeFloat, TypeDatetime, TypeString:
		return true
	}
	return false
}

// TypeRule expects every non-missing value of Column to conform to Type.
type TypeRule struct {
	Column string
	Type   ExpectedType
}

// RangeRule bounds the numeric values of Column. Either bound may be absent.
type RangeRule struct {
	Column string
	Min    Optional[float64]
	Max    Optional[float64]
}

// AllowedRule restricts the non-missing values of Column to Values.
// Membership uses Value.Equal, so it is type-sensitive.
type AllowedRule struct {
	Column string
	Values []Value
}

// CustomCheck is a boolean expression evaluated against every row.
type CustomCheck struct {
	Name string
	Expr string
}

// RuleSet is the complete rule configuration for one validation run.
// Sub-rules are independent of each other. Per-column rules are ordered so
// that results are reproducible.
type RuleSet struct {
	RequiredColumns []string
	ExpectedTypes   []TypeRule
	Ranges          []RangeRule
	AllowedValues   []AllowedRule

	// UniqueKey selects keyed duplicate detection. When absent or empty the
	// whole row is compared instead.
	UniqueKey Optional[[]string]

	// EmailColumns are checked for a minimal address shape. Absent means no
	// column is checked.
	EmailColumns Optional[[]string]

	// Checks run after the built-in checks.
	Checks []CustomCheck
}

// UniqueKeyColumns returns the key columns, or nil for whole-row mode.
func (r RuleSet) UniqueKeyColumns() []string {
	cols, ok := r.UniqueKey.Get()
	if !ok || len(cols) == 0 {
		return nil
	}
	return cols
}
