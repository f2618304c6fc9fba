package check

import "github.com/leapstack-labs/leapcheck/pkg/core"

// Ranges reports numeric values outside the configured bounds.
var Ranges = Def{
	ID:          "DQ05",
	Name:        "conformance.ranges",
	Group:       "conformance",
	Description: "Numeric values must lie within the configured min and max, inclusive.",
	Kinds:       []core.Kind{core.KindBelowMin, core.KindAboveMax},
	Check:       checkRanges,

	Rationale: `Only values that coerce to a number are compared; anything else is
left to the type check. Each bound is evaluated on its own, so a rule with
min greater than max flags values on both sides.`,
	Example: `ranges:
  age: {min: 0, max: 120}`,
}

func checkRanges(ds *core.Dataset, rules core.RuleSet, issues *core.Issues) {
	for _, rule := range rules.Ranges {
		j, ok := ds.ColumnIndex(rule.Column)
		if !ok {
			continue
		}
		if lo, ok := rule.Min.Get(); ok {
			flagOutOfRange(ds, j, rule.Column, core.KindBelowMin, lo, func(n float64) bool { return n < lo }, issues)
		}
		if hi, ok := rule.Max.Get(); ok {
			flagOutOfRange(ds, j, rule.Column, core.KindAboveMax, hi, func(n float64) bool { return n > hi }, issues)
		}
	}
}

func flagOutOfRange(ds *core.Dataset, j int, column string, kind core.Kind, bound float64, out func(float64) bool, issues *core.Issues) {
	threshold := core.Float(bound)
	for i := 0; i < ds.NumRows(); i++ {
		v := ds.Cell(i, j)
		n, ok := v.AsNumber()
		if !ok || !out(n) {
			continue
		}
		issues.Add(core.NewIssue(kind).
			AtRow(i).
			InColumn(column).
			WithValue(v).
			WithExpected(threshold))
	}
}
