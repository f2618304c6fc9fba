package check

import "github.com/leapstack-labs/leapcheck/pkg/core"

// AllowedValues reports values outside a column's allow-list.
var AllowedValues = Def{
	ID:          "DQ06",
	Name:        "conformance.allowed_values",
	Group:       "conformance",
	Description: "Non-missing values must be members of the allowed set.",
	Kinds:       []core.Kind{core.KindValueNotAllowed},
	Check:       checkAllowedValues,

	Rationale: `Membership is exact and type-sensitive. Missing values are exempt;
combine with required_columns to reject them too.`,
	Example: `allowed_values:
  country: [SK, CZ, AT, HU]`,
}

func checkAllowedValues(ds *core.Dataset, rules core.RuleSet, issues *core.Issues) {
	for _, rule := range rules.AllowedValues {
		j, ok := ds.ColumnIndex(rule.Column)
		if !ok {
			continue
		}
		allowed := make(map[string]bool, len(rule.Values))
		for _, v := range rule.Values {
			allowed[v.Key()] = true
		}
		expected := core.List(rule.Values...)
		for i := 0; i < ds.NumRows(); i++ {
			v := ds.Cell(i, j)
			if v.IsMissing() || allowed[v.Key()] {
				continue
			}
			issues.Add(core.NewIssue(core.KindValueNotAllowed).
				AtRow(i).
				InColumn(rule.Column).
				WithValue(v).
				WithExpected(expected))
		}
	}
}
