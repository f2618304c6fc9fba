package check

import "github.com/leapstack-labs/leapcheck/pkg/core"

// Types reports values that do not conform to the expected column type.
var Types = Def{
	ID:          "DQ04",
	Name:        "conformance.types",
	Group:       "conformance",
	Description: "Non-missing values must be interpretable as the expected type (int, float, datetime, string).",
	Kinds:       []core.Kind{core.KindTypeMismatch, core.KindUnknownExpectedType},
	Check:       checkTypes,

	Rationale: `int and float accept anything numeric, including padded numeric
text. datetime accepts common date layouts but rejects day/month orders that
cannot be told apart. string rejects only structured values such as lists.
An unknown type name is reported once and its column is skipped.`,
	Example: `expected_types:
  id: int
  signup: datetime`,
}

func checkTypes(ds *core.Dataset, rules core.RuleSet, issues *core.Issues) {
	for _, rule := range rules.ExpectedTypes {
		j, ok := ds.ColumnIndex(rule.Column)
		if !ok {
			continue
		}
		if !rule.Type.Known() {
			issues.Add(core.NewIssue(core.KindUnknownExpectedType).
				InColumn(rule.Column).
				WithExpected(core.String(string(rule.Type))))
			continue
		}
		expected := core.String(string(rule.Type))
		for i := 0; i < ds.NumRows(); i++ {
			v := ds.Cell(i, j)
			if v.IsMissing() || Conforms(v, rule.Type) {
				continue
			}
			issues.Add(core.NewIssue(core.KindTypeMismatch).
				AtRow(i).
				InColumn(rule.Column).
				WithValue(v).
				WithExpected(expected))
		}
	}
}

// Conforms reports whether a non-missing value satisfies a known type.
func Conforms(v core.Value, t core.ExpectedType) bool {
	switch t {
	case core.TypeInt, core.TypeFloat:
		_, ok := v.AsNumber()
		return ok
	case core.TypeDatetime:
		_, ok := v.AsTime()
		return ok
	case core.TypeString:
		return !v.IsComposite()
	}
	return false
}
