package check

import "github.com/leapstack-labs/leapcheck/pkg/core"

// RequiredColumns reports required columns absent from the dataset.
var RequiredColumns = Def{
	ID:          "DQ01",
	Name:        "required.columns",
	Group:       "required",
	Description: "Every required column must exist in the dataset.",
	Kinds:       []core.Kind{core.KindMissingRequiredColumn},
	Check:       checkRequiredColumns,

	Rationale: `Downstream consumers address columns by name. A missing column is
reported once at dataset level; values of that column cannot be checked.`,
	Example: `required_columns: [id, email, age, country]`,
}

func checkRequiredColumns(ds *core.Dataset, rules core.RuleSet, issues *core.Issues) {
	for _, col := range rules.RequiredColumns {
		if !ds.HasColumn(col) {
			issues.Add(core.NewIssue(core.KindMissingRequiredColumn).InColumn(col))
		}
	}
}
