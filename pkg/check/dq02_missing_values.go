package check

import "github.com/leapstack-labs/leapcheck/pkg/core"

// MissingValues reports missing cells in required columns that exist.
var MissingValues = Def{
	ID:          "DQ02",
	Name:        "required.values",
	Group:       "required",
	Description: "Required columns must not contain missing values.",
	Kinds:       []core.Kind{core.KindMissingValue},
	Check:       checkMissingValues,

	Rationale: `A required column is only useful when every row fills it. Empty
cells and the usual NA markers count as missing; empty strings from typed
sources do not.`,
	Example: `required_columns: [id, email]`,
}

func checkMissingValues(ds *core.Dataset, rules core.RuleSet, issues *core.Issues) {
	for _, col := range rules.RequiredColumns {
		j, ok := ds.ColumnIndex(col)
		if !ok {
			continue
		}
		for i := 0; i < ds.NumRows(); i++ {
			if ds.Cell(i, j).IsMissing() {
				issues.Add(core.NewIssue(core.KindMissingValue).AtRow(i).InColumn(col))
			}
		}
	}
}
