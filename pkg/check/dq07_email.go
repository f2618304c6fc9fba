package check

import (
	"strings"

	"github.com/leapstack-labs/leapcheck/pkg/core"
)

// EmailFormat reports values that cannot be email addresses.
var EmailFormat = Def{
	ID:          "DQ07",
	Name:        "conformance.email",
	Group:       "conformance",
	Description: "Values of email columns must contain an @.",
	Kinds:       []core.Kind{core.KindInvalidEmail},
	Check:       checkEmailFormat,

	Rationale: `This is a shape check, not address validation: any text containing
@ passes. Missing values are exempt.`,
	Example: `email_columns: [email]`,
}

func checkEmailFormat(ds *core.Dataset, rules core.RuleSet, issues *core.Issues) {
	cols, ok := rules.EmailColumns.Get()
	if !ok {
		return
	}
	for _, col := range cols {
		j, ok := ds.ColumnIndex(col)
		if !ok {
			continue
		}
		for i := 0; i < ds.NumRows(); i++ {
			v := ds.Cell(i, j)
			text, ok := v.AsText()
			if !ok || strings.Contains(text, "@") {
				continue
			}
			issues.Add(core.NewIssue(core.KindInvalidEmail).
				AtRow(i).
				InColumn(col).
				WithValue(v))
		}
	}
}
