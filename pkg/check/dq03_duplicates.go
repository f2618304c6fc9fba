package check

import (
	"strings"

	"github.com/leapstack-labs/leapcheck/pkg/core"
)

// Duplicates reports rows sharing a unique key, or identical rows when no
// key is configured.
var Duplicates = Def{
	ID:          "DQ03",
	Name:        "uniqueness.duplicates",
	Group:       "uniqueness",
	Description: "Rows must be unique by the configured key, or entirely when no key is set.",
	Kinds:       []core.Kind{core.KindMissingKeyColumn, core.KindDuplicateKey, core.KindDuplicateRow},
	Check:       checkDuplicates,

	Rationale: `Every member of a duplicate group is flagged, not only the later
occurrences, so that the reader can see all rows that collide. Values are
compared exactly: 1 and 1.0 differ, and two missing values are equal.`,
	Example: `unique_key_columns: [id]`,
}

func checkDuplicates(ds *core.Dataset, rules core.RuleSet, issues *core.Issues) {
	keys := rules.UniqueKeyColumns()
	if keys == nil {
		flagDuplicateRows(ds, issues)
		return
	}

	var present []string
	var positions []int
	seen := make(map[string]bool, len(keys))
	for _, col := range keys {
		if seen[col] {
			continue
		}
		seen[col] = true
		j, ok := ds.ColumnIndex(col)
		if !ok {
			issues.Add(core.NewIssue(core.KindMissingKeyColumn).InColumn(col))
			continue
		}
		present = append(present, col)
		positions = append(positions, j)
	}
	if len(present) == 0 {
		return
	}

	tuple := func(i int) []core.Value {
		vals := make([]core.Value, len(positions))
		for n, j := range positions {
			vals[n] = ds.Cell(i, j)
		}
		return vals
	}

	rowKeys := make([]string, ds.NumRows())
	counts := make(map[string]int)
	for i := range rowKeys {
		rowKeys[i] = core.RowKey(tuple(i))
		counts[rowKeys[i]]++
	}

	column := strings.Join(present, ",")
	for i, k := range rowKeys {
		if counts[k] < 2 {
			continue
		}
		vals := tuple(i)
		fields := make([]core.Field, len(present))
		for n, col := range present {
			fields[n] = core.Field{Name: col, Value: vals[n]}
		}
		issues.Add(core.NewIssue(core.KindDuplicateKey).
			AtRow(i).
			InColumn(column).
			WithValue(core.Map(fields...)))
	}
}

func flagDuplicateRows(ds *core.Dataset, issues *core.Issues) {
	rowKeys := make([]string, ds.NumRows())
	counts := make(map[string]int)
	for i := range rowKeys {
		rowKeys[i] = core.RowKey(ds.Row(i))
		counts[rowKeys[i]]++
	}
	for i, k := range rowKeys {
		if counts[k] >= 2 {
			issues.Add(core.NewIssue(core.KindDuplicateRow).AtRow(i))
		}
	}
}
