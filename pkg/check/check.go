// Package check provides the built-in data-quality checks.
//
// Each check is a Def: metadata plus a CheckFunc that appends issues for one
// dataset and rule set. Checks are independent of each other; All returns
// them in the fixed order in which the validator runs them.
package check

import (
	"strings"

	"github.com/leapstack-labs/leapcheck/pkg/core"
)

// CheckFunc evaluates one aspect of rules against ds and appends every
// violation it finds to issues. It never mutates ds.
type CheckFunc func(ds *core.Dataset, rules core.RuleSet, issues *core.Issues)

// Def defines a check with its metadata and implementation.
type Def struct {
	ID          string
	Name        string
	Group       string
	Description string
	// Kinds lists the issue kinds the check can emit.
	Kinds []core.Kind
	Check CheckFunc

	// Documentation fields
	Rationale string
	Example   string // rule-file snippet that enables the check
}

// Run evaluates the check.
func (d Def) Run(ds *core.Dataset, rules core.RuleSet, issues *core.Issues) {
	d.Check(ds, rules, issues)
}

// Info provides metadata about a check for listing and tooling.
type Info struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Group       string      `json:"group"`
	Description string      `json:"description"`
	Kinds       []core.Kind `json:"kinds"`
}

// Info extracts the metadata of d.
func (d Def) Info() Info {
	return Info{
		ID:          d.ID,
		Name:        d.Name,
		Group:       d.Group,
		Description: d.Description,
		Kinds:       append([]core.Kind(nil), d.Kinds...),
	}
}

// builtins in evaluation order.
var builtins = []Def{
	RequiredColumns,
	MissingValues,
	Duplicates,
	Types,
	Ranges,
	AllowedValues,
	EmailFormat,
}

// All returns the built-in checks in evaluation order.
func All() []Def {
	return append([]Def(nil), builtins...)
}

// Get looks a check up by ID or name, case-insensitively.
func Get(idOrName string) (Def, bool) {
	for _, d := range builtins {
		if strings.EqualFold(d.ID, idOrName) || strings.EqualFold(d.Name, idOrName) {
			return d, true
		}
	}
	return Def{}, false
}
