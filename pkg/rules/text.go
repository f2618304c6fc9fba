// Package rules builds core.RuleSet values from their textual forms: the
// line-oriented rule syntax used by form fields and flags, and YAML rule files.
//
// Line syntax:
//
//	id:int               expected type (split on the first colon)
//	age:0:120            range; leave a bound blank for no bound
//	country=SK,CZ,AT     allowed values (split on the first equals sign)
//	id,email             required, unique-key and email columns
package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapcheck/pkg/core"
)

// SyntaxError reports a rule line that cannot be interpreted.
type SyntaxError struct {
	Field string // e.g. "ranges"
	Line  int    // 1-based
	Text  string
	Msg   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s line %d %q: %s", e.Field, e.Line, e.Text, e.Msg)
}

// Text holds the six rule fields in line syntax.
type Text struct {
	Required  string `json:"required"`
	UniqueKey string `json:"unique_key"`
	Types     string `json:"types"`
	Ranges    string `json:"ranges"`
	Allowed   string `json:"allowed"`
	Email     string `json:"email"`
}

// DefaultText is the starter rule set offered to new users.
var DefaultText = Text{
	Required:  "id,email,age,country",
	UniqueKey: "id",
	Types:     "id:int\nage:int\nemail:string",
	Ranges:    "age:0:120",
	Allowed:   "country=SK,CZ,AT,HU",
	Email:     "email",
}

// Default returns DefaultText parsed.
func Default() core.RuleSet {
	rs, err := FromText(DefaultText)
	if err != nil {
		panic(err) // static input
	}
	return rs
}

// FromText parses every field of t. Empty key or email lists leave the
// corresponding option absent.
func FromText(t Text) (core.RuleSet, error) {
	ranges, err := ParseRanges(t.Ranges)
	if err != nil {
		return core.RuleSet{}, err
	}
	rs := core.RuleSet{
		RequiredColumns: ParseList(t.Required),
		ExpectedTypes:   ParseTypes(t.Types),
		Ranges:          ranges,
		AllowedValues:   ParseAllowed(t.Allowed),
	}
	if keys := ParseList(t.UniqueKey); len(keys) > 0 {
		rs.UniqueKey = core.Some(keys)
	}
	if cols := ParseList(t.Email); len(cols) > 0 {
		rs.EmailColumns = core.Some(cols)
	}
	return rs, nil
}

// ParseList splits a comma-separated list, trimming items and dropping empty ones.
func ParseList(text string) []string {
	var out []string
	for _, item := range strings.Split(text, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// ParseTypes parses column:type lines. Lines without a colon are ignored;
// a repeated column keeps its first position and takes the later type.
func ParseTypes(text string) []core.TypeRule {
	var out []core.TypeRule
	pos := make(map[string]int)
	for _, line := range lines(text) {
		col, typ, ok := strings.Cut(line.text, ":")
		if !ok {
			continue
		}
		rule := core.TypeRule{Column: strings.TrimSpace(col), Type: core.ExpectedType(strings.TrimSpace(typ))}
		if i, seen := pos[rule.Column]; seen {
			out[i] = rule
			continue
		}
		pos[rule.Column] = len(out)
		out = append(out, rule)
	}
	return out
}

// ParseRanges parses column:min:max lines. Lines that do not have exactly
// three parts are ignored; a non-numeric bound is an error.
func ParseRanges(text string) ([]core.RangeRule, error) {
	var out []core.RangeRule
	pos := make(map[string]int)
	for _, line := range lines(text) {
		parts := strings.Split(line.text, ":")
		if len(parts) != 3 {
			continue
		}
		rule := core.RangeRule{Column: strings.TrimSpace(parts[0])}
		var err error
		if rule.Min, err = parseBound(parts[1]); err != nil {
			return nil, &SyntaxError{Field: "ranges", Line: line.n, Text: line.text, Msg: "min: " + err.Error()}
		}
		if rule.Max, err = parseBound(parts[2]); err != nil {
			return nil, &SyntaxError{Field: "ranges", Line: line.n, Text: line.text, Msg: "max: " + err.Error()}
		}
		if i, seen := pos[rule.Column]; seen {
			out[i] = rule
			continue
		}
		pos[rule.Column] = len(out)
		out = append(out, rule)
	}
	return out, nil
}

func parseBound(s string) (core.Optional[float64], error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.None[float64](), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return core.None[float64](), fmt.Errorf("%q is not a number", s)
	}
	return core.Some(f), nil
}

// ParseAllowed parses column=v1,v2 lines. Values are kept as strings;
// empty values are dropped and lines without '=' are ignored.
func ParseAllowed(text string) []core.AllowedRule {
	var out []core.AllowedRule
	pos := make(map[string]int)
	for _, line := range lines(text) {
		col, vals, ok := strings.Cut(line.text, "=")
		if !ok {
			continue
		}
		rule := core.AllowedRule{Column: strings.TrimSpace(col)}
		for _, v := range ParseList(vals) {
			rule.Values = append(rule.Values, core.String(v))
		}
		if i, seen := pos[rule.Column]; seen {
			out[i] = rule
			continue
		}
		pos[rule.Column] = len(out)
		out = append(out, rule)
	}
	return out
}

type textLine struct {
	n    int
	text string
}

// lines returns the trimmed non-blank lines of text with their numbers.
func lines(text string) []textLine {
	var out []textLine
	for i, raw := range strings.Split(text, "\n") {
		if l := strings.TrimSpace(raw); l != "" {
			out = append(out, textLine{n: i + 1, text: l})
		}
	}
	return out
}

// ToText renders rs in line syntax. Custom checks have no line form and
// are omitted.
func ToText(rs core.RuleSet) Text {
	var t Text
	t.Required = strings.Join(rs.RequiredColumns, ",")
	t.UniqueKey = strings.Join(rs.UniqueKey.OrElse(nil), ",")
	t.Email = strings.Join(rs.EmailColumns.OrElse(nil), ",")

	var b strings.Builder
	for _, r := range rs.ExpectedTypes {
		fmt.Fprintf(&b, "%s:%s\n", r.Column, r.Type)
	}
	t.Types = strings.TrimSuffix(b.String(), "\n")

	b.Reset()
	for _, r := range rs.Ranges {
		fmt.Fprintf(&b, "%s:%s:%s\n", r.Column, formatBound(r.Min), formatBound(r.Max))
	}
	t.Ranges = strings.TrimSuffix(b.String(), "\n")

	b.Reset()
	for _, r := range rs.AllowedValues {
		vals := make([]string, len(r.Values))
		for i, v := range r.Values {
			vals[i] = v.Text()
		}
		fmt.Fprintf(&b, "%s=%s\n", r.Column, strings.Join(vals, ","))
	}
	t.Allowed = strings.TrimSuffix(b.String(), "\n")
	return t
}

func formatBound(o core.Optional[float64]) string {
	f, ok := o.Get()
	if !ok {
		return ""
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
