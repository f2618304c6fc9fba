package rules

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapcheck/pkg/core"
)

// fileRules mirrors the YAML rule file. Mappings are kept as nodes so that
// column order survives decoding.
type fileRules struct {
	RequiredColumns  []string    `yaml:"required_columns"`
	UniqueKeyColumns *[]string   `yaml:"unique_key_columns"`
	EmailColumns     *[]string   `yaml:"email_columns"`
	ExpectedTypes    yaml.Node   `yaml:"expected_types"`
	Ranges           yaml.Node   `yaml:"ranges"`
	AllowedValues    yaml.Node   `yaml:"allowed_values"`
	Checks           []fileCheck `yaml:"checks"`
}

type fileCheck struct {
	Name string `yaml:"name"`
	Expr string `yaml:"expr"`
}

type fileRange struct {
	Min *float64 `yaml:"min"`
	Max *float64 `yaml:"max"`
}

// LoadFile reads a YAML rule file.
func LoadFile(path string) (core.RuleSet, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from user config
	if err != nil {
		return core.RuleSet{}, fmt.Errorf("failed to read rules file: %w", err)
	}
	rs, err := Parse(data)
	if err != nil {
		return core.RuleSet{}, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}
	return rs, nil
}

// Parse decodes a YAML rule document. Unknown top-level keys are rejected.
// An empty document yields an empty RuleSet.
func Parse(data []byte) (core.RuleSet, error) {
	var f fileRules
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return core.RuleSet{}, err
	}

	rs := core.RuleSet{RequiredColumns: f.RequiredColumns}
	if f.UniqueKeyColumns != nil {
		rs.UniqueKey = core.Some(*f.UniqueKeyColumns)
	}
	if f.EmailColumns != nil {
		rs.EmailColumns = core.Some(*f.EmailColumns)
	}

	err := eachPair(&f.ExpectedTypes, "expected_types", func(col string, v *yaml.Node) error {
		var typ string
		if err := v.Decode(&typ); err != nil {
			return err
		}
		rs.ExpectedTypes = append(rs.ExpectedTypes, core.TypeRule{Column: col, Type: core.ExpectedType(strings.TrimSpace(typ))})
		return nil
	})
	if err != nil {
		return core.RuleSet{}, err
	}

	err = eachPair(&f.Ranges, "ranges", func(col string, v *yaml.Node) error {
		rule, err := decodeRange(col, v)
		if err != nil {
			return err
		}
		rs.Ranges = append(rs.Ranges, rule)
		return nil
	})
	if err != nil {
		return core.RuleSet{}, err
	}

	err = eachPair(&f.AllowedValues, "allowed_values", func(col string, v *yaml.Node) error {
		if v.Kind != yaml.SequenceNode {
			return fmt.Errorf("line %d: allowed values for %q must be a list", v.Line, col)
		}
		rule := core.AllowedRule{Column: col}
		for _, item := range v.Content {
			val, err := scalarValue(item)
			if err != nil {
				return err
			}
			rule.Values = append(rule.Values, val)
		}
		rs.AllowedValues = append(rs.AllowedValues, rule)
		return nil
	})
	if err != nil {
		return core.RuleSet{}, err
	}

	for i, c := range f.Checks {
		if strings.TrimSpace(c.Expr) == "" {
			return core.RuleSet{}, fmt.Errorf("checks[%d]: expr is required", i)
		}
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("check_%d", i+1)
		}
		rs.Checks = append(rs.Checks, core.CustomCheck{Name: name, Expr: c.Expr})
	}
	return rs, nil
}

// eachPair walks a mapping node in document order. A zero node (key not
// present) is skipped.
func eachPair(n *yaml.Node, field string, fn func(key string, value *yaml.Node) error) error {
	if n.Kind == 0 || n.Tag == "!!null" {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: %s must be a mapping", n.Line, field)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if err := fn(n.Content[i].Value, n.Content[i+1]); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}
	return nil
}

// decodeRange accepts either {min: x, max: y} or the line form "x:y".
func decodeRange(col string, v *yaml.Node) (core.RangeRule, error) {
	rule := core.RangeRule{Column: col}
	if v.Kind == yaml.ScalarNode {
		ranges, err := ParseRanges(col + ":" + v.Value)
		if err != nil {
			return rule, err
		}
		if len(ranges) == 0 {
			return rule, fmt.Errorf("line %d: range for %q must look like min:max", v.Line, col)
		}
		return ranges[0], nil
	}
	var fr fileRange
	if err := v.Decode(&fr); err != nil {
		return rule, err
	}
	if fr.Min != nil {
		rule.Min = core.Some(*fr.Min)
	}
	if fr.Max != nil {
		rule.Max = core.Some(*fr.Max)
	}
	return rule, nil
}

// scalarValue converts a YAML scalar to a Value, keeping its resolved type.
func scalarValue(n *yaml.Node) (core.Value, error) {
	if n.Kind != yaml.ScalarNode {
		return core.Value{}, fmt.Errorf("line %d: allowed values must be scalars", n.Line)
	}
	switch n.ShortTag() {
	case "!!null":
		return core.Missing(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return core.Value{}, err
		}
		return core.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return core.Value{}, err
		}
		return core.Int(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return core.Value{}, err
		}
		return core.Float(f), nil
	case "!!timestamp":
		var t time.Time
		if err := n.Decode(&t); err != nil {
			return core.Value{}, err
		}
		return core.Time(t), nil
	default:
		return core.String(n.Value), nil
	}
}

// Marshal renders rs as a YAML rule file that Parse reads back unchanged.
func Marshal(rs core.RuleSet) ([]byte, error) {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key string, value *yaml.Node) {
		doc.Content = append(doc.Content, str(key), value)
	}

	if len(rs.RequiredColumns) > 0 {
		add("required_columns", strList(rs.RequiredColumns))
	}
	if keys, ok := rs.UniqueKey.Get(); ok {
		add("unique_key_columns", strList(keys))
	}
	if len(rs.ExpectedTypes) > 0 {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for _, r := range rs.ExpectedTypes {
			m.Content = append(m.Content, str(r.Column), str(string(r.Type)))
		}
		add("expected_types", m)
	}
	if len(rs.Ranges) > 0 {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for _, r := range rs.Ranges {
			bounds := &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}
			if v, ok := r.Min.Get(); ok {
				bounds.Content = append(bounds.Content, str("min"), bound(v))
			}
			if v, ok := r.Max.Get(); ok {
				bounds.Content = append(bounds.Content, str("max"), bound(v))
			}
			m.Content = append(m.Content, str(r.Column), bounds)
		}
		add("ranges", m)
	}
	if len(rs.AllowedValues) > 0 {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for _, r := range rs.AllowedValues {
			seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
			for _, v := range r.Values {
				seq.Content = append(seq.Content, valueNode(v))
			}
			m.Content = append(m.Content, str(r.Column), seq)
		}
		add("allowed_values", m)
	}
	if cols, ok := rs.EmailColumns.Get(); ok {
		add("email_columns", strList(cols))
	}
	if len(rs.Checks) > 0 {
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, c := range rs.Checks {
			seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
				str("name"), str(c.Name), str("expr"), str(c.Expr),
			}})
		}
		add("checks", seq)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode rules: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode rules: %w", err)
	}
	return buf.Bytes(), nil
}

// Hash returns a stable fingerprint of rs, used to group history runs.
func Hash(rs core.RuleSet) string {
	data, err := Marshal(rs)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

func str(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func num(f float64) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(f, 'g', -1, 64)}
}

// bound is left untagged; range bounds always decode as floats.
func bound(f float64) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: strconv.FormatFloat(f, 'g', -1, 64)}
}

func strList(items []string) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, s := range items {
		seq.Content = append(seq.Content, str(s))
	}
	return seq
}

func valueNode(v core.Value) *yaml.Node {
	switch v.Kind() {
	case core.KindMissing:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case core.KindInt:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: v.Text()}
	case core.KindFloat:
		f, _ := v.AsNumber()
		return num(f)
	case core.KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: v.Text()}
	default:
		return str(v.Text())
	}
}
