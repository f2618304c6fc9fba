package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	starctx "github.com/leapstack-labs/leapcheck/internal/starlark"
)

// generateExpressionDocs generates the custom check expression reference.
func generateExpressionDocs(outDir string) error {
	log.Printf("Generating expression docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Clean(filepath.Join(outDir, "expressions.md"))

	existing, err := os.ReadFile(path) //#nosec G304 -- path is constructed from trusted flags
	if err != nil {
		return generateFullExpressionDoc(path)
	}

	// Keep hand-written prose above the generated reference.
	content := string(existing)
	if idx := strings.Index(content, "## Reference"); idx != -1 {
		content = content[:idx]
	}
	newContent := strings.TrimSpace(content) + "\n\n" + generateExpressionReference()
	return os.WriteFile(path, []byte(newContent), 0600)
}

// GlobalDoc describes one name available to check expressions.
type GlobalDoc struct {
	Name        string
	Kind        string
	Description string
}

var globalDocs = map[string]GlobalDoc{
	"is_missing": {"is_missing(x)", "function", "True when the cell is missing (empty or NA)"},
	"num":        {"num(x)", "function", "x as a float, or None when it is not numeric"},
	"date":       {"date(x)", "function", "x as a time, or None when it is not a recognised date"},
	"matches":    {"matches(pattern, x)", "function", "Regular expression search on the text of x"},
	"time":       {"time", "module", "The standard Starlark time module"},
	"math":       {"math", "module", "The standard Starlark math module"},
}

// expressionGlobals returns the documented predeclared names in name order.
// Names without documentation are still listed so the page never drifts.
func expressionGlobals() []GlobalDoc {
	names := make([]string, 0)
	for name := range starctx.Predeclared() {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]GlobalDoc, 0, len(names))
	for _, name := range names {
		doc, ok := globalDocs[name]
		if !ok {
			doc = GlobalDoc{Name: name, Kind: "builtin"}
		}
		out = append(out, doc)
	}
	return out
}

// generateExpressionReference generates the reference section markdown.
func generateExpressionReference() string {
	w := NewMarkdownWriter()

	w.Header(2, "Reference")
	w.GeneratedMarker()

	w.Header(3, "Row Values")
	w.Table(
		[]string{"Name", "Type", "Description"},
		[][]string{
			{InlineCode("<column>"), "value", "Every column whose name is a valid identifier"},
			{InlineCode("row"), "dict", "All columns of the row keyed by name"},
		},
	)
	w.Paragraph("Missing cells are `None`. Predeclared names win over columns of the same name; use `row[\"name\"]` to reach those.")

	w.Header(3, "Builtins")
	var rows [][]string
	for _, g := range expressionGlobals() {
		rows = append(rows, []string{InlineCode(g.Name), g.Kind, g.Description})
	}
	w.Table([]string{"Name", "Kind", "Description"}, rows)

	w.Header(3, "Limits")
	w.Paragraph(fmt.Sprintf("Each expression may execute at most %d steps per row. Exceeding the limit reports `check_error` for the row.", starctx.DefaultMaxSteps))

	w.Header(3, "Usage Examples")
	w.CodeBlock("yaml", `checks:
  - name: adult
    expr: num(age) >= 18
  - name: signup_in_past
    expr: is_missing(signup) or date(signup) < time.now()
  - name: sk_postcode
    expr: country != "SK" or matches(r"^\d{3} ?\d{2}$", postcode)`)

	return w.String()
}

// generateFullExpressionDoc generates a complete expressions.md file.
func generateFullExpressionDoc(path string) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Custom Check Expressions", "Row expressions available in the checks section of rules.yaml")
	w.GeneratedMarker()

	w.Header(1, "Custom Check Expressions")
	w.Paragraph("Custom checks are Starlark expressions evaluated once per row. A falsy result reports `check_failed`; a runtime error reports `check_error`; a syntax error reports `invalid_check` once for the whole check.")

	w.Text(generateExpressionReference())

	return os.WriteFile(path, w.Bytes(), 0600)
}
