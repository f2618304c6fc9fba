package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	starctx "github.com/leapstack-labs/leapcheck/internal/starlark"
	"github.com/leapstack-labs/leapcheck/pkg/check"
	"github.com/leapstack-labs/leapcheck/pkg/core"
)

// groupDescriptions provides human-readable descriptions for check groups.
var groupDescriptions = map[string]string{
	"required":    "Checks that the columns and values the rules require are present.",
	"uniqueness":  "Checks that key columns, or whole rows, identify each record once.",
	"conformance": "Checks that values have the expected type, range, domain and format.",
	"custom":      "User-defined row expressions from the `checks` section of the rules file.",
}

var groupOrder = []string{"required", "uniqueness", "conformance", "custom"}

// catalog returns every check in evaluation order.
func catalog() []check.Def {
	return append(check.All(), starctx.NewEvaluator().Def())
}

// generateCheckDocs generates the check catalog.
func generateCheckDocs(outDir string) error {
	log.Printf("Generating check docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	defs := catalog()

	if err := generateChecksIndex(outDir, defs); err != nil {
		return err
	}
	log.Printf("  Generated index.md")

	if err := generateIssueKindsPage(outDir); err != nil {
		return err
	}
	log.Printf("  Generated issue-kinds.md")

	return nil
}

// generateChecksIndex generates the checks overview and per-check reference.
func generateChecksIndex(outDir string, defs []check.Def) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Checks", "Data quality checks run by leapcheck")
	w.GeneratedMarker()

	w.Header(1, "Checks")
	w.Paragraph(fmt.Sprintf("leapcheck runs **%d checks** in a fixed order. Issues are reported in check order, then row order.", len(defs)))

	w.Header(2, "Overview")
	var rows [][]string
	for _, d := range defs {
		rows = append(rows, []string{
			fmt.Sprintf("[%s](#%s)", InlineCode(d.ID), strings.ToLower(d.ID)),
			InlineCode(d.Name),
			d.Group,
			cleanDescription(d.Description),
		})
	}
	w.Table([]string{"ID", "Name", "Group", "Description"}, rows)

	w.Header(2, "Disabling Checks")
	w.Paragraph("Checks can be skipped by ID or name in `leapcheck.yaml` or with `--disable`:")
	w.CodeBlock("yaml", `disabled_checks:
  - DQ02
  - conformance.email`)

	grouped := make(map[string][]check.Def)
	for _, d := range defs {
		grouped[d.Group] = append(grouped[d.Group], d)
	}

	for _, group := range groupOrder {
		groupDefs := grouped[group]
		if len(groupDefs) == 0 {
			continue
		}

		w.Line(fmt.Sprintf("## %s {#%s}", capitalizeFirst(group), group))
		w.Newline()
		if desc, ok := groupDescriptions[group]; ok {
			w.Paragraph(desc)
		}
		for _, d := range groupDefs {
			writeCheckDoc(w, d)
		}
	}

	return os.WriteFile(filepath.Join(outDir, "index.md"), w.Bytes(), 0600)
}

// generateIssueKindsPage lists every issue kind with its severity.
func generateIssueKindsPage(outDir string) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Issue Kinds", "Issue kinds reported by leapcheck")
	w.GeneratedMarker()

	w.Header(1, "Issue Kinds")
	w.Paragraph("Every issue carries one of these kinds. `--fail-on` compares against the severity column.")

	emittedBy := make(map[core.Kind][]string)
	for _, d := range catalog() {
		for _, k := range d.Kinds {
			emittedBy[k] = append(emittedBy[k], d.ID)
		}
	}

	var rows [][]string
	for _, k := range core.AllKinds() {
		rows = append(rows, []string{
			InlineCode(string(k)),
			k.Severity().String(),
			strings.Join(emittedBy[k], ", "),
		})
	}
	w.Table([]string{"Kind", "Severity", "Checks"}, rows)

	return os.WriteFile(filepath.Join(outDir, "issue-kinds.md"), w.Bytes(), 0600)
}

// capitalizeFirst capitalizes the first letter of a string.
func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// writeCheckDoc writes detailed documentation for a single check.
func writeCheckDoc(w *MarkdownWriter, d check.Def) {
	// ### DQ03 - uniqueness.key {#dq03}
	w.Line(fmt.Sprintf("### %s - %s {#%s}", d.ID, d.Name, strings.ToLower(d.ID)))
	w.Newline()

	kinds := make([]string, len(d.Kinds))
	for i, k := range d.Kinds {
		kinds[i] = InlineCode(string(k))
	}
	w.Line(fmt.Sprintf("**Issues:** %s", strings.Join(kinds, ", ")))
	w.Newline()

	w.Paragraph(cleanDescription(d.Description))

	if d.Rationale != "" {
		w.Header(4, "Details")
		w.Paragraph(cleanDescription(d.Rationale))
	}

	if d.Example != "" {
		w.Header(4, "Rules")
		w.CodeBlock("yaml", d.Example)
	}

	w.Line("---")
	w.Newline()
}
