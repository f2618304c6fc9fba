package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	intconfig "github.com/leapstack-labs/leapcheck/internal/config"
	"github.com/leapstack-labs/leapcheck/pkg/source"
)

// generateConfigDocs generates the configuration and rules file reference.
func generateConfigDocs(outDir string) error {
	log.Printf("Generating config docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := generateConfigurationDoc(outDir); err != nil {
		return fmt.Errorf("failed to generate configuration.md: %w", err)
	}
	log.Printf("  Generated configuration.md")

	if err := generateRulesDoc(outDir); err != nil {
		return fmt.Errorf("failed to generate rules.md: %w", err)
	}
	log.Printf("  Generated rules.md")

	return nil
}

// ConfigField represents a configuration field definition.
type ConfigField struct {
	Name        string
	Type        string
	Default     string
	Description string
	Category    string // "project", "serve", "watch", "source"
}

// getConfigSchema returns the configuration schema definition.
// This is based on internal/config/types.go ProjectConfig and pkg/source.Config.
func getConfigSchema() []ConfigField {
	return []ConfigField{
		{Name: "rules", Type: "string", Default: intconfig.DefaultRulesFile, Description: "Rules file, relative to the project root", Category: "project"},
		{Name: "state_path", Type: "string", Default: intconfig.DefaultStateFile, Description: "Run history database", Category: "project"},
		{Name: "history", Type: "bool", Default: "true", Description: "Record every run in the history database", Category: "project"},
		{Name: "workers", Type: "int", Default: strconv.Itoa(intconfig.DefaultWorkers), Description: "Checks evaluated concurrently", Category: "project"},
		{Name: "disabled_checks", Type: "[]string", Description: "Check IDs or names to skip", Category: "project"},
		{Name: "output", Type: "string", Default: "auto", Description: "Output format: auto, text, markdown, json", Category: "project"},

		{Name: "serve.port", Type: "int", Default: strconv.Itoa(intconfig.DefaultServePort), Description: "HTTP API port", Category: "serve"},
		{Name: "serve.watch", Type: "string", Description: "Directory re-validated when files change", Category: "serve"},
		{Name: "serve.max_upload_mb", Type: "int", Default: strconv.Itoa(intconfig.DefaultMaxUploadMB), Description: "Largest accepted upload", Category: "serve"},

		{Name: "watch.debounce", Type: "duration", Default: intconfig.DefaultDebounce.String(), Description: "Quiet period before re-validating after a change", Category: "watch"},

		{Name: "type", Type: "string", Description: "Source type: " + strings.Join(source.ListSources(), ", "), Category: "source"},
		{Name: "path", Type: "string", Description: "File path, s3:// URL or database file", Category: "source"},
		{Name: "table", Type: "string", Description: "Table to read from a SQL source", Category: "source"},
		{Name: "query", Type: "string", Description: "Query to read from a SQL source", Category: "source"},
		{Name: "dsn", Type: "string", Description: "Full connection string; wins over the discrete fields", Category: "source"},
		{Name: "host", Type: "string", Description: "Database host", Category: "source"},
		{Name: "port", Type: "int", Description: "Database port", Category: "source"},
		{Name: "database", Type: "string", Description: "Database name", Category: "source"},
		{Name: "username", Type: "string", Description: "Database user", Category: "source"},
		{Name: "password", Type: "string", Description: "Database password", Category: "source"},
		{Name: "encoding", Type: "string", Description: "Character encoding of delimited text", Category: "source"},
		{Name: "delimiter", Type: "string", Description: "Field delimiter of delimited text", Category: "source"},
		{Name: "params", Type: "map[string]any", Description: "Source-specific settings (S3 region, endpoint)", Category: "source"},
	}
}

// writeFieldTable writes the fields of one category.
func writeFieldTable(w *MarkdownWriter, fields []ConfigField, category string) {
	headers := []string{"Field", "Type", "Default", "Description"}
	var rows [][]string
	for _, f := range fields {
		if f.Category != category {
			continue
		}
		defVal := "-"
		if f.Default != "" {
			defVal = InlineCode(f.Default)
		}
		rows = append(rows, []string{InlineCode(f.Name), f.Type, defVal, f.Description})
	}
	w.Table(headers, rows)
}

// generateConfigurationDoc generates the configuration reference page.
func generateConfigurationDoc(outDir string) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Configuration", "leapcheck configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph("leapcheck is configured via `leapcheck.yaml` in your project root. Flags override environment variables, which override the file.")

	fields := getConfigSchema()

	w.Header(2, "Project Settings")
	writeFieldTable(w, fields, "project")

	w.Header(2, "HTTP API")
	writeFieldTable(w, fields, "serve")

	w.Header(2, "Watch")
	writeFieldTable(w, fields, "watch")

	w.Header(2, "Source")
	w.Paragraph("The `source` section names the dataset validated when no file is given on the command line.")
	writeFieldTable(w, fields, "source")

	w.Header(4, "PostgreSQL Example")
	w.CodeBlock("yaml", `source:
  type: postgres
  host: localhost
  database: crm
  username: analytics
  password: ${POSTGRES_PASSWORD}
  table: customers`)

	w.Header(4, "S3 Example")
	w.CodeBlock("yaml", `source:
  type: s3
  path: s3://exports/people.csv
  params:
    region: eu-central-1`)

	w.Header(2, "Environment Variables")
	w.Paragraph("Use `${VAR_NAME}` in source connection fields to read secrets from the environment.")

	return os.WriteFile(filepath.Join(outDir, "configuration.md"), w.Bytes(), 0600)
}

// generateRulesDoc generates the rules file reference page.
func generateRulesDoc(outDir string) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Rules", "rules.yaml reference")
	w.GeneratedMarker()

	w.Header(1, "Rules")
	w.Paragraph("Rules describe what a valid dataset looks like. Every section is optional.")

	w.Table(
		[]string{"Section", "Form", "Checks"},
		[][]string{
			{InlineCode("required_columns"), "list of columns", "DQ01, DQ02"},
			{InlineCode("unique_key_columns"), "list of columns; empty checks whole rows", "DQ03"},
			{InlineCode("expected_types"), "column: int, float, string, bool or datetime", "DQ04"},
			{InlineCode("ranges"), "column: {min, max}", "DQ05"},
			{InlineCode("allowed_values"), "column: list of values", "DQ06"},
			{InlineCode("email_columns"), "list of columns", "DQ07"},
			{InlineCode("checks"), "list of {name, expr}", "DQ08"},
		},
	)

	w.Header(2, "Example")
	w.CodeBlock("yaml", `required_columns: [id, email, age, country]
unique_key_columns: [id]
expected_types:
  id: int
  age: int
ranges:
  age: {min: 0, max: 120}
allowed_values:
  country: [SK, CZ, AT, HU]
email_columns: [email]
checks:
  - name: adult
    expr: num(age) >= 18`)

	return os.WriteFile(filepath.Join(outDir, "rules.md"), w.Bytes(), 0600)
}
