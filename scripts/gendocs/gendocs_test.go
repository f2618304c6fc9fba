package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownWriter(t *testing.T) {
	w := NewMarkdownWriter()
	w.Frontmatter("Checks", "All checks")
	w.Header(2, "Overview")
	w.Table([]string{"A", "B"}, [][]string{{"x|y", InlineCode("z")}})
	w.CodeBlock("yaml", "a: 1\n")

	out := w.String()
	assert.True(t, strings.HasPrefix(out, "---\ntitle: \"Checks\"\n"))
	assert.Contains(t, out, "## Overview\n")
	assert.Contains(t, out, "| A | B |\n| --- | --- |\n| x\\|y | `z` |\n")
	assert.Contains(t, out, "```yaml\na: 1\n```\n")
}

func TestCleanExample(t *testing.T) {
	got := cleanExample("  # Validate\n  leapcheck validate data.csv\n\n    --fail-on-issues")
	assert.Equal(t, "# Validate\nleapcheck validate data.csv\n\n  --fail-on-issues", got)
}

func TestGenerateCheckDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateCheckDocs(dir))

	index, err := os.ReadFile(filepath.Join(dir, "index.md"))
	require.NoError(t, err)
	for _, id := range []string{"DQ01", "DQ07", "DQ08"} {
		assert.Contains(t, string(index), "### "+id)
	}
	assert.Contains(t, string(index), generatedHeader)

	kinds, err := os.ReadFile(filepath.Join(dir, "issue-kinds.md"))
	require.NoError(t, err)
	assert.Contains(t, string(kinds), "| `duplicate_key` | warning | DQ03 |")
}

func TestGenerateExpressionDocs_KeepsProse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "expressions.md")
	require.NoError(t, os.WriteFile(path, []byte("# Expressions\n\nHand-written intro.\n\n## Reference\n\nstale\n"), 0o600))

	require.NoError(t, generateExpressionDocs(dir))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "Hand-written intro.")
	assert.NotContains(t, out, "stale")
	assert.Contains(t, out, "`num(x)`")
	assert.Equal(t, 1, strings.Count(out, "## Reference"))
}

func TestGenerateCLIAndConfigDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateCLIDocs(dir))
	require.NoError(t, generateConfigDocs(dir))

	for _, name := range []string{"index.md", "validate.md", "history.md", "history-list.md", "query-schema.md", "configuration.md", "rules.md"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	history, err := os.ReadFile(filepath.Join(dir, "history.md"))
	require.NoError(t, err)
	assert.Contains(t, string(history), "[`list`](/cli/history-list)")
	assert.Contains(t, string(history), "leapcheck history <subcommand> [options]")

	index, err := os.ReadFile(filepath.Join(dir, "index.md"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "`LEAPCHECK_STATE_PATH`")

	cfg, err := os.ReadFile(filepath.Join(dir, "configuration.md"))
	require.NoError(t, err)
	assert.Contains(t, string(cfg), "csv, duckdb, postgres, s3, sqlite")
}
