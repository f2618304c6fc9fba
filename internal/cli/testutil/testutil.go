// Package testutil provides fixtures and output assertions for CLI tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapcheck/internal/cli/output"
	"github.com/leapstack-labs/leapcheck/pkg/core"
)

// Project file names written by SetupTestProject, relative to its root.
const (
	ProjectConfig  = "leapcheck.yaml"
	ProjectRules   = "rules.yaml"
	ProjectDataset = "data/people.csv"
)

// PeopleCSV is the dataset written by SetupTestProject. Against
// PeopleRules it yields two duplicate_key issues, one below_min and one
// invalid_email.
const PeopleCSV = `id,email,age
1,a@x.com,30
1,bad,-5
`

// PeopleRules is the rules file written by SetupTestProject.
const PeopleRules = `required_columns: [id, email, age]
unique_key_columns: [id]
expected_types:
  id: int
  age: int
ranges:
  age: {min: 0, max: 120}
email_columns: [email]
`

// SetupTestProject creates a temporary project with a config file, a
// rules file and one dataset, and returns its root.
func SetupTestProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0o755))

	files := map[string]string{
		ProjectConfig:  "rules: rules.yaml\nstate_path: .leapcheck/history.db\n",
		ProjectRules:   PeopleRules,
		ProjectDataset: PeopleCSV,
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644), "write %s", name)
	}
	return dir
}

// Capture is a Renderer whose output lands in buffers.
type Capture struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewCapture creates a Capture in the given mode. isTTY only matters for
// ModeAuto and for styling in ModeText.
func NewCapture(mode output.OutputMode, isTTY bool) *Capture {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return &Capture{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// MarkdownCapture is NewCapture(output.ModeMarkdown, false).
func MarkdownCapture() *Capture { return NewCapture(output.ModeMarkdown, false) }

// JSONCapture is NewCapture(output.ModeJSON, false).
func JSONCapture() *Capture { return NewCapture(output.ModeJSON, false) }

// Output returns what was written to stdout.
func (c *Capture) Output() string { return c.Out.String() }

// Reset clears both buffers.
func (c *Capture) Reset() {
	c.Out.Reset()
	c.ErrOut.Reset()
}

// DecodeJSON unmarshals the captured stdout into v.
func (c *Capture) DecodeJSON(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(c.Out.Bytes(), v), "stdout: %s", c.Out.String())
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI fails if s contains ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	assert.False(t, ansiPattern.MatchString(s), "unexpected ANSI escape codes in %q", s)
}

// AssertContains fails for every entry of want missing from s.
func AssertContains(t *testing.T, s string, want ...string) {
	t.Helper()
	for _, w := range want {
		assert.Contains(t, s, w)
	}
}

// AssertMarkdownReport checks a markdown validation report: plain text,
// balanced code fences, no empty headers, a section for source and a
// mention of every issue kind in kinds.
func AssertMarkdownReport(t *testing.T, md, source string, kinds ...core.Kind) {
	t.Helper()
	AssertNoANSI(t, md)
	assert.Zero(t, strings.Count(md, "```")%2, "unbalanced code fences")
	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			assert.NotEmpty(t, strings.TrimLeft(trimmed, "# "), "empty header at line %d", i+1)
		}
	}
	assert.Contains(t, md, "## "+source)
	for _, k := range kinds {
		assert.Contains(t, md, string(k))
	}
}
