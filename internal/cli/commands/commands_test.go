package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapcheck/internal/cli/config"
	"github.com/leapstack-labs/leapcheck/pkg/core"
	"github.com/leapstack-labs/leapcheck/pkg/rules"
)

const testCSV = "id,email,age\n1,a@x.com,30\n1,bad,-5\n"

const testRules = `required_columns: [id, email, age]
unique_key_columns: [id]
ranges:
  age: {min: 0, max: 120}
email_columns: [email]
`

// setupProject writes a dataset and rules into a temp dir and points the
// environment fallback config at them.
func setupProject(t *testing.T, output string) (dir, csvPath string) {
	t.Helper()
	config.ResetConfig()

	dir = t.TempDir()
	csvPath = filepath.Join(dir, "people.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(testCSV), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rules.yaml"), []byte(testRules), 0o600))

	t.Setenv("LEAPCHECK_RULES", filepath.Join(dir, "rules.yaml"))
	t.Setenv("LEAPCHECK_STATE_PATH", filepath.Join(dir, ".leapcheck", "history.db"))
	t.Setenv("LEAPCHECK_OUTPUT", output)
	return dir, csvPath
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestNewValidateCommand(t *testing.T) {
	cmd := NewValidateCommand()

	assert.Equal(t, "validate [file...]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")
	assert.Equal(t, "check", cmd.Aliases[0])

	flags := []string{"type", "table", "query", "dsn", "delimiter", "encoding", "preview", "fail-on-issues", "fail-on", "export", "export-format"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewChecksCommand(), "checks [check-id]", []string{"group", "format"}},
		{NewHistoryCommand(), "history", nil},
		{NewExportCommand(), "export [run-id|latest]", []string{"format", "out"}},
		{NewQueryCommand(), "query [SQL]", []string{"format", "input"}},
		{NewServeCommand(), "serve", []string{"port", "watch"}},
		{NewWatchCommand(), "watch [file]", []string{"rules-too", "delimiter"}},
		{NewBrowseCommand(), "browse [file]", []string{"run"}},
		{NewInitCommand(), "init [directory]", []string{"force", "example"}},
		{NewRulesCommand(), "rules", []string{"format"}},
	}
	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short)
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flag(flag), "flag %q should exist", flag)
			}
		})
	}

	var subs []string
	for _, c := range NewHistoryCommand().Commands() {
		subs = append(subs, c.Name())
	}
	assert.ElementsMatch(t, []string{"list", "show", "delete"}, subs)
}

func TestValidateCommand_JSON(t *testing.T) {
	_, csvPath := setupProject(t, "json")

	out, err := execute(t, NewValidateCommand(), csvPath)
	require.NoError(t, err)

	var report runReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, csvPath, report.Source)
	assert.Equal(t, 4, report.Summary.TotalIssues)
	assert.Equal(t, map[core.Kind]int{
		core.KindDuplicateKey: 2,
		core.KindBelowMin:     1,
		core.KindInvalidEmail: 1,
	}, report.Summary.IssueTypes)
	require.Len(t, report.Issues, 4)
	assert.Equal(t, core.KindDuplicateKey, report.Issues[0].Kind)
}

func TestValidateCommand_FailOnIssues(t *testing.T) {
	_, csvPath := setupProject(t, "json")

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"report only", []string{csvPath}, nil},
		{"warnings fail", []string{csvPath, "--fail-on-issues"}, ErrIssuesFound},
		{"errors only", []string{csvPath, "--fail-on-issues", "--fail-on", "error"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, NewValidateCommand(), tt.args...)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := execute(t, NewValidateCommand(), csvPath, "--fail-on", "fatal")
	assert.Error(t, err)
}

func TestValidateCommand_MarkdownAndPreview(t *testing.T) {
	_, csvPath := setupProject(t, "markdown")

	out, err := execute(t, NewValidateCommand(), csvPath, "--preview", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "a@x.com", "preview shows the first row")
	assert.Contains(t, out, "## "+csvPath)
	assert.Contains(t, out, "| total_issues |")
	assert.Contains(t, out, "### Issues")
	assert.Contains(t, out, "duplicate_key")
}

func TestValidateCommand_Export(t *testing.T) {
	dir, csvPath := setupProject(t, "json")
	exportPath := filepath.Join(dir, "issues.csv")

	_, err := execute(t, NewValidateCommand(), csvPath, "--export", exportPath)
	require.NoError(t, err)

	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "row_index,column,issue,value", lines[0])
	assert.Equal(t, `0,id,duplicate_key,"{""id"":1}"`, lines[1])
}

func TestValidateCommand_MultipleFiles(t *testing.T) {
	dir, csvPath := setupProject(t, "json")
	clean := filepath.Join(dir, "clean.csv")
	require.NoError(t, os.WriteFile(clean, []byte("id,email,age\n1,a@x.com,30\n"), 0o600))

	out, err := execute(t, NewValidateCommand(), csvPath, clean)
	require.NoError(t, err)

	dec := json.NewDecoder(strings.NewReader(out))
	var first, second runReport
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, dec.Decode(&second))
	assert.Equal(t, 4, first.Summary.TotalIssues)
	assert.Equal(t, 0, second.Summary.TotalIssues)
	assert.Empty(t, second.Issues)
}

func TestValidateCommand_NoSource(t *testing.T) {
	setupProject(t, "json")
	_, err := execute(t, NewValidateCommand())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data source configured")
}

func TestValidateCommand_DefaultRules(t *testing.T) {
	_, csvPath := setupProject(t, "json")
	t.Setenv("LEAPCHECK_RULES", filepath.Join(t.TempDir(), "missing.yaml"))

	out, err := execute(t, NewValidateCommand(), csvPath)
	require.NoError(t, err)

	var report runReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, rules.Hash(rules.Default()), report.RulesHash)
	assert.Equal(t, 1, report.Summary.IssueTypes[core.KindMissingRequiredColumn], "default rules require country")
}

func TestHistoryAndExport(t *testing.T) {
	_, csvPath := setupProject(t, "json")

	out, err := execute(t, NewValidateCommand(), csvPath)
	require.NoError(t, err)
	var report runReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))

	t.Run("list", func(t *testing.T) {
		out, err := execute(t, NewHistoryCommand(), "list")
		require.NoError(t, err)
		var runs []runReport
		require.NoError(t, json.Unmarshal([]byte(out), &runs))
		require.Len(t, runs, 1)
		assert.Equal(t, report.RunID, runs[0].RunID)
	})

	t.Run("show latest", func(t *testing.T) {
		out, err := execute(t, NewHistoryCommand(), "show", "latest")
		require.NoError(t, err)
		var shown runReport
		require.NoError(t, json.Unmarshal([]byte(out), &shown))
		assert.Equal(t, report.RunID, shown.RunID)
		assert.Len(t, shown.Issues, 4)
	})

	t.Run("export csv", func(t *testing.T) {
		out, err := execute(t, NewExportCommand(), report.RunID)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "row_index,column,issue,value\n"))
		assert.Contains(t, out, "1,age,below_min,-5")
	})

	t.Run("export json", func(t *testing.T) {
		out, err := execute(t, NewExportCommand(), "latest", "--format", "json")
		require.NoError(t, err)
		var records []map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &records))
		assert.Len(t, records, 4)
	})

	t.Run("query", func(t *testing.T) {
		out, err := execute(t, NewQueryCommand(), "kinds", "--format", "json")
		require.NoError(t, err)
		var rows []map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &rows))
		require.Len(t, rows, 3)
		assert.Equal(t, "duplicate_key", rows[0]["kind"])
	})

	t.Run("delete", func(t *testing.T) {
		_, err := execute(t, NewHistoryCommand(), "delete", report.RunID)
		require.NoError(t, err)

		_, err = execute(t, NewHistoryCommand(), "show", report.RunID)
		assert.Error(t, err)

		_, err = execute(t, NewExportCommand())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no runs recorded yet")
	})
}

func TestHistory_Disabled(t *testing.T) {
	setupProject(t, "json")
	t.Setenv("LEAPCHECK_HISTORY", "false")

	_, err := execute(t, NewHistoryCommand(), "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history is disabled")
}

func TestChecksCommand(t *testing.T) {
	setupProject(t, "json")
	t.Setenv("LEAPCHECK_DISABLED_CHECKS", "DQ03,conformance.email")

	out, err := execute(t, NewChecksCommand())
	require.NoError(t, err)

	var entries []checkEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 8)

	disabled := map[string]bool{}
	for _, e := range entries {
		if !e.Enabled {
			disabled[e.ID] = true
		}
	}
	assert.Equal(t, map[string]bool{"DQ03": true, "DQ07": true}, disabled)
	assert.Equal(t, "DQ08", entries[7].ID)

	out, err = execute(t, NewChecksCommand(), "dq08", "--format", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "custom.expressions")
	assert.Contains(t, out, "```yaml")

	_, err = execute(t, NewChecksCommand(), "DQ99")
	assert.Error(t, err)
}

func TestRulesCommand(t *testing.T) {
	setupProject(t, "json")

	out, err := execute(t, NewRulesCommand(), "--format", "json")
	require.NoError(t, err)
	var text rules.Text
	require.NoError(t, json.Unmarshal([]byte(out), &text))
	assert.Equal(t, "id,email,age", text.Required)
	assert.Equal(t, "age:0:120", text.Ranges)

	out, err = execute(t, NewRulesCommand())
	require.NoError(t, err)
	rs, err := rules.Parse([]byte(out))
	require.NoError(t, err, "yaml output parses back")
	assert.Equal(t, []string{"id", "email", "age"}, rs.RequiredColumns)
}

func TestInit(t *testing.T) {
	tests := []struct {
		name    string
		example bool
		files   []string
	}{
		{"minimal", false, []string{"leapcheck.yaml", "rules.yaml", ".gitignore"}},
		{"example", true, []string{"leapcheck.yaml", "rules.yaml", ".gitignore", filepath.Join("data", "people.csv")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupProject(t, "markdown")
			dir := filepath.Join(t.TempDir(), "project")

			args := []string{dir}
			if tt.example {
				args = append(args, "--example")
			}
			out, err := execute(t, NewInitCommand(), args...)
			require.NoError(t, err)
			assert.Contains(t, out, "initialized")

			for _, f := range tt.files {
				assert.FileExists(t, filepath.Join(dir, f))
			}

			rs, err := rules.LoadFile(filepath.Join(dir, "rules.yaml"))
			require.NoError(t, err)
			if tt.example {
				require.Len(t, rs.Checks, 1)
				assert.Equal(t, "adult", rs.Checks[0].Name)
			} else {
				assert.Equal(t, rules.Hash(rules.Default()), rules.Hash(rs))
			}

			_, err = execute(t, NewInitCommand(), dir)
			require.Error(t, err, "second init without --force")
			_, err = execute(t, NewInitCommand(), dir, "--force")
			require.NoError(t, err)
		})
	}
}

func TestInitExample_Validates(t *testing.T) {
	setupProject(t, "json")
	dir := t.TempDir()
	_, err := execute(t, NewInitCommand(), dir, "--example")
	require.NoError(t, err)

	t.Setenv("LEAPCHECK_RULES", filepath.Join(dir, "rules.yaml"))
	out, err := execute(t, NewValidateCommand(), filepath.Join(dir, "data", "people.csv"))
	require.NoError(t, err)

	var report runReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	kinds := report.Summary.IssueTypes
	assert.Equal(t, 2, kinds[core.KindDuplicateKey])
	assert.Equal(t, 1, kinds[core.KindInvalidEmail])
	assert.Equal(t, 1, kinds[core.KindMissingValue])
	assert.Equal(t, 1, kinds[core.KindBelowMin])
	assert.Equal(t, 1, kinds[core.KindAboveMax])
	assert.Equal(t, 1, kinds[core.KindValueNotAllowed])
	assert.Equal(t, 1, kinds[core.KindTypeMismatch])
	assert.Positive(t, kinds[core.KindCheckFailed])
}

func TestRenameSpecialFiles(t *testing.T) {
	assert.Equal(t, ".gitignore", renameSpecialFiles("gitignore"))
	assert.Equal(t, "data/.gitignore", renameSpecialFiles("data/gitignore"))
	assert.Equal(t, "data/people.csv", renameSpecialFiles("data/people.csv"))
}

func TestExportFormatFor(t *testing.T) {
	tests := []struct {
		path, explicit string
		want           string
		wantErr        bool
	}{
		{"issues.csv", "", "csv", false},
		{"issues.json", "", "json", false},
		{"issues.md", "", "markdown", false},
		{"report.html", "", "html", false},
		{"", "", "csv", false},
		{"issues.csv", "json", "json", false},
		{"", "xml", "", true},
	}
	for _, tt := range tests {
		got, err := exportFormatFor(tt.path, tt.explicit)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(got))
	}
}
