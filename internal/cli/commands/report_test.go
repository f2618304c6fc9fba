package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clitestutil "github.com/leapstack-labs/leapcheck/internal/cli/testutil"
	"github.com/leapstack-labs/leapcheck/internal/cli/config"
	"github.com/leapstack-labs/leapcheck/internal/cli/output"
	"github.com/leapstack-labs/leapcheck/internal/testutil"
	"github.com/leapstack-labs/leapcheck/pkg/core"
	"github.com/leapstack-labs/leapcheck/pkg/rules"
)

func sampleRun() (*core.Run, []core.Issue) {
	ds := core.MustDataset([]string{"id", "email", "age"},
		[]core.Value{core.Int(1), core.String("a@x.com"), core.Int(30)},
		[]core.Value{core.Int(1), core.String("bad"), core.Int(-5)},
	)
	issues := []core.Issue{
		core.NewIssue(core.KindBelowMin).AtRow(1).InColumn("age").WithValue(core.Int(-5)).WithExpected(core.Float(0)),
		core.NewIssue(core.KindInvalidEmail).AtRow(1).InColumn("email").WithValue(core.String("bad")),
	}
	return &core.Run{
		ID:        "run-1",
		Source:    "people.csv",
		RulesHash: "abc123",
		Summary:   core.Summarize(ds, issues),
		CreatedAt: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
		Duration:  12 * time.Millisecond,
	}, issues
}

func TestRenderReport(t *testing.T) {
	run, issues := sampleRun()

	t.Run("markdown", func(t *testing.T) {
		tr := clitestutil.MarkdownCapture()
		require.NoError(t, renderReport(tr.Renderer, run, issues))

		out := tr.Output()
		clitestutil.AssertMarkdownReport(t, out, "people.csv", core.KindBelowMin, core.KindInvalidEmail)
		clitestutil.AssertContains(t, out, "- **Run**: run-1", "### Issues")
	})

	t.Run("text", func(t *testing.T) {
		tr := clitestutil.NewCapture(output.ModeText, false)
		require.NoError(t, renderReport(tr.Renderer, run, issues))

		out := tr.Output()
		clitestutil.AssertNoANSI(t, out)
		clitestutil.AssertContains(t, out, "people.csv", "invalid_email", "2 issues found")
	})

	t.Run("text without issues", func(t *testing.T) {
		clean := *run
		clean.Summary = core.Summary{Rows: 2, Columns: 3, IssueTypes: map[core.Kind]int{}}
		tr := clitestutil.NewCapture(output.ModeText, false)
		require.NoError(t, renderReport(tr.Renderer, &clean, nil))
		clitestutil.AssertContains(t, tr.Output(), "No issues found")
	})

	t.Run("json", func(t *testing.T) {
		tr := clitestutil.JSONCapture()
		require.NoError(t, renderReport(tr.Renderer, run, nil))

		var report runReport
		tr.DecodeJSON(t, &report)
		assert.Equal(t, "run-1", report.RunID)
		assert.NotNil(t, report.Issues, "issues encode as an empty list")
		assert.Empty(t, report.Issues)
	})
}

func TestRenderRunList(t *testing.T) {
	run, _ := sampleRun()

	tr := clitestutil.MarkdownCapture()
	require.NoError(t, renderRunList(tr.Renderer, []*core.Run{run}))
	clitestutil.AssertContains(t, tr.Output(), "run-1", "(1 run)")

	tr.Reset()
	require.NoError(t, renderRunList(tr.Renderer, nil))
	clitestutil.AssertContains(t, tr.Output(), "No runs recorded yet")

	tr = clitestutil.JSONCapture()
	require.NoError(t, renderRunList(tr.Renderer, []*core.Run{run}))
	var reports []runReport
	tr.DecodeJSON(t, &reports)
	require.Len(t, reports, 1)
	assert.Empty(t, reports[0].Issues)
}

func TestFailOn(t *testing.T) {
	_, issues := sampleRun()
	assert.True(t, failOn(issues, core.SeverityWarning))
	assert.False(t, failOn(issues, core.SeverityError))
	assert.False(t, failOn(nil, core.SeverityInfo))

	withError := append(issues, core.NewIssue(core.KindUnknownExpectedType))
	assert.True(t, failOn(withError, core.SeverityError))
}

func TestLoadRules(t *testing.T) {
	dir := clitestutil.SetupTestProject(t)

	tests := []struct {
		name        string
		path        string
		flagChanged bool
		wantDefault bool
		wantErr     bool
	}{
		{name: "project rules", path: filepath.Join(dir, clitestutil.ProjectRules)},
		{name: "missing default falls back", path: filepath.Join(dir, "absent.yaml"), wantDefault: true},
		{name: "missing explicit fails", path: filepath.Join(dir, "absent.yaml"), flagChanged: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{}
			cmd.Flags().String("rules", "", "")
			if tt.flagChanged {
				require.NoError(t, cmd.Flags().Set("rules", tt.path))
			}
			logger, logs := testutil.NewCaptureLogger()

			rs, err := loadRules(cmd, &config.Config{Rules: tt.path}, logger)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantDefault {
				assert.Equal(t, rules.Hash(rules.Default()), rules.Hash(rs))
				assert.True(t, logs.Contains("using default rules"))
				return
			}
			assert.Equal(t, []string{"id", "email", "age"}, rs.RequiredColumns)
			assert.Empty(t, logs.String())
		})
	}

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("required_columns: {"), 0o600))
	_, err := loadRules(&cobra.Command{}, &config.Config{Rules: bad}, testutil.NewTestLogger(t))
	assert.Error(t, err)
}

func TestProjectValidates(t *testing.T) {
	dir := clitestutil.SetupTestProject(t)
	config.ResetConfig()
	t.Setenv("LEAPCHECK_RULES", filepath.Join(dir, clitestutil.ProjectRules))
	t.Setenv("LEAPCHECK_STATE_PATH", filepath.Join(dir, ".leapcheck", "history.db"))
	t.Setenv("LEAPCHECK_OUTPUT", "json")

	out, err := execute(t, NewValidateCommand(), filepath.Join(dir, filepath.FromSlash(clitestutil.ProjectDataset)))
	require.NoError(t, err)

	var report runReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 4, report.Summary.TotalIssues)
	assert.FileExists(t, filepath.Join(dir, ".leapcheck", "history.db"))
}
