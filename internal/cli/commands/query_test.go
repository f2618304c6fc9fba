package commands

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapcheck/internal/state"
	"github.com/leapstack-labs/leapcheck/pkg/core"
)

// setupTestDB records two runs in a fresh history database.
func setupTestDB(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "history.db")
	store := state.NewSQLiteStore(nil)
	require.NoError(t, store.Open(path))
	defer func() { _ = store.Close() }()
	require.NoError(t, store.InitSchema())

	ds := core.MustDataset([]string{"id"}, []core.Value{core.Int(1)})
	first := []core.Issue{
		core.NewIssue(core.KindMissingValue).AtRow(0).InColumn("email"),
		core.NewIssue(core.KindMissingValue).AtRow(1).InColumn("email"),
		core.NewIssue(core.KindBelowMin).AtRow(1).InColumn("age").WithValue(core.Int(-5)),
	}
	second := []core.Issue{
		core.NewIssue(core.KindMissingValue).AtRow(3).InColumn("email"),
	}
	for _, issues := range [][]core.Issue{first, second} {
		run := &core.Run{Source: "people.csv", RulesHash: "abc", Summary: core.Summarize(ds, issues)}
		require.NoError(t, store.SaveRun(run, issues))
	}
	return path
}

func openTestDB(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := openStateDBReadOnly(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestQuery_Tables(t *testing.T) {
	db := openTestDB(t, setupTestDB(t))
	ctx := context.Background()

	buf := new(bytes.Buffer)
	require.NoError(t, listTablesFromDB(ctx, buf, db, "csv", false))
	out := buf.String()
	assert.Contains(t, out, "runs,table")
	assert.Contains(t, out, "issues,table")
	assert.Contains(t, out, "issue_counts,view")
	assert.NotContains(t, out, "goose_db_version")

	buf.Reset()
	require.NoError(t, listTablesFromDB(ctx, buf, db, "csv", true))
	assert.NotContains(t, buf.String(), "runs,table")
	assert.Contains(t, buf.String(), "issue_counts")
}

func TestQuery_Schema(t *testing.T) {
	db := openTestDB(t, setupTestDB(t))
	ctx := context.Background()

	buf := new(bytes.Buffer)
	require.NoError(t, showSchemaFromDB(ctx, buf, db, "issues", "json"))

	var schema schemaOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &schema))
	assert.Equal(t, "issues", schema.Name)
	assert.Equal(t, "table", schema.Type)

	var names []string
	for _, c := range schema.Columns {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "run_id")
	assert.Contains(t, names, "kind")

	err := showSchemaFromDB(ctx, buf, db, "missing", "table")
	assert.Error(t, err)

	err = showSchemaFromDB(ctx, buf, db, "issues; DROP TABLE runs", "table")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid table name")
}

func TestQuery_Kinds(t *testing.T) {
	db := openTestDB(t, setupTestDB(t))

	buf := new(bytes.Buffer)
	require.NoError(t, queryAndRender(context.Background(), buf, db, kindsQuery, "csv"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "kind,issues,runs", lines[0])
	assert.Equal(t, "missing_value,3,2", lines[1])
	assert.Equal(t, "below_min,1,1", lines[2])
}

func TestQuery_ExecuteAndRender(t *testing.T) {
	path := setupTestDB(t)

	tests := []struct {
		name   string
		query  string
		format string
		want   string
	}{
		{"csv", "SELECT COUNT(*) AS n FROM runs", "csv", "n\n2"},
		{"markdown", "SELECT COUNT(*) AS n FROM issues", "md", "| 4 |"},
		{"table", "SELECT source FROM runs LIMIT 1", "table", "people.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := new(bytes.Buffer)
			require.NoError(t, executeAndRender(context.Background(), buf, path, tt.query, tt.format))
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestQuery_ReadOnly(t *testing.T) {
	path := setupTestDB(t)
	err := executeAndRender(context.Background(), new(bytes.Buffer), path, "DELETE FROM runs", "table")
	assert.Error(t, err)
}
