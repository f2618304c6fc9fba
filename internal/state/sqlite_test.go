package state

import (
	"bytes"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapcheck/internal/testutil"
	"github.com/leapstack-labs/leapcheck/pkg/core"
	"github.com/leapstack-labs/leapcheck/pkg/export"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(":memory:"), "failed to open store")
	require.NoError(t, store.InitSchema(), "failed to init schema")
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleIssues() []core.Issue {
	return []core.Issue{
		core.NewIssue(core.KindMissingRequiredColumn).InColumn("country"),
		core.NewIssue(core.KindDuplicateKey).AtRow(0).InColumn("id").
			WithValue(core.Map(core.Field{Name: "id", Value: core.Int(1)})),
		core.NewIssue(core.KindBelowMin).AtRow(1).InColumn("age").
			WithValue(core.Int(-5)).WithExpected(core.Float(0.5)),
		core.NewIssue(core.KindInvalidEmail).AtRow(1).InColumn("email").WithValue(core.String("bad")),
	}
}

func sampleRun(source string) *core.Run {
	return &core.Run{
		Source:    source,
		RulesHash: "abc123",
		Summary: core.Summary{
			Rows:        2,
			Columns:     3,
			TotalIssues: 4,
			IssueTypes: map[core.Kind]int{
				core.KindMissingRequiredColumn: 1,
				core.KindDuplicateKey:          1,
				core.KindBelowMin:              1,
				core.KindInvalidEmail:          1,
			},
		},
		Duration: 1500 * time.Millisecond,
	}
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(":memory:"))
	assert.Equal(t, ":memory:", store.Path())
	assert.NotNil(t, store.DB())
	require.NoError(t, store.Close())
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore(nil)
	assert.NoError(t, store.Close())
	assert.Error(t, store.InitSchema())
	assert.Error(t, store.SaveRun(sampleRun("x"), nil))
	_, err := store.ListRuns(0)
	assert.Error(t, err)
}

func TestSQLiteStore_InitSchema(t *testing.T) {
	store := setupTestStore(t)

	for _, table := range []string{"runs", "issues", "issue_counts"} {
		rows, err := store.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		if assert.NoError(t, err, "table %s does not exist", table) {
			_ = rows.Close()
		}
	}

	version, err := store.GetMigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(3), version)

	// idempotent
	require.NoError(t, store.InitSchema())
}

func TestSQLiteStore_SaveAndGetRun(t *testing.T) {
	store := setupTestStore(t)

	run := sampleRun("csv:people.csv")
	require.NoError(t, store.SaveRun(run, sampleIssues()))
	require.NotEmpty(t, run.ID, "ID is generated")
	require.False(t, run.CreatedAt.IsZero(), "CreatedAt is set")

	got, err := store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "csv:people.csv", got.Source)
	assert.Equal(t, "abc123", got.RulesHash)
	assert.Equal(t, run.Summary, got.Summary)
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))
}

func TestSQLiteStore_GetIssues(t *testing.T) {
	store := setupTestStore(t)

	want := sampleIssues()
	run := sampleRun("people.csv")
	require.NoError(t, store.SaveRun(run, want))

	got, err := store.GetIssues(run.ID)
	require.NoError(t, err)
	require.Len(t, got, len(want))

	for i := range want {
		assert.Equal(t, want[i].Kind, got[i].Kind, "issue %d", i)
		assert.Equal(t, want[i].Row, got[i].Row, "issue %d", i)
		assert.Equal(t, want[i].Column, got[i].Column, "issue %d", i)
		assert.True(t, want[i].Value.Equal(got[i].Value), "issue %d value %s", i, got[i].Value)
		assert.True(t, want[i].Expected.Equal(got[i].Expected), "issue %d expected %s", i, got[i].Expected)
	}
	assert.False(t, got[0].Row.IsSome(), "dataset-level issue has no row")
}

func TestSQLiteStore_GetIssues_KeepsValueKinds(t *testing.T) {
	store := setupTestStore(t)

	ts := time.Date(2024, 3, 15, 10, 30, 0, 0, time.FixedZone("CET", 3600))
	want := []core.Issue{
		core.NewIssue(core.KindBelowMin).AtRow(1).InColumn("age").
			WithValue(core.Float(-5)).WithExpected(core.Float(0)),
		core.NewIssue(core.KindAboveMax).AtRow(2).InColumn("score").
			WithValue(core.Float(math.Inf(1))).WithExpected(core.Float(100)),
		core.NewIssue(core.KindTypeMismatch).AtRow(3).InColumn("signup").
			WithValue(core.Time(ts)).WithExpected(core.String("int")),
		core.NewIssue(core.KindDuplicateKey).AtRow(4).InColumn("id,weight").
			WithValue(core.Map(
				core.Field{Name: "id", Value: core.Int(7)},
				core.Field{Name: "weight", Value: core.Float(30)},
			)),
		core.NewIssue(core.KindValueNotAllowed).AtRow(5).InColumn("tags").
			WithValue(core.List(core.String("a"), core.Missing(), core.Bool(true))).
			WithExpected(core.List(core.String("SK"), core.String("CZ"))),
	}
	run := sampleRun("people.csv")
	require.NoError(t, store.SaveRun(run, want))

	got, err := store.GetIssues(run.ID)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Value.Kind(), got[i].Value.Kind(), "issue %d", i)
		assert.True(t, want[i].Value.Equal(got[i].Value), "issue %d value %s", i, got[i].Value)
		assert.Equal(t, want[i].Label(), got[i].Label(), "issue %d", i)
	}
	assert.Equal(t, "Value below min (0.0)", got[0].Label())

	for _, format := range export.Formats() {
		var direct, stored bytes.Buffer
		require.NoError(t, export.Write(&direct, want, format))
		require.NoError(t, export.Write(&stored, got, format))
		assert.Equal(t, direct.String(), stored.String(), "format %s", format)
	}
}

func TestSQLiteStore_GetIssues_PlainJSONRows(t *testing.T) {
	store := setupTestStore(t)

	run := sampleRun("people.csv")
	require.NoError(t, store.SaveRun(run, nil))
	_, err := store.db.Exec(`INSERT INTO issues (run_id, seq, row_index, column_name, kind, value, expected)
		VALUES (?, 0, 1, 'age', 'below_min', '-5', '0.5')`, run.ID)
	require.NoError(t, err)

	got, err := store.GetIssues(run.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, core.Int(-5), got[0].Value)
	assert.Equal(t, core.Float(0.5), got[0].Expected)
}

func TestSQLiteStore_IssueCountsView(t *testing.T) {
	store := setupTestStore(t)

	run := sampleRun("people.csv")
	issues := append(sampleIssues(), core.NewIssue(core.KindInvalidEmail).AtRow(2).InColumn("email"))
	require.NoError(t, store.SaveRun(run, issues))

	var n int
	err := store.db.QueryRow(
		`SELECT n FROM issue_counts WHERE run_id = ? AND kind = ?`, run.ID, string(core.KindInvalidEmail),
	).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	store := setupTestStore(t)

	latest, err := store.GetLatestRun()
	require.NoError(t, err)
	assert.Nil(t, latest, "no runs yet")

	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	for i, name := range []string{"first", "second", "third"} {
		run := sampleRun(name)
		run.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, store.SaveRun(run, nil))
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{name: "all", limit: 0, want: []string{"third", "second", "first"}},
		{name: "negative means all", limit: -1, want: []string{"third", "second", "first"}},
		{name: "limited", limit: 2, want: []string{"third", "second"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := store.ListRuns(tt.limit)
			require.NoError(t, err)
			var sources []string
			for _, r := range runs {
				sources = append(sources, r.Source)
			}
			assert.Equal(t, tt.want, sources)
		})
	}

	latest, err = store.GetLatestRun()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "third", latest.Source)
}

func TestSQLiteStore_SubSecondOrdering(t *testing.T) {
	store := setupTestStore(t)

	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	older := sampleRun("older")
	older.CreatedAt = base
	newer := sampleRun("newer")
	newer.CreatedAt = base.Add(100 * time.Millisecond)
	require.NoError(t, store.SaveRun(newer, nil))
	require.NoError(t, store.SaveRun(older, nil))

	latest, err := store.GetLatestRun()
	require.NoError(t, err)
	assert.Equal(t, "newer", latest.Source)
}

func TestSQLiteStore_DeleteRun(t *testing.T) {
	store := setupTestStore(t)

	run := sampleRun("people.csv")
	require.NoError(t, store.SaveRun(run, sampleIssues()))
	require.NoError(t, store.DeleteRun(run.ID))

	_, err := store.GetRun(run.ID)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, run.ID, nf.ID)

	var n int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM issues`).Scan(&n))
	assert.Zero(t, n, "issues are removed with the run")

	err = store.DeleteRun(run.ID)
	assert.True(t, errors.As(err, &nf))

	_, err = store.GetIssues("missing")
	assert.True(t, errors.As(err, &nf))
}

func TestSQLiteStore_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(path))
	require.NoError(t, store.InitSchema())
	run := sampleRun("people.csv")
	require.NoError(t, store.SaveRun(run, sampleIssues()))
	require.NoError(t, store.Close())

	reopened := NewSQLiteStore(nil)
	require.NoError(t, reopened.Open(path))
	defer func() { _ = reopened.Close() }()
	require.NoError(t, reopened.InitSchema())

	issues, err := reopened.GetIssues(run.ID)
	require.NoError(t, err)
	assert.Len(t, issues, 4)
}
