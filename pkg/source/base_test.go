package source

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapcheck/pkg/core"
)

func TestBaseSQLSource_Close(t *testing.T) {
	tests := []struct {
		name    string
		setupDB bool
	}{
		{name: "close with nil DB", setupDB: false},
		{name: "close with open DB", setupDB: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLSource{}

			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				mock.ExpectClose()
				base.DB = db
			}

			assert.NoError(t, base.Close())
		})
	}
}

func TestBaseSQLSource_LoadQuery(t *testing.T) {
	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		setupDB   bool
		setupMock func(mock sqlmock.Sqlmock)
		wantCols  []string
		wantRows  [][]core.Value
		errMsg    string
	}{
		{
			name:    "query without connection",
			setupDB: false,
			errMsg:  "database connection not established",
		},
		{
			name:    "rows become values",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "email", "score", "seen"}).
					AddRow(int64(1), "a@x.com", 1.5, ts).
					AddRow(int64(2), nil, nil, nil)
				mock.ExpectQuery("SELECT").WillReturnRows(rows)
			},
			wantCols: []string{"id", "email", "score", "seen"},
			wantRows: [][]core.Value{
				{core.Int(1), core.String("a@x.com"), core.Float(1.5), core.Time(ts)},
				{core.Int(2), core.Missing(), core.Missing(), core.Missing()},
			},
		},
		{
			name:    "duplicate result columns",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id", "id"}).AddRow(int64(1), int64(2)))
			},
			wantCols: []string{"id", "id.1"},
			wantRows: [][]core.Value{{core.Int(1), core.Int(2)}},
		},
		{
			name:    "query with error",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT").WillReturnError(assert.AnError)
			},
			errMsg: "failed to execute query",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLSource{}

			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				defer func() { _ = db.Close() }()
				tt.setupMock(mock)
				base.DB = db
			}

			ds, err := base.LoadQuery(context.Background(), "SELECT * FROM users")
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCols, ds.Columns())
			require.Equal(t, len(tt.wantRows), ds.NumRows())
			for i, want := range tt.wantRows {
				got := ds.Row(i)
				for j := range want {
					assert.True(t, want[j].Equal(got[j]), "row %d col %d: got %s want %s", i, j, got[j], want[j])
				}
			}
		})
	}
}

func TestSelectQuery(t *testing.T) {
	q, err := SelectQuery(Config{Type: "sqlite", Table: "main.users"})
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "main"."users"`, q)

	q, err = SelectQuery(Config{Type: "sqlite", Table: "users", Query: " SELECT 1 "})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", q)

	_, err = SelectQuery(Config{Type: "postgres"})
	assert.EqualError(t, err, "postgres source needs a table or a query")

	assert.Equal(t, `"we""ird"`, QuoteQualified(`we"ird`))
}
