package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/leapstack-labs/leapcheck/pkg/core"
)

// issueRecord is one issues row. value and expected hold plain JSON for
// queries; the typed columns round-trip the value kinds.
type issueRecord struct {
	row           sql.NullInt64
	column        sql.NullString
	value         string
	expected      sql.NullString
	valueTyped    sql.NullString
	expectedTyped sql.NullString
}

func encodeIssue(is core.Issue) (issueRecord, error) {
	var rec issueRecord
	if r, ok := is.Row.Get(); ok {
		rec.row = sql.NullInt64{Int64: int64(r), Valid: true}
	}
	if c, ok := is.Column.Get(); ok {
		rec.column = sql.NullString{String: c, Valid: true}
	}

	value, err := json.Marshal(is.Value)
	if err != nil {
		return rec, err
	}
	rec.value = string(value)
	if rec.valueTyped, err = encodeTyped(is.Value); err != nil {
		return rec, err
	}

	if !is.Expected.IsMissing() {
		expected, err := json.Marshal(is.Expected)
		if err != nil {
			return rec, err
		}
		rec.expected = sql.NullString{String: string(expected), Valid: true}
		if rec.expectedTyped, err = encodeTyped(is.Expected); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

func encodeTyped(v core.Value) (sql.NullString, error) {
	b, err := core.MarshalTagged(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// GetIssues returns the issues of a run in their original order.
func (s *SQLiteStore) GetIssues(runID string) ([]core.Issue, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	if _, err := s.GetRun(runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx(),
		`SELECT row_index, column_name, kind, value, expected, value_typed, expected_typed
		 FROM issues WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query issues: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var issues []core.Issue
	for rows.Next() {
		var (
			rec  issueRecord
			kind string
		)
		if err := rows.Scan(&rec.row, &rec.column, &kind, &rec.value, &rec.expected,
			&rec.valueTyped, &rec.expectedTyped); err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		is, err := decodeIssue(core.Kind(kind), rec)
		if err != nil {
			return nil, err
		}
		issues = append(issues, is)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating issues: %w", err)
	}
	return issues, nil
}

func decodeIssue(kind core.Kind, rec issueRecord) (core.Issue, error) {
	is := core.NewIssue(kind)
	if rec.row.Valid {
		is = is.AtRow(int(rec.row.Int64))
	}
	if rec.column.Valid {
		is = is.InColumn(rec.column.String)
	}

	value, err := decodeStored(rec.valueTyped, sql.NullString{String: rec.value, Valid: true})
	if err != nil {
		return is, fmt.Errorf("invalid issue value: %w", err)
	}
	is = is.WithValue(value)

	if rec.expected.Valid {
		expected, err := decodeStored(rec.expectedTyped, rec.expected)
		if err != nil {
			return is, fmt.Errorf("invalid issue expected value: %w", err)
		}
		is = is.WithExpected(expected)
	}
	return is, nil
}

// decodeStored prefers the typed column. Rows written before it existed
// only have plain JSON, where a float like 30.0 reads back as an int.
func decodeStored(typed, plain sql.NullString) (core.Value, error) {
	if typed.Valid {
		return core.UnmarshalTagged([]byte(typed.String))
	}
	var v core.Value
	if !plain.Valid {
		return v, nil
	}
	err := json.Unmarshal([]byte(plain.String), &v)
	return v, err
}
