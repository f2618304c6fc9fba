package core

import (
	"fmt"
)

// StructureError is returned when input is not a well-formed table.
// It is the only failure the validation engine reports as an error.
type StructureError struct {
	Reason string
	Row    int // -1 when not tied to a row
}

func (e *StructureError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("invalid dataset: row %d: %s", e.Row, e.Reason)
	}
	return fmt.Sprintf("invalid dataset: %s", e.Reason)
}

// Dataset is an in-memory table: uniquely named, ordered columns and
// ordered rows of positional values.
type Dataset struct {
	// Name identifies where the data came from (file path, table, URL).
	Name string

	columns []string
	index   map[string]int
	rows    [][]Value
}

// NewDataset builds a dataset, rejecting duplicate column names and rows
// whose width differs from the header.
func NewDataset(columns []string, rows [][]Value) (*Dataset, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; dup {
			return nil, &StructureError{Reason: fmt.Sprintf("duplicate column name %q", c), Row: -1}
		}
		index[c] = i
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, &StructureError{
				Reason: fmt.Sprintf("has %d values, expected %d", len(row), len(columns)),
				Row:    i,
			}
		}
	}
	return &Dataset{
		columns: append([]string(nil), columns...),
		index:   index,
		rows:    rows,
	}, nil
}

// MustDataset is like NewDataset but panics on error. Intended for tests
// and static fixtures.
func MustDataset(columns []string, rows ...[]Value) *Dataset {
	ds, err := NewDataset(columns, rows)
	if err != nil {
		panic(err)
	}
	return ds
}

// Columns returns the column names in order.
func (d *Dataset) Columns() []string {
	return append([]string(nil), d.columns...)
}

// NumRows returns the row count.
func (d *Dataset) NumRows() int { return len(d.rows) }

// NumColumns returns the column count.
func (d *Dataset) NumColumns() int { return len(d.columns) }

// HasColumn reports whether name is a column of the dataset.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// ColumnIndex returns the position of a column.
func (d *Dataset) ColumnIndex(name string) (int, bool) {
	i, ok := d.index[name]
	return i, ok
}

// Cell returns the value at row and column position.
func (d *Dataset) Cell(row, col int) Value {
	return d.rows[row][col]
}

// Row returns the values of a row in column order. The slice must not be modified.
func (d *Dataset) Row(i int) []Value {
	return d.rows[i]
}

// RowMap returns a row as a column name to value mapping.
func (d *Dataset) RowMap(i int) map[string]Value {
	m := make(map[string]Value, len(d.columns))
	for j, c := range d.columns {
		m[c] = d.rows[i][j]
	}
	return m
}

// Column returns every value of the named column in row order.
func (d *Dataset) Column(name string) ([]Value, bool) {
	j, ok := d.index[name]
	if !ok {
		return nil, false
	}
	out := make([]Value, len(d.rows))
	for i, row := range d.rows {
		out[i] = row[j]
	}
	return out, true
}

// Head returns a dataset sharing the first n rows.
func (d *Dataset) Head(n int) *Dataset {
	if n < 0 || n > len(d.rows) {
		n = len(d.rows)
	}
	return &Dataset{Name: d.Name, columns: d.columns, index: d.index, rows: d.rows[:n]}
}

// Validate re-checks structural invariants. A zero Dataset or nil pointer is invalid.
func (d *Dataset) Validate() error {
	if d == nil || d.index == nil {
		return &StructureError{Reason: "dataset is not initialized", Row: -1}
	}
	for i, row := range d.rows {
		if len(row) != len(d.columns) {
			return &StructureError{
				Reason: fmt.Sprintf("has %d values, expected %d", len(row), len(d.columns)),
				Row:    i,
			}
		}
	}
	return nil
}
