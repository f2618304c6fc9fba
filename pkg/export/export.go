// Package export flattens issues into the four-column issue table
// (row_index, column, issue, value) and renders it in several formats.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapcheck/pkg/core"
)

// Format selects an export rendering.
type Format string

// Supported formats.
const (
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatTable    Format = "table"
	FormatHTML     Format = "html"
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatCSV, FormatJSON, FormatMarkdown, FormatTable, FormatHTML}
}

// ParseFormat converts a user-supplied name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "table", "text":
		return FormatTable, nil
	case "html":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("unknown export format %q (want csv, json, markdown, table or html)", s)
}

// Header is the export column order.
var Header = []string{"row_index", "column", "issue", "value"}

// Record is one exported issue.
type Record struct {
	RowIndex core.Optional[int]    `json:"row_index"`
	Column   core.Optional[string] `json:"column"`
	Issue    core.Kind             `json:"issue"`
	Value    core.Value            `json:"value"`
}

// Records flattens issues in order.
func Records(issues []core.Issue) []Record {
	out := make([]Record, len(issues))
	for i, is := range issues {
		out[i] = Record{RowIndex: is.Row, Column: is.Column, Issue: is.Kind, Value: is.Value}
	}
	return out
}

// Cells returns the record as text cells in Header order. Absent fields are
// empty; composite values are JSON objects.
func (r Record) Cells() []string {
	row := ""
	if i, ok := r.RowIndex.Get(); ok {
		row = strconv.Itoa(i)
	}
	return []string{row, r.Column.OrElse(""), string(r.Issue), r.Value.Text()}
}

// Write renders issues to w in the given format.
func Write(w io.Writer, issues []core.Issue, format Format) error {
	records := Records(issues)
	switch format {
	case FormatCSV:
		return writeCSV(w, records)
	case FormatJSON:
		return writeJSON(w, records)
	case FormatMarkdown, FormatTable, FormatHTML:
		return writeTable(w, records, format)
	}
	return fmt.Errorf("unknown export format %q", format)
}

func writeCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(r.Cells()); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func writeTable(w io.Writer, records []Record, format Format) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	t.AppendHeader(header)

	for _, r := range records {
		cells := r.Cells()
		row := make(table.Row, len(cells))
		for i, c := range cells {
			row[i] = c
		}
		t.AppendRow(row)
	}

	switch format {
	case FormatMarkdown:
		t.RenderMarkdown()
	case FormatHTML:
		t.RenderHTML()
	default:
		t.Render()
	}
	return nil
}

// WriteSummary renders the aggregate counts of a run as a two-column table.
func WriteSummary(w io.Writer, s core.Summary, format Format) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"metric", "count"})
	t.AppendRow(table.Row{"rows", s.Rows})
	t.AppendRow(table.Row{"cols", s.Columns})
	t.AppendRow(table.Row{"total_issues", s.TotalIssues})
	if len(s.IssueTypes) > 0 {
		t.AppendSeparator()
		for _, kc := range s.Ranked() {
			t.AppendRow(table.Row{string(kc.Kind), kc.Count})
		}
	}

	switch format {
	case FormatMarkdown:
		t.RenderMarkdown()
	case FormatCSV:
		t.RenderCSV()
	case FormatHTML:
		t.RenderHTML()
	default:
		t.Render()
	}
	return nil
}
