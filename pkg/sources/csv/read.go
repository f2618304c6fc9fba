package csv

import (
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/leapstack-labs/leapcheck/pkg/core"
	"github.com/leapstack-labs/leapcheck/pkg/source"
)

// defaultNA are the cell values read as missing.
var defaultNA = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

var boolTokens = map[string]bool{
	"true": true, "True": true, "TRUE": true,
	"false": false, "False": false, "FALSE": false,
}

// Read parses delimited text with a header row into a dataset.
//
// Missing tokens become core.Missing. Unless opts.NoInfer is set each
// column is typed as a whole: all integers gives Int (Float when the
// column also has missing cells), all booleans gives Bool, all numbers
// gives Float, anything else keeps the raw text.
func Read(r io.Reader, opts Options) (*core.Dataset, error) {
	dec, err := decoder(opts.Encoding)
	if err != nil {
		return nil, err
	}

	cr := stdcsv.NewReader(transform.NewReader(r, dec))
	cr.FieldsPerRecord = -1
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.Comment = opts.Comment

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &core.StructureError{Reason: "no columns to parse from file", Row: -1}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	columns := source.UniqueNames(header)

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		if len(rec) > len(columns) {
			line, _ := cr.FieldPos(0)
			return nil, &core.StructureError{
				Reason: fmt.Sprintf("line %d: expected %d fields, saw %d", line, len(columns), len(rec)),
				Row:    len(records),
			}
		}
		records = append(records, rec)
	}

	na := make(map[string]bool, len(defaultNA)+len(opts.NAValues))
	for _, s := range defaultNA {
		na[s] = true
	}
	for _, s := range opts.NAValues {
		na[s] = true
	}

	rows := make([][]core.Value, len(records))
	for i := range rows {
		rows[i] = make([]core.Value, len(columns))
	}
	for j := range columns {
		cells := make([]string, len(records))
		present := make([]bool, len(records))
		for i, rec := range records {
			if j < len(rec) && !na[rec[j]] {
				cells[i], present[i] = rec[j], true
			}
		}
		for i, v := range typeColumn(cells, present, opts.NoInfer) {
			rows[i][j] = v
		}
	}

	return core.NewDataset(columns, rows)
}

// decoder resolves an IANA charset name. The default UTF-8 decoder also
// strips a leading byte order mark.
func decoder(name string) (transform.Transformer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return unicode.BOMOverride(unicode.UTF8.NewDecoder()), nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return enc.NewDecoder(), nil
}

type columnKind int

const (
	colEmpty columnKind = iota
	colInt
	colBool
	colFloat
	colText
)

func classify(cells []string, present []bool) (kind columnKind, hasMissing bool) {
	isInt, isBool, isFloat := true, true, true
	seen := false
	for i, c := range cells {
		if !present[i] {
			hasMissing = true
			continue
		}
		seen = true
		t := strings.TrimSpace(c)
		if isInt {
			if _, err := strconv.ParseInt(t, 10, 64); err != nil {
				isInt = false
			}
		}
		if isBool {
			if _, ok := boolTokens[t]; !ok {
				isBool = false
			}
		}
		if isFloat {
			if _, ok := core.ParseNumber(t); !ok {
				isFloat = false
			}
		}
	}
	switch {
	case !seen:
		return colEmpty, hasMissing
	case isInt:
		return colInt, hasMissing
	case isBool:
		return colBool, hasMissing
	case isFloat:
		return colFloat, hasMissing
	}
	return colText, hasMissing
}

func typeColumn(cells []string, present []bool, noInfer bool) []core.Value {
	out := make([]core.Value, len(cells))
	kind := colText
	hasMissing := false
	if !noInfer {
		kind, hasMissing = classify(cells, present)
	}
	for i, c := range cells {
		if !present[i] {
			continue // zero Value is Missing
		}
		t := strings.TrimSpace(c)
		switch kind {
		case colInt:
			n, _ := strconv.ParseInt(t, 10, 64)
			if hasMissing {
				out[i] = core.Float(float64(n))
			} else {
				out[i] = core.Int(n)
			}
		case colBool:
			out[i] = core.Bool(boolTokens[t])
		case colFloat:
			f, _ := core.ParseNumber(t)
			out[i] = core.Float(f)
		default:
			out[i] = core.String(c)
		}
	}
	return out
}
