package core

import (
	"strings"
	"time"
)

// unambiguousLayouts are tried in order; the first that parses wins.
var unambiguousLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 -0700",
	"2006-01-02 15:04:05.999999999 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-01",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
	"2006.01.02",
	"20060102",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"Jan 2, 2006 15:04:05",
	"2 January 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"2-Jan-2006",
	"Monday, January 2, 2006",
	"Mon, Jan 2, 2006",
	time.RFC1123,
	time.RFC1123Z,
	time.RFC850,
	time.RFC822,
	time.RFC822Z,
	time.ANSIC,
	time.UnixDate,
}

// Numeric day/month forms: each is tried in both orders.
var dayFirstLayouts = []string{
	"02/01/2006", "02/01/2006 15:04:05", "02/01/2006 15:04",
	"02-01-2006", "02-01-2006 15:04:05", "02-01-2006 15:04",
	"02.01.2006", "02.01.2006 15:04:05", "02.01.2006 15:04",
}

var monthFirstLayouts = []string{
	"01/02/2006", "01/02/2006 15:04:05", "01/02/2006 15:04",
	"01-02-2006", "01-02-2006 15:04:05", "01-02-2006 15:04",
	"01.02.2006", "01.02.2006 15:04:05", "01.02.2006 15:04",
}

// ParseTime parses s as a calendar date or date-time using a permissive set
// of layouts. Numeric forms where day and month could be swapped parse only
// when exactly one reading is valid or both readings agree; otherwise the
// input is rejected. Bare numbers and two-digit years are never accepted.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, ok := parseFirst(unambiguousLayouts, s); ok {
		return t, true
	}
	if padded := normalizeYearFirst(s); padded != s {
		if t, ok := parseFirst(unambiguousLayouts, padded); ok {
			return t, true
		}
	}

	dayFirst, dayOK := parseFirst(dayFirstLayouts, normalizeDayMonth(s))
	monthFirst, monthOK := parseFirst(monthFirstLayouts, normalizeDayMonth(s))
	switch {
	case dayOK && monthOK:
		if dayFirst.Equal(monthFirst) {
			return dayFirst, true
		}
		return time.Time{}, false
	case dayOK:
		return dayFirst, true
	case monthOK:
		return monthFirst, true
	}
	return time.Time{}, false
}

func parseFirst(layouts []string, s string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// normalizeDayMonth zero-pads single-digit day and month fields so that
// "1/2/2024" matches the two-digit layouts.
func normalizeDayMonth(s string) string {
	return padDateFields(s, " ", 0, 1)
}

// normalizeYearFirst zero-pads the month and day of year-first dates, so
// that "2024-1-2" and "2024/1/2 10:30" match the unambiguous layouts.
func normalizeYearFirst(s string) string {
	date, _, _ := cutDate(s, " T")
	if i := strings.IndexAny(date, "-/."); i != 4 {
		return s
	}
	return padDateFields(s, " T", 1, 2)
}

func cutDate(s, timeSeps string) (date, rest string, sep byte) {
	if i := strings.IndexAny(s, timeSeps); i >= 0 {
		return s[:i], s[i+1:], s[i]
	}
	return s, "", 0
}

// padDateFields prefixes a zero to the single-digit fields at the given
// positions of a three-field date. Other input is returned unchanged.
func padDateFields(s, timeSeps string, fields ...int) string {
	date, rest, timeSep := cutDate(s, timeSeps)
	sep := ""
	for _, c := range []string{"/", "-", "."} {
		if strings.Count(date, c) == 2 {
			sep = c
			break
		}
	}
	if sep == "" {
		return s
	}
	parts := strings.Split(date, sep)
	for _, i := range fields {
		if len(parts[i]) == 1 {
			parts[i] = "0" + parts[i]
		}
	}
	out := strings.Join(parts, sep)
	if timeSep != 0 {
		out += string(timeSep) + rest
	}
	return out
}
