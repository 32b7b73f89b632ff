package core

import (
	"strings"
	"time"
)

// dateLayouts lists the formats accepted by ParseDate, tried in order.
// Slash, dash and dot dates are always day-first, so one column never mixes
// conventions.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2/1/2006 15:04:05",
	"02-01-2006",
	"02.01.2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// ParseDate parses s with the first matching layout. It never fails loudly:
// ok is false when no layout matches. The result is truncated to the day in UTC.
func ParseDate(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			y, m, d := parsed.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// MonthKey formats t as a zero-padded, year-first YYYY-MM key. Keys sort
// lexically in calendar order.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}
