package domain

import (
	"fmt"
	"time"
)

const dateOnlyLayout = "2006-01-02"

// isoLayouts are the ISO-8601 shapes accepted by ParseDate, most specific
// first. Fractional seconds parse with any layout that has seconds.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	dateOnlyLayout,
}

// ParseDate parses an ISO-8601 timestamp, with or without offset and seconds,
// or a bare calendar date. Zoneless input is read as UTC.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate renders t as the canonical persisted timestamp (UTC, RFC 3339).
func FormatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// Month is a calendar month bucket. The zero value is the bucket shared by
// records whose date cannot be parsed.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the calendar month of an ISO-8601 date as written (no
// timezone conversion). ok is false when the date cannot be parsed.
func MonthOf(date string) (Month, bool) {
	if t, ok := ParseDate(date); ok {
		return Month{Year: t.Year(), Month: t.Month()}, true
	}
	// Dates are calendar days: fall back to a leading YYYY-MM-DD or YYYY-MM.
	for _, p := range []struct {
		n      int
		layout string
	}{{10, dateOnlyLayout}, {7, "2006-01"}} {
		if len(date) < p.n {
			continue
		}
		if t, err := time.Parse(p.layout, date[:p.n]); err == nil {
			return Month{Year: t.Year(), Month: t.Month()}, true
		}
	}
	return Month{}, false
}

// Before orders months chronologically; the unknown bucket sorts first.
func (m Month) Before(other Month) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

// IsZero reports whether m is the unknown-date bucket.
func (m Month) IsZero() bool { return m.Year == 0 && m.Month == 0 }

// Label renders the month the way the chart axis shows it, e.g. "Sep 2024".
func (m Month) Label() string {
	if m.IsZero() {
		return "Unknown"
	}
	return fmt.Sprintf("%s %d", m.Month.String()[:3], m.Year)
}
