package core

import (
	"fmt"
	"strings"
	"time"
)

// dateLayouts are tried in order. All produce UTC calendar dates so the
// resulting year/month/day never shift with the process timezone.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2.1.2006",
	"02.01.2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ParseDate parses YYYY-MM-DD, YYYY/MM/DD or DD.MM.YYYY into a UTC
// calendar date, falling back to timestamp layouts. The second return
// value is false when nothing matched.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			// Collapse any time-of-day component to a pure calendar date.
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// FormatDate renders a date as ISO-8601 (YYYY-MM-DD).
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// MonthKey renders the YYYY-MM partition key used by the ledger.
func MonthKey(t time.Time) string {
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}
