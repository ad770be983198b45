package content

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ParseDate parses the loosely formatted dates found in index records
// ("2025-09-17", "2025-09-17 10:30:00", RFC 3339, "Sep 17, 2025", ...).
// Dates without a zone are read as UTC. Missing or unparsable dates return
// the zero time and false.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatTimestamp renders a timestamp the way the last-read marker stores it.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
