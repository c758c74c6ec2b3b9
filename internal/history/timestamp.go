package history

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts are tried in order. Layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-01",
	"2006",
}

// ParseTimestamp converts the external created_at representation into the
// stored instant: UTC, truncated to the millisecond.
//
// Accepted forms are RFC 3339 (optional fraction), the same without a zone or
// with a space separator, date-only values, and integer epoch milliseconds.
// A bare four digit value is a year, not an epoch offset. Instants whose UTC
// year falls outside 0000-9999 are rejected, since FormatTimestamp could not
// render them in a form ParseTimestamp reads back.
func ParseTimestamp(s string) (time.Time, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return time.Time{}, NewValidationError("created_at", "timestamp is required", nil)
	}

	if isEpochMillis(v) {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return time.Time{}, NewValidationError("created_at", "epoch milliseconds out of range", err)
		}
		return checkYear(normalizeTimestamp(time.UnixMilli(ms)))
	}

	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, v)
		if err == nil {
			return checkYear(normalizeTimestamp(t))
		}
		lastErr = err
	}
	return time.Time{}, NewValidationError("created_at", "unparseable timestamp "+strconv.Quote(s), lastErr)
}

// FormatTimestamp renders a stored instant in the canonical external form.
func FormatTimestamp(t time.Time) string {
	return normalizeTimestamp(t).Format("2006-01-02T15:04:05.000Z07:00")
}

// checkYear rejects instants outside the four-digit year range.
func checkYear(t time.Time) (time.Time, error) {
	if y := t.Year(); y < 0 || y > 9999 {
		return time.Time{}, NewValidationError("created_at",
			fmt.Sprintf("year %d outside 0000-9999", y), nil)
	}
	return t, nil
}

func normalizeTimestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func isEpochMillis(s string) bool {
	digits := strings.TrimPrefix(s, "-")
	if len(digits) <= 4 && digits == s {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
