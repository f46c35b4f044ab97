package generic

import (
	"strings"
	"time"
)

// =============================================================================
// DATES - Date fields as the host stores them
// =============================================================================

// DateLayout is how date fields are stored.
const DateLayout = "2006-01-02"

// DateOf reads a date field. Strings may be YYYY-MM-DD or RFC3339; the
// result is midnight UTC of that day.
func DateOf(v Value) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}
		return truncateDay(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		if d, err := time.Parse(DateLayout, s); err == nil {
			return d, true
		}
		if d, err := time.Parse(time.RFC3339, s); err == nil {
			return truncateDay(d), true
		}
	}
	return time.Time{}, false
}

// FormatDate renders t as a date field value.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
