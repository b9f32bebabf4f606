package timeutil

import "time"

// DateLayout defines the canonical date format (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date string.
func ParseDate(value string) (time.Time, error) {
	return time.Parse(DateLayout, value)
}

// FormatDate formats a time as YYYY-MM-DD in its current location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Window is an inclusive [Start, End] range used for schedule lookups.
type Window struct {
	Start time.Time
	End   time.Time
}

// DefaultWindow returns a window spanning days days starting at t's UTC date.
func DefaultWindow(t time.Time, days int) Window {
	if days <= 0 {
		days = 7
	}
	start := t.UTC().Truncate(24 * time.Hour)
	return Window{Start: start, End: start.AddDate(0, 0, days)}
}

// Contains reports whether ts falls inside the window.
func (w Window) Contains(ts time.Time) bool {
	return !ts.Before(w.Start) && !ts.After(w.End)
}
