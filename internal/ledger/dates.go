package ledger

import (
	"time"

	"moneta/internal/core"
)

// monthStart truncates a timestamp to the first day of its month, UTC.
func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// daysInMonth returns the number of days in the given month.
func daysInMonth(year int, month time.Month) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// clampedDate builds a date in the given month, clamping the day to the last
// valid day when the month is shorter (day 31 in February becomes Feb 28/29).
func clampedDate(year int, month time.Month, day int) core.Date {
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return core.NewDate(year, int(month), day)
}

// monthKey is the canonical per-month dedup key component, e.g. "2024-02".
func monthKey(t time.Time) string {
	return t.Format("2006-01")
}
