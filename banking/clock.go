package banking

import "time"

// =============================================================================
// CLOCK - Injectable "now" so status classification is testable
// =============================================================================

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// =============================================================================
// TIME UTILITIES
// =============================================================================

// EpochMillis converts t to milliseconds since the Unix epoch.
func EpochMillis(t time.Time) int64 { return t.UnixMilli() }

// StartOfDay returns midnight at the start of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayBounds returns the epoch millis of the midnight that started the
// current day and the midnight that starts the next one.
// AddDate keeps DST days correct (23h/25h).
func DayBounds(now time.Time) (today, tomorrow int64) {
	start := StartOfDay(now)
	return EpochMillis(start), EpochMillis(start.AddDate(0, 0, 1))
}
