// Package calendar provides the pure date math used by contract and due
// scheduling: day-of-month clamping, inclusive month counting, and period
// overlap checks. All functions treat dates as UTC calendar days.
package calendar

import "time"

// DateUTC returns the given calendar day as midnight UTC.
func DateUTC(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Midnight truncates t to its calendar day in UTC.
func Midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AdjustToDay returns the date in anchor's month whose day is dayOfMonth,
// clamped to the month's last day. Day 31 in February yields the 28th, or
// the 29th in a leap year.
func AdjustToDay(anchor time.Time, dayOfMonth int) time.Time {
	anchor = Midnight(anchor)
	last := DaysInMonth(anchor.Year(), anchor.Month())
	if dayOfMonth > last {
		dayOfMonth = last
	}
	if dayOfMonth < 1 {
		dayOfMonth = 1
	}
	return DateUTC(anchor.Year(), anchor.Month(), dayOfMonth)
}

// NextMonth returns the first day of the month after anchor's month.
// Iterating month anchors this way never skips short months the way naive
// AddDate on day 31 does.
func NextMonth(anchor time.Time) time.Time {
	anchor = Midnight(anchor)
	return DateUTC(anchor.Year(), anchor.Month()+1, 1)
}

// MonthStart returns the first day of anchor's month.
func MonthStart(anchor time.Time) time.Time {
	anchor = Midnight(anchor)
	return DateUTC(anchor.Year(), anchor.Month(), 1)
}

// MonthsBetween counts calendar months from a's month through b's month,
// inclusive. Same month yields 1; returns 0 when b's month precedes a's.
func MonthsBetween(a, b time.Time) int {
	a, b = Midnight(a), Midnight(b)
	n := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month()) + 1
	if n < 0 {
		return 0
	}
	return n
}

// PeriodsOverlap reports whether the inclusive day ranges [aStart, aEnd] and
// [bStart, bEnd] intersect. The test is symmetric in its two ranges.
func PeriodsOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	aStart, aEnd = Midnight(aStart), Midnight(aEnd)
	bStart, bEnd = Midnight(bStart), Midnight(bEnd)
	return !aStart.After(bEnd) && !bStart.After(aEnd)
}
