package calendar

import (
	"testing"
	"time"
)

func TestDaysInMonth(t *testing.T) {
	cases := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2024, time.January, 31},
		{2024, time.February, 29}, // leap year
		{2025, time.February, 28},
		{2024, time.April, 30},
		{2000, time.February, 29}, // divisible by 400
		{1900, time.February, 28}, // divisible by 100 but not 400
	}
	for _, c := range cases {
		if got := DaysInMonth(c.year, c.month); got != c.want {
			t.Errorf("DaysInMonth(%d, %s) = %d, want %d", c.year, c.month, got, c.want)
		}
	}
}

func TestAdjustToDayClampsShortMonths(t *testing.T) {
	feb24 := DateUTC(2024, time.February, 1)
	if got := AdjustToDay(feb24, 31); got.Day() != 29 {
		t.Errorf("expected day 29 in leap February, got %d", got.Day())
	}

	feb25 := DateUTC(2025, time.February, 15)
	if got := AdjustToDay(feb25, 31); got.Day() != 28 {
		t.Errorf("expected day 28 in non-leap February, got %d", got.Day())
	}

	jan := DateUTC(2024, time.January, 10)
	if got := AdjustToDay(jan, 5); got.Day() != 5 {
		t.Errorf("expected day 5, got %d", got.Day())
	}
}

func TestNextMonthFromDay31(t *testing.T) {
	got := NextMonth(DateUTC(2024, time.January, 31))
	want := DateUTC(2024, time.February, 1)
	if !got.Equal(want) {
		t.Errorf("NextMonth = %v, want %v", got, want)
	}

	// December rolls into the next year.
	got = NextMonth(DateUTC(2024, time.December, 15))
	want = DateUTC(2025, time.January, 1)
	if !got.Equal(want) {
		t.Errorf("NextMonth = %v, want %v", got, want)
	}
}

func TestMonthsBetween(t *testing.T) {
	cases := []struct {
		a, b time.Time
		want int
	}{
		{DateUTC(2024, time.January, 1), DateUTC(2024, time.December, 31), 12},
		{DateUTC(2024, time.January, 15), DateUTC(2024, time.January, 20), 1},
		{DateUTC(2024, time.November, 1), DateUTC(2025, time.February, 1), 4},
		{DateUTC(2024, time.May, 1), DateUTC(2024, time.April, 30), 0},
	}
	for _, c := range cases {
		if got := MonthsBetween(c.a, c.b); got != c.want {
			t.Errorf("MonthsBetween(%v, %v) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestPeriodsOverlapSymmetric(t *testing.T) {
	cases := []struct {
		aStart, aEnd, bStart, bEnd time.Time
		want                       bool
	}{
		// Clear overlap.
		{DateUTC(2024, 1, 1), DateUTC(2024, 6, 30), DateUTC(2024, 6, 1), DateUTC(2024, 12, 31), true},
		// Touching on a single shared day counts (inclusive ranges).
		{DateUTC(2024, 1, 1), DateUTC(2024, 6, 30), DateUTC(2024, 6, 30), DateUTC(2024, 12, 31), true},
		// Adjacent but disjoint.
		{DateUTC(2024, 1, 1), DateUTC(2024, 6, 30), DateUTC(2024, 7, 1), DateUTC(2024, 12, 31), false},
		// One range fully inside the other.
		{DateUTC(2024, 1, 1), DateUTC(2024, 12, 31), DateUTC(2024, 3, 1), DateUTC(2024, 4, 1), true},
	}
	for _, c := range cases {
		got := PeriodsOverlap(c.aStart, c.aEnd, c.bStart, c.bEnd)
		if got != c.want {
			t.Errorf("PeriodsOverlap(%v..%v, %v..%v) = %v, want %v",
				c.aStart, c.aEnd, c.bStart, c.bEnd, got, c.want)
		}
		// Symmetry.
		if rev := PeriodsOverlap(c.bStart, c.bEnd, c.aStart, c.aEnd); rev != got {
			t.Errorf("overlap not symmetric for %v..%v vs %v..%v", c.aStart, c.aEnd, c.bStart, c.bEnd)
		}
	}
}
