package schedule

import (
	"testing"
	"time"
)

func TestParseDaily(t *testing.T) {
	c, err := Parse("daily")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Hour != 0 || c.Minute != 0 || c.Weekday != nil {
		t.Errorf("daily should be 00:00 every day, got %+v", c)
	}
}

func TestParseDailyWithTime(t *testing.T) {
	c, err := Parse("daily:01:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Hour != 1 || c.Minute != 0 || c.Weekday != nil {
		t.Errorf("expected 01:00 daily, got %+v", c)
	}
}

func TestParseWeekly(t *testing.T) {
	c, err := Parse("weekly:Mon:10:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Weekday == nil || *c.Weekday != time.Monday || c.Hour != 10 {
		t.Errorf("expected Monday 10:00, got %+v", c)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, expr := range []string{"", "sometimes", "25:00", "daily:9", "weekly:Funday"} {
		if _, err := Parse(expr); err == nil {
			t.Errorf("expected error for %q", expr)
		}
	}
}

func TestNextAfterDaily(t *testing.T) {
	c, _ := Parse("daily:01:00")

	// Before today's slot: fires today.
	now := time.Date(2024, 6, 10, 0, 30, 0, 0, time.UTC)
	next := c.NextAfter(now)
	want := time.Date(2024, 6, 10, 1, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("NextAfter = %v, want %v", next, want)
	}

	// After today's slot: fires tomorrow.
	now = time.Date(2024, 6, 10, 2, 0, 0, 0, time.UTC)
	next = c.NextAfter(now)
	want = time.Date(2024, 6, 11, 1, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("NextAfter = %v, want %v", next, want)
	}
}

func TestNextAfterWeekly(t *testing.T) {
	c, _ := Parse("weekly:Mon:10:00")

	// Wednesday → next Monday.
	now := time.Date(2024, 6, 12, 12, 0, 0, 0, time.UTC)
	next := c.NextAfter(now)
	want := time.Date(2024, 6, 17, 10, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("NextAfter = %v, want %v", next, want)
	}
	if next.Weekday() != time.Monday {
		t.Errorf("expected Monday, got %s", next.Weekday())
	}
}
