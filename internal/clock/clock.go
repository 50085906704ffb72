// Package clock abstracts the current time so date-driven logic is
// deterministic in tests.
package clock

import (
	"time"

	"github.com/rentwise/rentd/internal/calendar"
)

// Clock supplies the current instant and the current calendar day.
type Clock interface {
	Now() time.Time
	// Today returns the current calendar day as midnight UTC.
	Today() time.Time
}

// System reads the wall clock.
type System struct{}

func (System) Now() time.Time   { return time.Now().UTC() }
func (System) Today() time.Time { return calendar.Midnight(time.Now()) }

// Fixed always reports the same instant. Test helper.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time   { return f.T }
func (f Fixed) Today() time.Time { return calendar.Midnight(f.T) }
