// Package duestore defines the monthly-due persistence port (interface).
package duestore

import (
	"context"
	"time"

	"github.com/rentwise/rentd/internal/domain/due"
)

// Store is the port interface for monthly-due persistence. The pair
// (flat id, due date) is unique; Create on a duplicate pair returns
// domain.ErrConflict, which due generation treats as "already exists".
type Store interface {
	// Create persists a new due.
	Create(ctx context.Context, d *due.Due) error

	// ExistsFor reports whether a due already exists for the flat on the
	// given date. This is the idempotency check for due generation.
	ExistsFor(ctx context.Context, flatID string, date time.Time) (bool, error)

	// ByContract returns the contract's dues ordered by due date.
	ByContract(ctx context.Context, contractID string) ([]due.Due, error)

	// HasPaid reports whether any of the contract's dues has money settled
	// against it (PAID or PARTIALLY_PAID).
	HasPaid(ctx context.Context, contractID string) (bool, error)

	// CancelUnpaidFrom transitions the contract's UNPAID and OVERDUE dues
	// with due date >= from to CANCELLED and returns how many it touched.
	// A zero from cancels all of the contract's unpaid dues. Paid dues are
	// never modified. Safe to re-run.
	CancelUnpaidFrom(ctx context.Context, contractID string, from time.Time) (int, error)

	// MarkOverdue transitions UNPAID dues whose due date is before today to
	// OVERDUE and returns how many it touched. Safe to re-run.
	MarkOverdue(ctx context.Context, today time.Time) (int, error)
}
