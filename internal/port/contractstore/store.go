// Package contractstore defines the contract persistence port (interface).
package contractstore

import (
	"context"
	"time"

	"github.com/rentwise/rentd/internal/domain/contract"
)

// Store is the port interface for contract persistence. Implementations
// must honor the storage invariants: at most one ACTIVE contract per flat,
// and optimistic versioning on updates.
type Store interface {
	// Create persists a new contract. A violation of the one-active-per-flat
	// constraint surfaces as domain.ErrConflict.
	Create(ctx context.Context, c *contract.Contract) error

	// Update persists changes to an existing contract. The write succeeds
	// only if the stored version matches c.Version; a stale version returns
	// domain.ErrConflict and c is left unchanged in the store.
	Update(ctx context.Context, c *contract.Contract) error

	// Get returns the contract by id, or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*contract.Contract, error)

	// ActiveByFlat returns the flat's ACTIVE contract, or domain.ErrNotFound.
	ActiveByFlat(ctx context.Context, flatID string) (*contract.Contract, error)

	// HasActive reports whether the flat has an ACTIVE contract.
	HasActive(ctx context.Context, flatID string) (bool, error)

	// FindOverlapping returns every contract for the flat whose inclusive
	// date range intersects [start, end], excluding CANCELLED and SUPERSEDED
	// contracts and the contract identified by excludeID (empty = exclude
	// none).
	FindOverlapping(ctx context.Context, flatID string, start, end time.Time, excludeID string) ([]contract.Contract, error)

	// FindNeedingStatusUpdate returns PENDING contracts whose start date has
	// been reached and ACTIVE contracts whose end date has passed, as of
	// today.
	FindNeedingStatusUpdate(ctx context.Context, today time.Time) ([]contract.Contract, error)

	// FindExpiring returns ACTIVE contracts ending within [from, to].
	FindExpiring(ctx context.Context, from, to time.Time) ([]contract.Contract, error)

	// FindRenewable returns ACTIVE contracts ending within [from, to] that
	// are not yet linked to a renewal.
	FindRenewable(ctx context.Context, from, to time.Time) ([]contract.Contract, error)

	// RenewalOf returns the contract whose PreviousContractID is previousID,
	// or domain.ErrNotFound if no successor exists.
	RenewalOf(ctx context.Context, previousID string) (*contract.Contract, error)
}
