package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rentwise/rentd/internal/domain"
	"github.com/rentwise/rentd/internal/domain/contract"
	"github.com/rentwise/rentd/internal/port/contractstore"
)

// OverlapValidator checks candidate contract periods against the flat's
// existing contracts. It reports every conflict it finds, not just the
// first, so callers can surface a complete diagnostic.
type OverlapValidator struct {
	contracts contractstore.Store
}

// NewOverlapValidator creates an OverlapValidator over the given store.
func NewOverlapValidator(contracts contractstore.Store) *OverlapValidator {
	return &OverlapValidator{contracts: contracts}
}

// Validate returns a *contract.OverlapError when [start, end] intersects
// any non-cancelled, non-superseded contract of the flat other than
// excludeID. A clean period returns nil.
func (v *OverlapValidator) Validate(ctx context.Context, flatID string, start, end time.Time, excludeID string) error {
	overlapping, err := v.contracts.FindOverlapping(ctx, flatID, start, end, excludeID)
	if err != nil {
		return fmt.Errorf("check overlap for flat %s: %w", flatID, err)
	}
	if len(overlapping) == 0 {
		return nil
	}

	conflicts := make([]contract.Conflict, len(overlapping))
	for i, c := range overlapping {
		conflicts[i] = contract.Conflict{
			ContractID: c.ID,
			StartDate:  c.StartDate,
			EndDate:    c.EndDate,
			Status:     c.Status,
		}
	}
	return &contract.OverlapError{
		FlatID:    flatID,
		StartDate: start,
		EndDate:   end,
		Conflicts: conflicts,
	}
}

// EnsureNoActive returns a *contract.ActiveContractError when the flat
// already has an ACTIVE contract.
func (v *OverlapValidator) EnsureNoActive(ctx context.Context, flatID string) error {
	existing, err := v.contracts.ActiveByFlat(ctx, flatID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("check active contract for flat %s: %w", flatID, err)
	}
	return &contract.ActiveContractError{FlatID: flatID, ContractID: existing.ID}
}
