package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rentwise/rentd/internal/calendar"
	"github.com/rentwise/rentd/internal/domain/contract"
)

func seedContract(store *mockContractStore, flatID string, start, end time.Time, status contract.Status) contract.Contract {
	c := contract.Contract{
		FlatID:    flatID,
		StartDate: start,
		EndDate:   end,
		Status:    status,
	}
	_ = store.Create(context.Background(), &c)
	return c
}

func TestOverlapValidatorReportsAllConflicts(t *testing.T) {
	store := &mockContractStore{}
	v := NewOverlapValidator(store)

	a := seedContract(store, "flat-1",
		calendar.DateUTC(2025, time.January, 1), calendar.DateUTC(2025, time.June, 30),
		contract.StatusExpired)
	b := seedContract(store, "flat-1",
		calendar.DateUTC(2025, time.July, 1), calendar.DateUTC(2026, time.June, 30),
		contract.StatusActive)

	err := v.Validate(context.Background(), "flat-1",
		calendar.DateUTC(2025, time.June, 1), calendar.DateUTC(2025, time.August, 1), "")

	var oerr *contract.OverlapError
	if !errors.As(err, &oerr) {
		t.Fatalf("expected OverlapError, got %v", err)
	}
	if len(oerr.Conflicts) != 2 {
		t.Fatalf("expected 2 conflicts, got %d", len(oerr.Conflicts))
	}
	ids := map[string]bool{oerr.Conflicts[0].ContractID: true, oerr.Conflicts[1].ContractID: true}
	if !ids[a.ID] || !ids[b.ID] {
		t.Errorf("conflicts = %v, want both %s and %s", ids, a.ID, b.ID)
	}
}

func TestOverlapValidatorIgnoresCancelledAndSuperseded(t *testing.T) {
	store := &mockContractStore{}
	v := NewOverlapValidator(store)

	seedContract(store, "flat-1",
		calendar.DateUTC(2025, time.January, 1), calendar.DateUTC(2025, time.December, 31),
		contract.StatusCancelled)
	seedContract(store, "flat-1",
		calendar.DateUTC(2025, time.January, 1), calendar.DateUTC(2025, time.December, 31),
		contract.StatusSuperseded)

	err := v.Validate(context.Background(), "flat-1",
		calendar.DateUTC(2025, time.March, 1), calendar.DateUTC(2025, time.April, 1), "")
	if err != nil {
		t.Fatalf("expected no conflict, got %v", err)
	}
}

func TestOverlapValidatorExcludesGivenContract(t *testing.T) {
	store := &mockContractStore{}
	v := NewOverlapValidator(store)

	c := seedContract(store, "flat-1",
		calendar.DateUTC(2025, time.January, 1), calendar.DateUTC(2025, time.December, 31),
		contract.StatusActive)

	err := v.Validate(context.Background(), "flat-1",
		calendar.DateUTC(2025, time.January, 1), calendar.DateUTC(2026, time.December, 31), c.ID)
	if err != nil {
		t.Fatalf("expected no conflict when excluding self, got %v", err)
	}
}

func TestOverlapValidatorInclusiveBoundaries(t *testing.T) {
	store := &mockContractStore{}
	v := NewOverlapValidator(store)

	seedContract(store, "flat-1",
		calendar.DateUTC(2025, time.January, 1), calendar.DateUTC(2025, time.June, 30),
		contract.StatusActive)

	// A candidate starting exactly on the existing end date collides: end
	// dates are inclusive.
	err := v.Validate(context.Background(), "flat-1",
		calendar.DateUTC(2025, time.June, 30), calendar.DateUTC(2026, time.June, 29), "")
	var oerr *contract.OverlapError
	if !errors.As(err, &oerr) {
		t.Fatalf("expected OverlapError on shared boundary day, got %v", err)
	}

	// Starting the following day is clean.
	err = v.Validate(context.Background(), "flat-1",
		calendar.DateUTC(2025, time.July, 1), calendar.DateUTC(2026, time.June, 30), "")
	if err != nil {
		t.Fatalf("expected no conflict for adjacent period, got %v", err)
	}
}

func TestEnsureNoActive(t *testing.T) {
	store := &mockContractStore{}
	v := NewOverlapValidator(store)
	ctx := context.Background()

	if err := v.EnsureNoActive(ctx, "flat-1"); err != nil {
		t.Fatalf("empty flat: %v", err)
	}

	c := seedContract(store, "flat-1",
		calendar.DateUTC(2025, time.January, 1), calendar.DateUTC(2025, time.December, 31),
		contract.StatusActive)

	err := v.EnsureNoActive(ctx, "flat-1")
	var aerr *contract.ActiveContractError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected ActiveContractError, got %v", err)
	}
	if aerr.ContractID != c.ID {
		t.Errorf("contract = %s, want %s", aerr.ContractID, c.ID)
	}
}
