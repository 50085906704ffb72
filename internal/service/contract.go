// Package service implements the contract lifecycle orchestration: create,
// renew, cancel and modify operations, the scheduled sweeps, and the
// post-commit listeners that generate dues, write the audit trail, send
// notifications and invalidate caches.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rentwise/rentd/internal/calendar"
	"github.com/rentwise/rentd/internal/clock"
	"github.com/rentwise/rentd/internal/domain"
	"github.com/rentwise/rentd/internal/domain/audit"
	"github.com/rentwise/rentd/internal/domain/contract"
	"github.com/rentwise/rentd/internal/domain/due"
	"github.com/rentwise/rentd/internal/domain/event"
	"github.com/rentwise/rentd/internal/port/auditstore"
	"github.com/rentwise/rentd/internal/port/cache"
	"github.com/rentwise/rentd/internal/port/contractstore"
	"github.com/rentwise/rentd/internal/port/duestore"
	"github.com/rentwise/rentd/internal/port/eventbus"
	"github.com/rentwise/rentd/internal/port/txn"
)

// ContractService orchestrates the contract lifecycle. Every mutation runs
// inside a single transaction; domain events are published only after that
// transaction has committed, so side effects never observe rolled-back
// state.
type ContractService struct {
	contracts contractstore.Store
	dues      duestore.Store
	audits    auditstore.Store
	overlap   *OverlapValidator
	duegen    *DueGenerator
	tx        txn.Transactor
	bus       eventbus.Bus
	cache     cache.Cache
	cacheTTL  time.Duration
	clock     clock.Clock
	log       *slog.Logger
}

// NewContractService wires a ContractService from its dependencies.
func NewContractService(
	contracts contractstore.Store,
	dues duestore.Store,
	audits auditstore.Store,
	tx txn.Transactor,
	bus eventbus.Bus,
	c cache.Cache,
	cacheTTL time.Duration,
	clk clock.Clock,
	log *slog.Logger,
) *ContractService {
	return &ContractService{
		contracts: contracts,
		dues:      dues,
		audits:    audits,
		overlap:   NewOverlapValidator(contracts),
		duegen:    NewDueGenerator(dues, log),
		tx:        tx,
		bus:       bus,
		cache:     c,
		cacheTTL:  cacheTTL,
		clock:     clk,
		log:       log,
	}
}

// Create validates and persists a new contract. The flat must have no
// ACTIVE contract and no existing contract overlapping the requested
// period. When req.GenerateDuesImmediately is set the due schedule is
// written inside the same transaction, so the contract and its dues commit
// or roll back together.
func (s *ContractService) Create(ctx context.Context, req contract.CreateRequest, actorID string) (*contract.Contract, error) {
	if verr := req.Validate(); verr != nil {
		s.auditFailure(ctx, audit.ActionContractCreated, "", actorID, verr)
		return nil, verr
	}

	today := s.clock.Today()
	c := &contract.Contract{
		FlatID:          req.FlatID,
		StartDate:       calendar.Midnight(req.StartDate),
		EndDate:         calendar.Midnight(req.EndDate),
		MonthlyRent:     req.MonthlyRent,
		DayOfMonth:      req.DayOfMonth,
		SecurityDeposit: req.SecurityDeposit,
		DueAmount:       req.DueAmount,
		Status:          contract.InitialStatus(req.StartDate, today),
		TenantName:      req.TenantName,
		TenantContact:   req.TenantContact,
		TenantEmail:     req.TenantEmail,
		Notes:           req.Notes,
		AutoRenew:       req.AutoRenew,
	}

	var generated int
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if c.Status == contract.StatusActive {
			if err := s.overlap.EnsureNoActive(ctx, c.FlatID); err != nil {
				return err
			}
		}
		if err := s.overlap.Validate(ctx, c.FlatID, c.StartDate, c.EndDate, ""); err != nil {
			return err
		}

		if err := s.contracts.Create(ctx, c); err != nil {
			return err
		}

		if req.GenerateDuesImmediately {
			dues, err := s.duegen.Generate(ctx, c, c.StartDate)
			if err != nil {
				return err
			}
			generated = len(dues)
			c.DuesGenerated = true
			if err := s.contracts.Update(ctx, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.auditFailure(ctx, audit.ActionContractCreated, "", actorID, err)
		return nil, err
	}

	s.log.Info("contract created",
		"contract_id", c.ID, "flat_id", c.FlatID, "status", c.Status,
		"start", c.StartDate.Format("2006-01-02"), "end", c.EndDate.Format("2006-01-02"),
		"dues_generated", generated)

	s.publish(ctx, event.TypeContractCreated, actorID, event.ContractCreatedPayload{
		ContractID:    c.ID,
		FlatID:        c.FlatID,
		StartDate:     c.StartDate,
		EndDate:       c.EndDate,
		MonthlyRent:   c.MonthlyRent.String(),
		DuesGenerated: c.DuesGenerated,
		GenerateDues:  !req.GenerateDuesImmediately,
	})
	return c, nil
}

// Renew creates a successor contract covering the extension period: it
// starts the day after the old end date and runs to req.NewEndDate, PENDING
// until that start arrives. The old contract transitions to RENEWED in the
// same transaction that creates the successor. Only the extension months get
// dues; already-billed months are never touched.
func (s *ContractService) Renew(ctx context.Context, contractID string, req contract.RenewalRequest, actorID string) (*contract.Contract, error) {
	old, err := s.contracts.Get(ctx, contractID)
	if err != nil {
		return nil, err
	}

	if verr := req.Validate(old.EndDate); verr != nil {
		s.auditFailure(ctx, audit.ActionContractRenewed, contractID, actorID, verr)
		return nil, verr
	}
	if !old.Status.CanTransition(contract.StatusRenewed) {
		err := &contract.TransitionError{ContractID: old.ID, From: old.Status, To: contract.StatusRenewed}
		s.auditFailure(ctx, audit.ActionContractRenewed, contractID, actorID, err)
		return nil, err
	}
	if existing, err := s.contracts.RenewalOf(ctx, old.ID); err == nil {
		cerr := fmt.Errorf("contract %s already renewed by %s: %w", old.ID, existing.ID, domain.ErrConflict)
		s.auditFailure(ctx, audit.ActionContractRenewed, contractID, actorID, cerr)
		return nil, cerr
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	extensionStart := calendar.Midnight(old.EndDate).AddDate(0, 0, 1)
	now := s.clock.Now()

	next := &contract.Contract{
		FlatID:             old.FlatID,
		StartDate:          extensionStart,
		EndDate:            calendar.Midnight(req.NewEndDate),
		MonthlyRent:        old.MonthlyRent,
		DayOfMonth:         old.DayOfMonth,
		SecurityDeposit:    old.SecurityDeposit,
		DueAmount:          old.DueAmount,
		Status:             contract.InitialStatus(extensionStart, s.clock.Today()),
		PreviousContractID: old.ID,
		TenantName:         old.TenantName,
		TenantContact:      old.TenantContact,
		TenantEmail:        old.TenantEmail,
		Notes:              coalesce(req.Notes, old.Notes),
		AutoRenew:          old.AutoRenew,
	}
	if req.NewMonthlyRent != nil {
		next.MonthlyRent = *req.NewMonthlyRent
	}
	if req.NewSecurityDeposit != nil {
		next.SecurityDeposit = *req.NewSecurityDeposit
	}
	if req.NewDayOfMonth != nil {
		next.DayOfMonth = *req.NewDayOfMonth
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.overlap.Validate(ctx, next.FlatID, next.StartDate, next.EndDate, old.ID); err != nil {
			return err
		}

		if err := old.Transition(contract.StatusRenewed, now, actorID, "renewed"); err != nil {
			return err
		}
		if err := s.contracts.Update(ctx, old); err != nil {
			return err
		}

		if err := s.contracts.Create(ctx, next); err != nil {
			return err
		}

		if req.GenerateDuesImmediately {
			if _, err := s.duegen.Generate(ctx, next, extensionStart); err != nil {
				return err
			}
			next.DuesGenerated = true
			return s.contracts.Update(ctx, next)
		}
		return nil
	})
	if err != nil {
		s.auditFailure(ctx, audit.ActionContractRenewed, contractID, actorID, err)
		return nil, err
	}

	s.log.Info("contract renewed",
		"old_contract_id", old.ID, "new_contract_id", next.ID, "flat_id", next.FlatID,
		"new_end", next.EndDate.Format("2006-01-02"))

	s.publish(ctx, event.TypeContractRenewed, actorID, event.ContractRenewedPayload{
		OldContractID:  old.ID,
		NewContractID:  next.ID,
		FlatID:         next.FlatID,
		ExtensionStart: extensionStart,
		NewEndDate:     next.EndDate,
		GenerateDues:   !req.GenerateDuesImmediately,
	})
	return next, nil
}

// Cancel terminates a PENDING or ACTIVE contract, recording who cancelled
// it, when and why. Unpaid dues are cleaned up by the post-commit pipeline
// when req.CancelUnpaidDues is set; paid dues are never touched.
func (s *ContractService) Cancel(ctx context.Context, contractID string, req contract.CancellationRequest, actorID string) (*contract.Contract, error) {
	if verr := req.Validate(); verr != nil {
		s.auditFailure(ctx, audit.ActionContractCancelled, contractID, actorID, verr)
		return nil, verr
	}

	c, err := s.contracts.Get(ctx, contractID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	reason := string(req.Category) + ": " + req.Reason

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := c.Cancel(now, actorID, reason); err != nil {
			return err
		}
		if req.Notes != "" {
			c.Notes = req.Notes
		}
		return s.contracts.Update(ctx, c)
	})
	if err != nil {
		s.auditFailure(ctx, audit.ActionContractCancelled, contractID, actorID, err)
		return nil, err
	}

	s.log.Info("contract cancelled",
		"contract_id", c.ID, "flat_id", c.FlatID, "category", req.Category,
		"cancel_unpaid_dues", req.CancelUnpaidDues)

	s.publish(ctx, event.TypeContractCancelled, actorID, event.ContractCancelledPayload{
		ContractID:       c.ID,
		FlatID:           c.FlatID,
		Reason:           reason,
		CancelledAt:      now,
		CancelUnpaidDues: req.CancelUnpaidDues,
	})
	return c, nil
}

// Modify supersedes a contract with adjusted terms from req.EffectiveDate.
// Blocked once any due has been paid: real money has moved, so the record
// is history and changes need a fresh contract instead. The superseding
// contract starts at the effective date and keeps the old status family
// (PENDING stays PENDING, ACTIVE stays ACTIVE).
func (s *ContractService) Modify(ctx context.Context, contractID string, req contract.ModificationRequest, actorID string) (*contract.Contract, error) {
	today := s.clock.Today()
	if verr := req.Validate(today); verr != nil {
		s.auditFailure(ctx, audit.ActionContractModified, contractID, actorID, verr)
		return nil, verr
	}

	old, err := s.contracts.Get(ctx, contractID)
	if err != nil {
		return nil, err
	}

	hasPaid, err := s.dues.HasPaid(ctx, old.ID)
	if err != nil {
		return nil, err
	}
	if !old.IsModifiable(hasPaid) {
		terr := &contract.TransitionError{
			ContractID: old.ID, From: old.Status, To: contract.StatusSuperseded,
			Detail: modifyBlockReason(old, hasPaid),
		}
		s.auditFailure(ctx, audit.ActionContractModified, contractID, actorID, terr)
		return nil, terr
	}

	effective := calendar.Midnight(req.EffectiveDate)
	next := &contract.Contract{
		FlatID:             old.FlatID,
		StartDate:          effective,
		EndDate:            old.EndDate,
		MonthlyRent:        old.MonthlyRent,
		DayOfMonth:         old.DayOfMonth,
		SecurityDeposit:    old.SecurityDeposit,
		DueAmount:          old.DueAmount,
		Status:             old.Status,
		PreviousContractID: old.ID,
		TenantName:         old.TenantName,
		TenantContact:      old.TenantContact,
		TenantEmail:        old.TenantEmail,
		Notes:              coalesce(req.Notes, old.Notes),
		AutoRenew:          old.AutoRenew,
	}
	if req.NewMonthlyRent != nil {
		next.MonthlyRent = *req.NewMonthlyRent
	}
	if req.NewSecurityDeposit != nil {
		next.SecurityDeposit = *req.NewSecurityDeposit
	}
	if req.NewDayOfMonth != nil {
		next.DayOfMonth = *req.NewDayOfMonth
	}
	if req.NewEndDate != nil {
		next.EndDate = calendar.Midnight(*req.NewEndDate)
	}
	if next.EndDate.Before(next.StartDate) {
		verr := &contract.ValidationError{Fields: []contract.FieldError{
			{Field: "effective_date", Message: "effective date is after the contract end date"},
		}}
		s.auditFailure(ctx, audit.ActionContractModified, contractID, actorID, verr)
		return nil, verr
	}

	now := s.clock.Now()
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.overlap.Validate(ctx, next.FlatID, next.StartDate, next.EndDate, old.ID); err != nil {
			return err
		}

		if err := old.Transition(contract.StatusSuperseded, now, actorID, req.Reason); err != nil {
			return err
		}
		if err := s.contracts.Update(ctx, old); err != nil {
			return err
		}
		return s.contracts.Create(ctx, next)
	})
	if err != nil {
		s.auditFailure(ctx, audit.ActionContractModified, contractID, actorID, err)
		return nil, err
	}

	s.log.Info("contract modified",
		"old_contract_id", old.ID, "new_contract_id", next.ID, "flat_id", next.FlatID,
		"effective", effective.Format("2006-01-02"), "regenerate_dues", req.RegenerateDues)

	s.publish(ctx, event.TypeContractModified, actorID, event.ContractModifiedPayload{
		OldContractID:  old.ID,
		NewContractID:  next.ID,
		FlatID:         next.FlatID,
		EffectiveDate:  effective,
		RegenerateDues: req.RegenerateDues,
	})
	return next, nil
}

// UpdateStatuses flips PENDING contracts whose start date has arrived to
// ACTIVE and ACTIVE contracts whose end date has passed to EXPIRED. Each
// contract moves in its own transaction; a version conflict means another
// node already flipped it and is skipped, not an error. Returns how many
// contracts changed.
func (s *ContractService) UpdateStatuses(ctx context.Context) (int, error) {
	today := s.clock.Today()
	pending, err := s.contracts.FindNeedingStatusUpdate(ctx, today)
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	updated := 0
	for i := range pending {
		c := pending[i]

		var target contract.Status
		switch c.Status {
		case contract.StatusPending:
			target = contract.StatusActive
		case contract.StatusActive:
			target = contract.StatusExpired
		default:
			continue
		}
		oldStatus := c.Status

		err := s.tx.InTx(ctx, func(ctx context.Context) error {
			if err := c.Transition(target, now, "system", "scheduled status sweep"); err != nil {
				return err
			}
			return s.contracts.Update(ctx, &c)
		})
		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				s.log.Debug("status sweep skipped contract", "contract_id", c.ID, "reason", "version conflict")
				continue
			}
			s.log.Error("status sweep failed for contract", "contract_id", c.ID, "error", err)
			continue
		}
		updated++

		s.publish(ctx, event.TypeContractStatusChanged, "system", event.ContractStatusChangedPayload{
			ContractID: c.ID,
			FlatID:     c.FlatID,
			OldStatus:  string(oldStatus),
			NewStatus:  string(target),
			Automatic:  true,
		})
	}

	if updated > 0 {
		s.log.Info("contract statuses updated", "count", updated)
	}
	return updated, nil
}

// ExpiringContracts returns ACTIVE contracts ending within the next
// daysAhead days.
func (s *ContractService) ExpiringContracts(ctx context.Context, daysAhead int) ([]contract.Contract, error) {
	today := s.clock.Today()
	return s.contracts.FindExpiring(ctx, today, today.AddDate(0, 0, daysAhead))
}

// RenewableContracts returns ACTIVE contracts ending within the next
// daysAhead days that have no successor yet.
func (s *ContractService) RenewableContracts(ctx context.Context, daysAhead int) ([]contract.Contract, error) {
	today := s.clock.Today()
	return s.contracts.FindRenewable(ctx, today, today.AddDate(0, 0, daysAhead))
}

// Get returns the contract by id.
func (s *ContractService) Get(ctx context.Context, id string) (*contract.Contract, error) {
	return s.contracts.Get(ctx, id)
}

// DuesFor returns the contract's due schedule ordered by due date.
func (s *ContractService) DuesFor(ctx context.Context, contractID string) ([]due.Due, error) {
	return s.dues.ByContract(ctx, contractID)
}

// ActiveContractByFlat returns the flat's ACTIVE contract, serving from the
// cache when possible. The cache is invalidated by the post-commit pipeline
// on every lifecycle change, with the TTL as backstop.
func (s *ContractService) ActiveContractByFlat(ctx context.Context, flatID string) (*contract.Contract, error) {
	key := cache.ActiveContractKey(flatID)
	if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var c contract.Contract
		if err := json.Unmarshal(data, &c); err == nil {
			return &c, nil
		}
		// Unreadable entry: drop it and fall through to the store.
		_ = s.cache.Delete(ctx, key)
	}

	c, err := s.contracts.ActiveByFlat(ctx, flatID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(c); err == nil {
		if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
			s.log.Warn("cache set failed", "key", key, "error", err)
		}
	}
	return c, nil
}

// publish hands a committed event to the bus. Failure to enqueue is logged
// and swallowed: the lifecycle change has already committed and the caller
// gets its result regardless.
func (s *ContractService) publish(ctx context.Context, t event.Type, actorID string, payload any) {
	ev, err := event.New(t, actorID, s.clock.Now(), payload)
	if err != nil {
		s.log.Error("build event", "event_type", t, "error", err)
		return
	}
	if err := s.bus.Publish(ctx, ev); err != nil {
		s.log.Error("publish event", "event_type", t, "event_id", ev.ID, "error", err)
	}
}

// auditFailure records a rejected or rolled-back operation. Best effort:
// a failing audit write is logged, never surfaced.
func (s *ContractService) auditFailure(ctx context.Context, action audit.Action, entityID, actorID string, opErr error) {
	entry := audit.Entry{
		Action:     audit.ActionOperationFailed,
		EntityType: "contract",
		EntityID:   entityID,
		ActorID:    actorID,
		Detail:     string(action) + ": " + opErr.Error(),
		Success:    false,
		At:         s.clock.Now(),
	}
	if err := s.audits.Append(ctx, entry); err != nil {
		s.log.Warn("audit append failed", "action", action, "entity_id", entityID, "error", err)
	}
}

func modifyBlockReason(c *contract.Contract, hasPaid bool) string {
	if c.Status.Terminated() {
		return "contract is terminated"
	}
	if hasPaid {
		return "contract has paid dues"
	}
	return "contract is not modifiable"
}

func coalesce(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
