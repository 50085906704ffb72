package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rentwise/rentd/internal/clock"
	"github.com/rentwise/rentd/internal/domain"
	"github.com/rentwise/rentd/internal/domain/audit"
	"github.com/rentwise/rentd/internal/domain/contract"
	"github.com/rentwise/rentd/internal/domain/due"
	"github.com/rentwise/rentd/internal/domain/event"
	"github.com/rentwise/rentd/internal/port/auditstore"
	"github.com/rentwise/rentd/internal/port/cache"
	"github.com/rentwise/rentd/internal/port/contractstore"
	"github.com/rentwise/rentd/internal/port/eventbus"
	"github.com/rentwise/rentd/internal/port/txn"
)

// DueListener reacts to committed lifecycle events by maintaining the
// monthly due schedule: generating it for new and renewed contracts,
// regenerating it across a modification, and cancelling unpaid dues after
// cancellation. Delivery is at-least-once, so every branch re-checks state
// before writing.
type DueListener struct {
	contracts contractstore.Store
	duegen    *DueGenerator
	tx        txn.Transactor
	bus       eventbus.Bus
	clock     clock.Clock
	log       *slog.Logger
}

// NewDueListener wires a DueListener.
func NewDueListener(contracts contractstore.Store, duegen *DueGenerator, tx txn.Transactor, bus eventbus.Bus, clk clock.Clock, log *slog.Logger) *DueListener {
	return &DueListener{contracts: contracts, duegen: duegen, tx: tx, bus: bus, clock: clk, log: log}
}

// Handle dispatches on event type. Unrecognized events are ignored.
func (l *DueListener) Handle(ctx context.Context, ev event.Event) {
	switch ev.Type {
	case event.TypeContractCreated:
		l.onCreated(ctx, ev)
	case event.TypeContractRenewed:
		l.onRenewed(ctx, ev)
	case event.TypeContractModified:
		l.onModified(ctx, ev)
	case event.TypeContractCancelled:
		l.onCancelled(ctx, ev)
	}
}

func (l *DueListener) onCreated(ctx context.Context, ev event.Event) {
	var p event.ContractCreatedPayload
	if err := ev.Decode(&p); err != nil {
		l.log.Error("due listener decode", "event_id", ev.ID, "error", err)
		return
	}
	if !p.GenerateDues {
		return
	}

	c, err := l.contracts.Get(ctx, p.ContractID)
	if err != nil {
		l.log.Error("due listener load contract", "contract_id", p.ContractID, "error", err)
		return
	}
	l.generateAndFlag(ctx, ev, c, c.StartDate)
}

func (l *DueListener) onRenewed(ctx context.Context, ev event.Event) {
	var p event.ContractRenewedPayload
	if err := ev.Decode(&p); err != nil {
		l.log.Error("due listener decode", "event_id", ev.ID, "error", err)
		return
	}
	if !p.GenerateDues {
		return
	}

	c, err := l.contracts.Get(ctx, p.NewContractID)
	if err != nil {
		l.log.Error("due listener load contract", "contract_id", p.NewContractID, "error", err)
		return
	}
	l.generateAndFlag(ctx, ev, c, p.ExtensionStart)
}

func (l *DueListener) onModified(ctx context.Context, ev event.Event) {
	var p event.ContractModifiedPayload
	if err := ev.Decode(&p); err != nil {
		l.log.Error("due listener decode", "event_id", ev.ID, "error", err)
		return
	}
	if !p.RegenerateDues {
		return
	}

	c, err := l.contracts.Get(ctx, p.NewContractID)
	if err != nil {
		l.log.Error("due listener load contract", "contract_id", p.NewContractID, "error", err)
		return
	}
	if c.DuesGenerated {
		return
	}

	// Cancel the superseded contract's unpaid dues from the effective date,
	// then rebill those months at the new terms. One transaction: a redelivery
	// after a crash resumes cleanly because both steps are idempotent.
	var created []due.Due
	err = l.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := l.duegen.CancelUnpaidFrom(ctx, p.OldContractID, p.EffectiveDate); err != nil {
			return err
		}
		dues, err := l.duegen.Generate(ctx, c, p.EffectiveDate)
		if err != nil {
			return err
		}
		created = dues
		c.DuesGenerated = true
		return l.contracts.Update(ctx, c)
	})
	if err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			l.log.Error("due regeneration failed", "contract_id", c.ID, "error", err)
		}
		return
	}
	l.publishDuesGenerated(ctx, ev.ActorID, c, created)
}

func (l *DueListener) onCancelled(ctx context.Context, ev event.Event) {
	var p event.ContractCancelledPayload
	if err := ev.Decode(&p); err != nil {
		l.log.Error("due listener decode", "event_id", ev.ID, "error", err)
		return
	}
	if !p.CancelUnpaidDues {
		return
	}

	n, err := l.duegen.CancelUnpaidFrom(ctx, p.ContractID, time.Time{})
	if err != nil {
		l.log.Error("cancel unpaid dues failed", "contract_id", p.ContractID, "error", err)
		return
	}
	if n > 0 {
		l.log.Info("unpaid dues cancelled", "contract_id", p.ContractID, "count", n)
	}
}

// generateAndFlag builds the schedule from the given start and marks the
// contract, both in one transaction. A contract already flagged is a
// redelivered event and is skipped.
func (l *DueListener) generateAndFlag(ctx context.Context, ev event.Event, c *contract.Contract, from time.Time) {
	if c.DuesGenerated {
		return
	}

	var created []due.Due
	err := l.tx.InTx(ctx, func(ctx context.Context) error {
		dues, err := l.duegen.Generate(ctx, c, from)
		if err != nil {
			return err
		}
		created = dues
		c.DuesGenerated = true
		return l.contracts.Update(ctx, c)
	})
	if err != nil {
		// A version conflict means a concurrent delivery already did the work.
		if !errors.Is(err, domain.ErrConflict) {
			l.log.Error("due generation failed", "contract_id", c.ID, "error", err)
		}
		return
	}
	l.publishDuesGenerated(ctx, ev.ActorID, c, created)
}

// publishDuesGenerated announces the batch. FirstDue comes from the created
// dues themselves, so a renewal or modification reports the first newly
// billed month rather than the contract's original start.
func (l *DueListener) publishDuesGenerated(ctx context.Context, actorID string, c *contract.Contract, created []due.Due) {
	if len(created) == 0 {
		return
	}
	ev, err := event.New(event.TypeDuesGenerated, actorID, l.clock.Now(), event.DuesGeneratedPayload{
		ContractID: c.ID,
		FlatID:     c.FlatID,
		Count:      len(created),
		FirstDue:   created[0].DueDate,
	})
	if err != nil {
		l.log.Error("build dues.generated event", "contract_id", c.ID, "error", err)
		return
	}
	if err := l.bus.Publish(ctx, ev); err != nil {
		l.log.Error("publish dues.generated event", "contract_id", c.ID, "error", err)
	}
}

// AuditListener writes one audit trail entry per committed lifecycle event.
type AuditListener struct {
	audits auditstore.Store
	log    *slog.Logger
}

// NewAuditListener wires an AuditListener.
func NewAuditListener(audits auditstore.Store, log *slog.Logger) *AuditListener {
	return &AuditListener{audits: audits, log: log}
}

// Handle maps the event to an audit entry and appends it.
func (l *AuditListener) Handle(ctx context.Context, ev event.Event) {
	action, entityID, ok := auditFor(ev)
	if !ok {
		return
	}

	entry := audit.Entry{
		Action:     action,
		EntityType: "contract",
		EntityID:   entityID,
		ActorID:    ev.ActorID,
		Detail:     string(ev.Payload),
		Success:    true,
		At:         ev.OccurredAt,
	}
	if err := l.audits.Append(ctx, entry); err != nil {
		l.log.Error("audit append failed", "event_type", ev.Type, "event_id", ev.ID, "error", err)
	}
}

// auditFor resolves the audit action and subject entity for an event.
func auditFor(ev event.Event) (audit.Action, string, bool) {
	switch ev.Type {
	case event.TypeContractCreated:
		var p event.ContractCreatedPayload
		if ev.Decode(&p) != nil {
			return "", "", false
		}
		return audit.ActionContractCreated, p.ContractID, true
	case event.TypeContractRenewed:
		var p event.ContractRenewedPayload
		if ev.Decode(&p) != nil {
			return "", "", false
		}
		return audit.ActionContractRenewed, p.NewContractID, true
	case event.TypeContractCancelled:
		var p event.ContractCancelledPayload
		if ev.Decode(&p) != nil {
			return "", "", false
		}
		return audit.ActionContractCancelled, p.ContractID, true
	case event.TypeContractModified:
		var p event.ContractModifiedPayload
		if ev.Decode(&p) != nil {
			return "", "", false
		}
		return audit.ActionContractModified, p.NewContractID, true
	case event.TypeContractStatusChanged:
		var p event.ContractStatusChangedPayload
		if ev.Decode(&p) != nil {
			return "", "", false
		}
		return audit.ActionContractStatusChanged, p.ContractID, true
	case event.TypeDuesGenerated:
		var p event.DuesGeneratedPayload
		if ev.Decode(&p) != nil {
			return "", "", false
		}
		return audit.ActionDuesGenerated, p.ContractID, true
	}
	return "", "", false
}

// CacheListener drops the flat's cached read models after any lifecycle
// change, so the next read rebuilds them from the store.
type CacheListener struct {
	cache cache.Cache
	log   *slog.Logger
}

// NewCacheListener wires a CacheListener.
func NewCacheListener(c cache.Cache, log *slog.Logger) *CacheListener {
	return &CacheListener{cache: c, log: log}
}

// Handle invalidates the affected flat's cache keys.
func (l *CacheListener) Handle(ctx context.Context, ev event.Event) {
	flatID := flatIDFor(ev)
	if flatID == "" {
		return
	}
	for _, key := range []string{cache.ActiveContractKey(flatID), cache.FlatDuesKey(flatID)} {
		if err := l.cache.Delete(ctx, key); err != nil {
			l.log.Warn("cache invalidation failed", "key", key, "error", err)
		}
	}
}

// flatIDFor extracts the flat ID shared by all payload schemas.
func flatIDFor(ev event.Event) string {
	var p struct {
		FlatID string `json:"flat_id"`
	}
	if ev.Decode(&p) != nil {
		return ""
	}
	return p.FlatID
}

// Listeners bundles the standard post-commit pipeline for registration.
type Listeners struct {
	Dues         *DueListener
	Audit        *AuditListener
	Notification *NotificationListener
	Cache        *CacheListener
}

// Register subscribes every listener to the bus. Order is registration
// order per event, but handlers must not rely on it.
func (l Listeners) Register(bus eventbus.Bus) {
	bus.Subscribe("dues", l.Dues.Handle)
	bus.Subscribe("audit", l.Audit.Handle)
	bus.Subscribe("notification", l.Notification.Handle)
	bus.Subscribe("cache", l.Cache.Handle)
}
