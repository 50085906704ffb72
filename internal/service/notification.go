package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rentwise/rentd/internal/domain/contract"
	"github.com/rentwise/rentd/internal/domain/event"
	"github.com/rentwise/rentd/internal/port/contractstore"
	"github.com/rentwise/rentd/internal/port/notifier"
)

// NotificationService fans a notification out to every registered notifier.
// Delivery is best-effort: failures are logged and never propagate to the
// operation that triggered them.
type NotificationService struct {
	notifiers []notifier.Notifier
	log       *slog.Logger
}

// NewNotificationService wires a NotificationService. A nil or empty
// notifier list is valid and makes every send a no-op.
func NewNotificationService(notifiers []notifier.Notifier, log *slog.Logger) *NotificationService {
	return &NotificationService{notifiers: notifiers, log: log}
}

// Notify sends n through every notifier. Unconfigured notifiers are
// skipped silently.
func (s *NotificationService) Notify(ctx context.Context, n notifier.Notification) {
	for _, nt := range s.notifiers {
		err := nt.Send(ctx, n)
		switch {
		case err == nil:
			s.log.Debug("notification sent", "notifier", nt.Name(), "source", n.Source, "recipient", n.Recipient)
		case errors.Is(err, notifier.ErrNotConfigured):
			s.log.Debug("notifier not configured, skipping", "notifier", nt.Name(), "source", n.Source)
		default:
			s.log.Warn("notification failed", "notifier", nt.Name(), "source", n.Source, "error", err)
		}
	}
}

// NotifyExpiring sends one expiry warning per contract to its tenant.
// Contracts without a tenant email are skipped.
func (s *NotificationService) NotifyExpiring(ctx context.Context, contracts []contract.Contract, daysAhead int, urgent bool) {
	level := "info"
	source := "contract.expiring"
	if urgent {
		level = "warning"
		source = "contract.expiring_urgent"
	}

	for i := range contracts {
		c := &contracts[i]
		if c.TenantEmail == "" {
			continue
		}
		s.Notify(ctx, notifier.Notification{
			Recipient: c.TenantEmail,
			Subject:   fmt.Sprintf("Your rental contract ends on %s", c.EndDate.Format("2 January 2006")),
			Body: fmt.Sprintf("Dear %s,\n\nYour rental contract ends on %s (within the next %d days). "+
				"Please contact the property manager to arrange a renewal or the return of your deposit.\n",
				c.TenantName, c.EndDate.Format("2 January 2006"), daysAhead),
			Level:  level,
			Source: source,
		})
	}
}

// NotifyRenewable flags renewal candidates to the property manager address.
func (s *NotificationService) NotifyRenewable(ctx context.Context, managerEmail string, contracts []contract.Contract) {
	if managerEmail == "" || len(contracts) == 0 {
		return
	}

	body := fmt.Sprintf("%d contract(s) end soon and have no renewal yet:\n\n", len(contracts))
	for i := range contracts {
		c := &contracts[i]
		body += fmt.Sprintf("- flat %s, tenant %s, ends %s\n", c.FlatID, c.TenantName, c.EndDate.Format("2006-01-02"))
	}

	s.Notify(ctx, notifier.Notification{
		Recipient: managerEmail,
		Subject:   fmt.Sprintf("%d contract(s) awaiting renewal", len(contracts)),
		Body:      body,
		Level:     "info",
		Source:    "contract.renewable",
	})
}

// NotificationListener sends tenant-facing notifications for committed
// lifecycle events.
type NotificationListener struct {
	contracts contractstore.Store
	notify    *NotificationService
	log       *slog.Logger
}

// NewNotificationListener wires a NotificationListener.
func NewNotificationListener(contracts contractstore.Store, notify *NotificationService, log *slog.Logger) *NotificationListener {
	return &NotificationListener{contracts: contracts, notify: notify, log: log}
}

// Handle sends the notification matching the event, if any.
func (l *NotificationListener) Handle(ctx context.Context, ev event.Event) {
	var contractID string
	var subject, body string

	switch ev.Type {
	case event.TypeContractCreated:
		var p event.ContractCreatedPayload
		if ev.Decode(&p) != nil {
			return
		}
		contractID = p.ContractID
		subject = "Your rental contract is registered"
		body = fmt.Sprintf("Your rental contract runs from %s to %s at a monthly rent of %s.\n",
			p.StartDate.Format("2 January 2006"), p.EndDate.Format("2 January 2006"), p.MonthlyRent)

	case event.TypeContractRenewed:
		var p event.ContractRenewedPayload
		if ev.Decode(&p) != nil {
			return
		}
		contractID = p.NewContractID
		subject = "Your rental contract has been renewed"
		body = fmt.Sprintf("Your rental contract has been extended to %s.\n",
			p.NewEndDate.Format("2 January 2006"))

	case event.TypeContractCancelled:
		var p event.ContractCancelledPayload
		if ev.Decode(&p) != nil {
			return
		}
		contractID = p.ContractID
		subject = "Your rental contract has been cancelled"
		body = fmt.Sprintf("Your rental contract was cancelled on %s. Reason: %s\n",
			p.CancelledAt.Format("2 January 2006"), p.Reason)

	case event.TypeContractModified:
		var p event.ContractModifiedPayload
		if ev.Decode(&p) != nil {
			return
		}
		contractID = p.NewContractID
		subject = "Your rental contract terms have changed"
		body = fmt.Sprintf("Your rental contract terms change effective %s. "+
			"The updated contract replaces the previous one from that date.\n",
			p.EffectiveDate.Format("2 January 2006"))

	default:
		return
	}

	c, err := l.contracts.Get(ctx, contractID)
	if err != nil {
		l.log.Warn("notification listener load contract", "contract_id", contractID, "error", err)
		return
	}
	if c.TenantEmail == "" {
		return
	}

	l.notify.Notify(ctx, notifier.Notification{
		Recipient: c.TenantEmail,
		Subject:   subject,
		Body:      fmt.Sprintf("Dear %s,\n\n%s", c.TenantName, body),
		Level:     "info",
		Source:    string(ev.Type),
	})
}
