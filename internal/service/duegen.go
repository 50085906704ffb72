package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rentwise/rentd/internal/calendar"
	"github.com/rentwise/rentd/internal/domain"
	"github.com/rentwise/rentd/internal/domain/contract"
	"github.com/rentwise/rentd/internal/domain/due"
	"github.com/rentwise/rentd/internal/port/duestore"
)

// DueGenerator builds a contract's monthly due schedule. Generation is
// idempotent: the (flat, due date) pair is unique, and every month is
// checked before insert, so re-running after a partial failure or a
// redelivered event only fills the gaps.
type DueGenerator struct {
	dues duestore.Store
	log  *slog.Logger
}

// NewDueGenerator creates a DueGenerator over the given due store.
func NewDueGenerator(dues duestore.Store, log *slog.Logger) *DueGenerator {
	return &DueGenerator{dues: dues, log: log}
}

// Generate creates one due per calendar month of the contract whose billing
// date falls within [from, contract end]. The billing date is the contract's
// day-of-month clamped to each month's last day. A from before the contract
// start is raised to the start, so callers can pass the extension start of a
// renewal to bill only the added months. Returns the dues actually created;
// months that already had a due for the flat are skipped.
func (g *DueGenerator) Generate(ctx context.Context, c *contract.Contract, from time.Time) ([]due.Due, error) {
	lower := calendar.Midnight(c.StartDate)
	if f := calendar.Midnight(from); f.After(lower) {
		lower = f
	}
	upper := calendar.Midnight(c.EndDate)

	amount := c.BilledAmount()

	var created []due.Due
	for anchor := calendar.MonthStart(lower); !anchor.After(upper); anchor = calendar.NextMonth(anchor) {
		dueDate := calendar.AdjustToDay(anchor, c.DayOfMonth)
		if dueDate.Before(lower) || dueDate.After(upper) {
			continue
		}

		exists, err := g.dues.ExistsFor(ctx, c.FlatID, dueDate)
		if err != nil {
			return created, fmt.Errorf("due existence check for %s: %w", dueDate.Format("2006-01-02"), err)
		}
		if exists {
			continue
		}

		d := due.Due{
			FlatID:      c.FlatID,
			ContractID:  c.ID,
			DueDate:     dueDate,
			Amount:      amount,
			PaidAmount:  decimal.Zero,
			Status:      due.StatusUnpaid,
			Description: "Rent for " + anchor.Format("January 2006"),
		}
		if err := g.dues.Create(ctx, &d); err != nil {
			// A concurrent generator won the race for this month.
			if errors.Is(err, domain.ErrConflict) {
				continue
			}
			return created, fmt.Errorf("create due for %s: %w", dueDate.Format("2006-01-02"), err)
		}
		created = append(created, d)
	}

	g.log.Debug("dues generated",
		"contract_id", c.ID, "flat_id", c.FlatID,
		"from", lower.Format("2006-01-02"), "to", upper.Format("2006-01-02"),
		"created", len(created))
	return created, nil
}

// CancelUnpaidFrom cancels the contract's unpaid dues with due date on or
// after from. A zero from cancels them all.
func (g *DueGenerator) CancelUnpaidFrom(ctx context.Context, contractID string, from time.Time) (int, error) {
	n, err := g.dues.CancelUnpaidFrom(ctx, contractID, from)
	if err != nil {
		return 0, fmt.Errorf("cancel unpaid dues for contract %s: %w", contractID, err)
	}
	return n, nil
}
