// Package due defines the MonthlyDue domain entity: one month's billing
// obligation generated from a contract. The pair (flat, due date) is unique,
// which makes due generation idempotent under retries. Dues are never
// deleted; cancellation transitions them to CANCELLED to preserve the audit
// trail.
package due

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status represents the payment state of a monthly due.
type Status string

const (
	StatusUnpaid        Status = "UNPAID"
	StatusPartiallyPaid Status = "PARTIALLY_PAID"
	StatusPaid          Status = "PAID"
	StatusOverdue       Status = "OVERDUE"
	StatusCancelled     Status = "CANCELLED"
)

// Due is a single month's billing obligation for a flat under a contract.
type Due struct {
	ID         string `json:"id"`
	FlatID     string `json:"flat_id"`
	ContractID string `json:"contract_id"`

	DueDate    time.Time       `json:"due_date"`
	Amount     decimal.Decimal `json:"amount"`
	PaidAmount decimal.Decimal `json:"paid_amount"`

	Status      Status     `json:"status"`
	Description string     `json:"description,omitempty"`
	PaymentDate *time.Time `json:"payment_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Paid reports whether any real money has settled against this due.
func (d *Due) Paid() bool {
	return d.Status == StatusPaid || d.Status == StatusPartiallyPaid
}

// Cancellable reports whether the due may be transitioned to CANCELLED:
// only dues nobody has paid against, and not already cancelled.
func (d *Due) Cancellable() bool {
	return d.Status == StatusUnpaid || d.Status == StatusOverdue
}
