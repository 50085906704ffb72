// Package contract defines the rental Contract entity and its state machine.
// Each flat can have many contracts over time but at most one ACTIVE at any
// instant. Terminated contracts are never deleted; renewals and modifications
// supersede the old record with a new one linked through PreviousContractID.
package contract

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rentwise/rentd/internal/calendar"
)

// Status represents the lifecycle state of a contract.
type Status string

const (
	StatusPending    Status = "PENDING"    // start date in the future
	StatusActive     Status = "ACTIVE"     // currently in effect
	StatusExpired    Status = "EXPIRED"    // end date passed
	StatusCancelled  Status = "CANCELLED"  // manually cancelled
	StatusRenewed    Status = "RENEWED"    // replaced by a renewal contract
	StatusSuperseded Status = "SUPERSEDED" // replaced by a modification
)

// Terminated reports whether the status is final. Terminated contracts take
// no further transitions and do not count toward overlap conflicts other
// than EXPIRED and RENEWED, whose date ranges were genuinely occupied.
func (s Status) Terminated() bool {
	switch s {
	case StatusExpired, StatusCancelled, StatusRenewed, StatusSuperseded:
		return true
	}
	return false
}

// transitions is the full set of legal status moves.
var transitions = map[Status][]Status{
	StatusPending: {StatusActive, StatusCancelled, StatusSuperseded},
	StatusActive:  {StatusExpired, StatusCancelled, StatusRenewed, StatusSuperseded},
}

// CanTransition reports whether a move from s to target is legal.
func (s Status) CanTransition(target Status) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// InitialStatus returns the status a newly created contract takes:
// ACTIVE when the start date has been reached, PENDING otherwise.
func InitialStatus(startDate, today time.Time) Status {
	if calendar.Midnight(startDate).After(calendar.Midnight(today)) {
		return StatusPending
	}
	return StatusActive
}

// Contract is a rental agreement for one flat over an inclusive date range.
type Contract struct {
	ID     string `json:"id"`
	FlatID string `json:"flat_id"`

	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"` // inclusive

	MonthlyRent     decimal.Decimal `json:"monthly_rent"`
	DayOfMonth      int             `json:"day_of_month"` // billing day, 1-31
	SecurityDeposit decimal.Decimal `json:"security_deposit"`

	// DueAmount, when set, fixes the amount billed each month. When nil the
	// schedule is rent-derived and each due is billed at MonthlyRent.
	DueAmount *decimal.Decimal `json:"due_amount,omitempty"`

	Status Status `json:"status"`

	// PreviousContractID links a renewal or modification back to the record
	// it replaced. The chain is forward-only: a contract can only reference
	// an already-persisted, strictly older contract, so it is acyclic by
	// construction.
	PreviousContractID string `json:"previous_contract_id,omitempty"`

	// Tenant snapshot captured at creation time, independent of any live
	// tenant record.
	TenantName    string `json:"tenant_name,omitempty"`
	TenantContact string `json:"tenant_contact,omitempty"`
	TenantEmail   string `json:"tenant_email,omitempty"`

	Notes     string `json:"notes,omitempty"`
	AutoRenew bool   `json:"auto_renew"`

	// DuesGenerated marks that the monthly due schedule has been written.
	// Once true and any due is paid, the contract may no longer be modified
	// in place; changes must supersede it with a new record.
	DuesGenerated bool `json:"dues_generated"`

	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CancellationDate   *time.Time `json:"cancellation_date,omitempty"`
	CancelledBy        string     `json:"cancelled_by,omitempty"`

	StatusChangedAt    *time.Time `json:"status_changed_at,omitempty"`
	StatusChangedBy    string     `json:"status_changed_by,omitempty"`
	StatusChangeReason string     `json:"status_change_reason,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Transition moves the contract to target, recording when, by whom and why.
// The move is validated before any field is touched; an illegal move returns
// a TransitionError and leaves the contract unchanged.
func (c *Contract) Transition(target Status, at time.Time, actor, reason string) error {
	if !c.Status.CanTransition(target) {
		return &TransitionError{ContractID: c.ID, From: c.Status, To: target}
	}
	c.Status = target
	t := at
	c.StatusChangedAt = &t
	c.StatusChangedBy = actor
	c.StatusChangeReason = reason
	return nil
}

// Cancel transitions the contract to CANCELLED and records the cancellation
// metadata. Allowed only from PENDING or ACTIVE.
func (c *Contract) Cancel(at time.Time, actor, reason string) error {
	if err := c.Transition(StatusCancelled, at, actor, reason); err != nil {
		return err
	}
	c.CancellationReason = reason
	t := at
	c.CancellationDate = &t
	c.CancelledBy = actor
	return nil
}

// Overlaps reports whether the contract's inclusive date range intersects
// [otherStart, otherEnd].
func (c *Contract) Overlaps(otherStart, otherEnd time.Time) bool {
	return calendar.PeriodsOverlap(c.StartDate, c.EndDate, otherStart, otherEnd)
}

// IsModifiable is the single predicate deciding whether the contract may be
// superseded by a modification. A terminated contract never is. A live
// contract is blocked only once real money has moved: dues generated AND at
// least one of them paid. Generated-but-unpaid dues do not block, because
// the modification flow cancels and regenerates them.
func (c *Contract) IsModifiable(hasPaidDues bool) bool {
	if c.Status.Terminated() {
		return false
	}
	return !(c.DuesGenerated && hasPaidDues)
}

// ExpiringWithin reports whether an ACTIVE contract ends within the next
// days days, counted from today.
func (c *Contract) ExpiringWithin(days int, today time.Time) bool {
	if c.Status != StatusActive {
		return false
	}
	threshold := calendar.Midnight(today).AddDate(0, 0, days)
	return !calendar.Midnight(c.EndDate).After(threshold)
}

// EligibleForAutoRenewal reports whether the contract should be picked up by
// the renewal-candidate scan.
func (c *Contract) EligibleForAutoRenewal(today time.Time) bool {
	return c.AutoRenew && c.Status == StatusActive &&
		!calendar.Midnight(c.EndDate).Before(calendar.Midnight(today))
}

// LengthInMonths returns the inclusive number of calendar months the
// contract spans.
func (c *Contract) LengthInMonths() int {
	return calendar.MonthsBetween(c.StartDate, c.EndDate)
}

// TotalValue returns monthly rent times the contract length in months.
func (c *Contract) TotalValue() decimal.Decimal {
	return c.MonthlyRent.Mul(decimal.NewFromInt(int64(c.LengthInMonths())))
}

// DueDateForMonth returns the billing date within anchor's month, with the
// day-of-month clamped to the month's last day.
func (c *Contract) DueDateForMonth(anchor time.Time) time.Time {
	return calendar.AdjustToDay(anchor, c.DayOfMonth)
}

// BilledAmount returns the amount each monthly due is billed at: the fixed
// due amount when set, the monthly rent otherwise.
func (c *Contract) BilledAmount() decimal.Decimal {
	if c.DueAmount != nil {
		return *c.DueAmount
	}
	return c.MonthlyRent
}
