package contract

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rentwise/rentd/internal/calendar"
)

// CancellationCategory classifies why a contract was cancelled.
type CancellationCategory string

const (
	CancelTenantRequest    CancellationCategory = "TENANT_REQUEST"
	CancelNonPayment       CancellationCategory = "NON_PAYMENT"
	CancelBreachOfContract CancellationCategory = "BREACH_OF_CONTRACT"
	CancelMutualAgreement  CancellationCategory = "MUTUAL_AGREEMENT"
	CancelOther            CancellationCategory = "OTHER"
)

func validCancellationCategory(c CancellationCategory) bool {
	switch c {
	case CancelTenantRequest, CancelNonPayment, CancelBreachOfContract, CancelMutualAgreement, CancelOther:
		return true
	}
	return false
}

// CreateRequest holds the fields needed to create a new contract.
type CreateRequest struct {
	FlatID     string    `json:"flat_id"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"` // inclusive
	DayOfMonth int       `json:"day_of_month"`

	MonthlyRent     decimal.Decimal `json:"monthly_rent"`
	SecurityDeposit decimal.Decimal `json:"security_deposit"`

	// DueAmount fixes the billed amount per month; nil means rent-derived.
	DueAmount *decimal.Decimal `json:"due_amount,omitempty"`

	TenantName    string `json:"tenant_name"`
	TenantContact string `json:"tenant_contact,omitempty"`
	TenantEmail   string `json:"tenant_email,omitempty"`

	Notes     string `json:"notes,omitempty"`
	AutoRenew bool   `json:"auto_renew"`

	// GenerateDuesImmediately requests synchronous due generation inside the
	// creation transaction, so the schedule and the dues_generated flag
	// commit together.
	GenerateDuesImmediately bool `json:"generate_dues_immediately"`
}

// Validate checks the request and returns every problem found.
func (r *CreateRequest) Validate() *ValidationError {
	var fields []FieldError
	if r.FlatID == "" {
		fields = append(fields, FieldError{"flat_id", "flat id is required"})
	}
	if r.StartDate.IsZero() {
		fields = append(fields, FieldError{"start_date", "start date is required"})
	}
	if r.EndDate.IsZero() {
		fields = append(fields, FieldError{"end_date", "end date is required"})
	}
	if !r.StartDate.IsZero() && !r.EndDate.IsZero() &&
		calendar.Midnight(r.EndDate).Before(calendar.Midnight(r.StartDate)) {
		fields = append(fields, FieldError{"end_date", "end date must not be before start date"})
	}
	if r.DayOfMonth < 1 || r.DayOfMonth > 31 {
		fields = append(fields, FieldError{"day_of_month", "day of month must be between 1 and 31"})
	}
	if r.DueAmount != nil {
		if r.DueAmount.Sign() <= 0 {
			fields = append(fields, FieldError{"due_amount", "fixed due amount must be positive"})
		}
	} else if r.MonthlyRent.Sign() <= 0 {
		// Rent-derived mode bills the monthly rent, so it must be positive.
		fields = append(fields, FieldError{"monthly_rent", "monthly rent must be positive"})
	}
	if r.MonthlyRent.Sign() < 0 {
		fields = append(fields, FieldError{"monthly_rent", "monthly rent must not be negative"})
	}
	if r.SecurityDeposit.Sign() < 0 {
		fields = append(fields, FieldError{"security_deposit", "security deposit must not be negative"})
	}
	if r.TenantName == "" {
		fields = append(fields, FieldError{"tenant_name", "tenant name is required"})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// RenewalRequest extends a tenancy with a new contiguous contract starting
// the day after the old contract's end date.
type RenewalRequest struct {
	NewEndDate time.Time `json:"new_end_date"`

	// Optional overrides; zero values carry the old contract's terms forward.
	NewMonthlyRent     *decimal.Decimal `json:"new_monthly_rent,omitempty"`
	NewSecurityDeposit *decimal.Decimal `json:"new_security_deposit,omitempty"`
	NewDayOfMonth      *int             `json:"new_day_of_month,omitempty"`

	Notes                   string `json:"notes,omitempty"`
	GenerateDuesImmediately bool   `json:"generate_dues_immediately"`
}

// Validate checks the renewal terms against the contract being renewed.
func (r *RenewalRequest) Validate(currentEnd time.Time) *ValidationError {
	var fields []FieldError
	if r.NewEndDate.IsZero() {
		fields = append(fields, FieldError{"new_end_date", "new end date is required"})
	} else if !calendar.Midnight(r.NewEndDate).After(calendar.Midnight(currentEnd)) {
		fields = append(fields, FieldError{"new_end_date", "new end date must be after the current end date"})
	}
	if r.NewMonthlyRent != nil && r.NewMonthlyRent.Sign() <= 0 {
		fields = append(fields, FieldError{"new_monthly_rent", "monthly rent must be positive"})
	}
	if r.NewSecurityDeposit != nil && r.NewSecurityDeposit.Sign() < 0 {
		fields = append(fields, FieldError{"new_security_deposit", "security deposit must not be negative"})
	}
	if r.NewDayOfMonth != nil && (*r.NewDayOfMonth < 1 || *r.NewDayOfMonth > 31) {
		fields = append(fields, FieldError{"new_day_of_month", "day of month must be between 1 and 31"})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// CancellationRequest terminates a PENDING or ACTIVE contract.
type CancellationRequest struct {
	Category CancellationCategory `json:"category"`
	Reason   string               `json:"reason"`

	// CancelUnpaidDues also transitions the contract's UNPAID and OVERDUE
	// dues to CANCELLED. Paid dues are never touched.
	CancelUnpaidDues bool   `json:"cancel_unpaid_dues"`
	Notes            string `json:"notes,omitempty"`
}

// Validate checks the cancellation request.
func (r *CancellationRequest) Validate() *ValidationError {
	var fields []FieldError
	if !validCancellationCategory(r.Category) {
		fields = append(fields, FieldError{"category", "unknown cancellation category"})
	}
	if r.Reason == "" {
		fields = append(fields, FieldError{"reason", "cancellation reason is required"})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// ModificationRequest supersedes a contract with adjusted terms from an
// effective date.
type ModificationRequest struct {
	EffectiveDate time.Time `json:"effective_date"`

	NewMonthlyRent     *decimal.Decimal `json:"new_monthly_rent,omitempty"`
	NewSecurityDeposit *decimal.Decimal `json:"new_security_deposit,omitempty"`
	NewDayOfMonth      *int             `json:"new_day_of_month,omitempty"`
	NewEndDate         *time.Time       `json:"new_end_date,omitempty"`

	Reason string `json:"reason"`
	Notes  string `json:"notes,omitempty"`

	// RegenerateDues cancels the old contract's unpaid dues from the
	// effective date and regenerates them on the new contract at the new
	// terms.
	RegenerateDues bool `json:"regenerate_dues"`
}

// Validate checks the modification request. today guards against effective
// dates in the past.
func (r *ModificationRequest) Validate(today time.Time) *ValidationError {
	var fields []FieldError
	if r.EffectiveDate.IsZero() {
		fields = append(fields, FieldError{"effective_date", "effective date is required"})
	} else if calendar.Midnight(r.EffectiveDate).Before(calendar.Midnight(today)) {
		fields = append(fields, FieldError{"effective_date", "effective date must not be in the past"})
	}
	if r.NewMonthlyRent != nil && r.NewMonthlyRent.Sign() <= 0 {
		fields = append(fields, FieldError{"new_monthly_rent", "monthly rent must be positive"})
	}
	if r.NewSecurityDeposit != nil && r.NewSecurityDeposit.Sign() < 0 {
		fields = append(fields, FieldError{"new_security_deposit", "security deposit must not be negative"})
	}
	if r.NewDayOfMonth != nil && (*r.NewDayOfMonth < 1 || *r.NewDayOfMonth > 31) {
		fields = append(fields, FieldError{"new_day_of_month", "day of month must be between 1 and 31"})
	}
	if r.Reason == "" {
		fields = append(fields, FieldError{"reason", "modification reason is required"})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
