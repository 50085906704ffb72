package contract

import (
	"fmt"
	"strings"
	"time"
)

// FieldError describes a single invalid or missing input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates all field errors found in a request. It is
// returned before any persistence happens.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Conflict describes one existing contract whose date range collides with a
// candidate period.
type Conflict struct {
	ContractID string    `json:"contract_id"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	Status     Status    `json:"status"`
}

// OverlapError reports every existing contract that conflicts with the
// candidate period, so callers get a complete diagnostic rather than just
// the first collision.
type OverlapError struct {
	FlatID    string     `json:"flat_id"`
	StartDate time.Time  `json:"start_date"`
	EndDate   time.Time  `json:"end_date"`
	Conflicts []Conflict `json:"conflicts"`
}

func (e *OverlapError) Error() string {
	ranges := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		ranges[i] = fmt.Sprintf("%s (%s..%s, %s)",
			c.ContractID, c.StartDate.Format("2006-01-02"), c.EndDate.Format("2006-01-02"), c.Status)
	}
	return fmt.Sprintf("flat %s: period %s..%s overlaps existing contracts: %s",
		e.FlatID, e.StartDate.Format("2006-01-02"), e.EndDate.Format("2006-01-02"),
		strings.Join(ranges, ", "))
}

// ActiveContractError indicates the flat already has an ACTIVE contract.
type ActiveContractError struct {
	FlatID     string `json:"flat_id"`
	ContractID string `json:"contract_id,omitempty"`
}

func (e *ActiveContractError) Error() string {
	return fmt.Sprintf("flat %s already has an active contract", e.FlatID)
}

// TransitionError indicates an operation illegal for the contract's current
// status, naming both the offending state and the requested one.
type TransitionError struct {
	ContractID string `json:"contract_id"`
	From       Status `json:"from"`
	To         Status `json:"to"`
	Detail     string `json:"detail,omitempty"`
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("contract %s: illegal transition %s -> %s", e.ContractID, e.From, e.To)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}
