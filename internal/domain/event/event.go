// Package event defines the immutable domain events raised after contract
// lifecycle changes commit. Events are ephemeral: they carry enough payload
// for handlers to act without re-querying, and they are delivered
// at-least-once, so every handler must be idempotent.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type identifies the kind of domain event.
type Type string

const (
	TypeContractCreated       Type = "contract.created"
	TypeContractRenewed       Type = "contract.renewed"
	TypeContractCancelled     Type = "contract.cancelled"
	TypeContractModified      Type = "contract.modified"
	TypeContractStatusChanged Type = "contract.status_changed"
	TypeDuesGenerated         Type = "dues.generated"
)

// Event is a single immutable record of a committed lifecycle change.
type Event struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	ActorID    string          `json:"actor_id,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// New builds an event with a fresh id and the payload marshaled to JSON.
func New(t Type, actorID string, occurredAt time.Time, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		ActorID:    actorID,
		Payload:    data,
		OccurredAt: occurredAt,
	}, nil
}

// Decode unmarshals the payload into dst.
func (e Event) Decode(dst any) error {
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// ContractCreatedPayload is the schema for contract.created events.
type ContractCreatedPayload struct {
	ContractID    string    `json:"contract_id"`
	FlatID        string    `json:"flat_id"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	MonthlyRent   string    `json:"monthly_rent"`
	DuesGenerated bool      `json:"dues_generated"`
	// GenerateDues asks the due-generation listener to build the schedule
	// when the synchronous path was skipped at creation time.
	GenerateDues bool `json:"generate_dues"`
}

// ContractRenewedPayload is the schema for contract.renewed events.
type ContractRenewedPayload struct {
	OldContractID string    `json:"old_contract_id"`
	NewContractID string    `json:"new_contract_id"`
	FlatID        string    `json:"flat_id"`
	// ExtensionStart is the first day of the renewal period; extension due
	// generation starts here, never inside the already-serviced months.
	ExtensionStart time.Time `json:"extension_start"`
	NewEndDate     time.Time `json:"new_end_date"`
	GenerateDues   bool      `json:"generate_dues"`
}

// ContractCancelledPayload is the schema for contract.cancelled events.
type ContractCancelledPayload struct {
	ContractID       string    `json:"contract_id"`
	FlatID           string    `json:"flat_id"`
	Reason           string    `json:"reason"`
	CancelledAt      time.Time `json:"cancelled_at"`
	CancelUnpaidDues bool      `json:"cancel_unpaid_dues"`
}

// ContractModifiedPayload is the schema for contract.modified events.
type ContractModifiedPayload struct {
	OldContractID  string    `json:"old_contract_id"`
	NewContractID  string    `json:"new_contract_id"`
	FlatID         string    `json:"flat_id"`
	EffectiveDate  time.Time `json:"effective_date"`
	RegenerateDues bool      `json:"regenerate_dues"`
}

// ContractStatusChangedPayload is the schema for contract.status_changed
// events.
type ContractStatusChangedPayload struct {
	ContractID string `json:"contract_id"`
	FlatID     string `json:"flat_id"`
	OldStatus  string `json:"old_status"`
	NewStatus  string `json:"new_status"`
	// Automatic marks sweep-driven flips as opposed to manual operations.
	Automatic bool `json:"automatic"`
}

// DuesGeneratedPayload is the schema for dues.generated events.
type DuesGeneratedPayload struct {
	ContractID string    `json:"contract_id"`
	FlatID     string    `json:"flat_id"`
	Count      int       `json:"count"`
	FirstDue   time.Time `json:"first_due,omitempty"`
}
