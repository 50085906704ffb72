// Package audit defines the audit trail entry written for every committed
// lifecycle change and for rejected or rolled-back operations.
package audit

import "time"

// Action identifies what was attempted or done.
type Action string

const (
	ActionContractCreated       Action = "CONTRACT_CREATED"
	ActionContractRenewed       Action = "CONTRACT_RENEWED"
	ActionContractCancelled     Action = "CONTRACT_CANCELLED"
	ActionContractModified      Action = "CONTRACT_MODIFIED"
	ActionContractStatusChanged Action = "CONTRACT_STATUS_CHANGED"
	ActionDuesGenerated         Action = "CONTRACT_DUES_GENERATED"
	ActionDuesCancelled         Action = "CONTRACT_DUES_CANCELLED"
	ActionOperationFailed       Action = "CONTRACT_OPERATION_FAILED"
)

// Entry is one audit record.
type Entry struct {
	ID         string    `json:"id"`
	Action     Action    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id,omitempty"`
	ActorID    string    `json:"actor_id,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	Success    bool      `json:"success"`
	At         time.Time `json:"at"`
}
