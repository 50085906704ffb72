// Package notifier defines the outbound notification port (interface).
// Delivery is best-effort: a failed send is logged by the caller and never
// affects the lifecycle change that triggered it.
package notifier

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when a notifier is not properly configured.
var ErrNotConfigured = errors.New("notifier: not configured")

// Notification is the payload sent through a Notifier.
type Notification struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Level     string `json:"level"`  // "info", "warning"
	Source    string `json:"source"` // e.g. "contract.created", "contract.expiring"
}

// Notifier is the port interface for sending notifications.
type Notifier interface {
	// Name returns the unique identifier for this notifier (e.g. "email").
	Name() string

	// Send delivers a notification.
	Send(ctx context.Context, n Notification) error
}
