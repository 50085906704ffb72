// Package eventbus defines the domain event delivery port (interface).
package eventbus

import (
	"context"

	"github.com/rentwise/rentd/internal/domain/event"
)

// Handler processes one committed domain event. Handlers run after the
// originating transaction has committed and may be invoked more than once
// per event, so they must be idempotent. A handler's failure is its own:
// it never affects the lifecycle result already returned to the caller.
type Handler func(ctx context.Context, ev event.Event)

// Bus is the port interface for post-commit event delivery. Publishers must
// only hand over events whose originating transaction has committed; the
// bus then delivers asynchronously to every subscribed handler.
type Bus interface {
	// Publish enqueues a committed event for delivery.
	Publish(ctx context.Context, ev event.Event) error

	// Subscribe registers a named handler for all event types. The name is
	// used for logging only.
	Subscribe(name string, h Handler)

	// Close stops delivery after draining queued events.
	Close()
}
