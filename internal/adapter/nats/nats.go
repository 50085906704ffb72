// Package nats relays committed domain events to NATS JetStream so other
// systems (payment processing, reporting) can react to contract changes.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/rentwise/rentd/internal/domain/event"
)

const streamName = "RENTD"

// Relay publishes domain events to a JetStream stream. The subject is the
// event type, so consumers can filter on "contract.>" or "dues.>".
type Relay struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// Connect establishes a connection to NATS and ensures the JetStream stream exists.
func Connect(ctx context.Context, url string) (*Relay, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"contract.>", "dues.>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", url, "stream", streamName)
	return &Relay{nc: nc, js: js}, nil
}

// Publish sends the event to JetStream. The message ID is the event ID, so
// redelivery from the at-least-once pipeline deduplicates server-side.
func (r *Relay) Publish(ctx context.Context, e event.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", e.ID, err)
	}

	_, err = r.js.Publish(ctx, string(e.Type), data, jetstream.WithMsgID(e.ID))
	if err != nil {
		return fmt.Errorf("nats publish %s: %w", e.Type, err)
	}
	return nil
}

// Close shuts down the NATS connection.
func (r *Relay) Close() error {
	r.nc.Close()
	return nil
}
