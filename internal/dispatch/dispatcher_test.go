package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rentwise/rentd/internal/domain/event"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testEvent(t *testing.T) event.Event {
	t.Helper()
	ev, err := event.New(event.TypeContractCreated, "tester", time.Now(),
		event.ContractCreatedPayload{ContractID: "c1", FlatID: "f1"})
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	return ev
}

func TestDispatcherDeliversToAllSubscribers(t *testing.T) {
	d := New(testLogger(), 8, 2)
	defer d.Close()

	var mu sync.Mutex
	seen := map[string]int{}
	done := make(chan struct{}, 2)

	for _, name := range []string{"audit", "notify"} {
		d.Subscribe(name, func(_ context.Context, ev event.Event) {
			mu.Lock()
			seen[ev.ID]++
			mu.Unlock()
			done <- struct{}{}
		})
	}

	ev := testEvent(t)
	if err := d.Publish(context.Background(), ev); err != nil {
		t.Fatalf("publish: %v", err)
	}

	for range 2 {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for handlers")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if seen[ev.ID] != 2 {
		t.Errorf("expected both handlers to see the event, got %d", seen[ev.ID])
	}
}

func TestDispatcherIsolatesPanickingHandler(t *testing.T) {
	d := New(testLogger(), 8, 1)
	defer d.Close()

	var delivered atomic.Int64
	done := make(chan struct{}, 1)

	d.Subscribe("broken", func(context.Context, event.Event) {
		panic("listener bug")
	})
	d.Subscribe("healthy", func(context.Context, event.Event) {
		delivered.Add(1)
		done <- struct{}{}
	})

	if err := d.Publish(context.Background(), testEvent(t)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("healthy handler was blocked by the panicking one")
	}
	if delivered.Load() != 1 {
		t.Errorf("expected healthy handler to run once, got %d", delivered.Load())
	}
	if d.Panicked() != 1 {
		t.Errorf("expected 1 recorded panic, got %d", d.Panicked())
	}
}

func TestDispatcherCloseDrains(t *testing.T) {
	d := New(testLogger(), 16, 1)

	var count atomic.Int64
	d.Subscribe("counter", func(context.Context, event.Event) {
		count.Add(1)
	})

	for range 10 {
		if err := d.Publish(context.Background(), testEvent(t)); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	d.Close()

	if count.Load() != 10 {
		t.Errorf("expected all 10 queued events delivered before Close returned, got %d", count.Load())
	}
}

func TestDispatcherPublishAfterClose(t *testing.T) {
	d := New(testLogger(), 8, 1)
	d.Close()
	d.Close() // idempotent

	if err := d.Publish(context.Background(), testEvent(t)); err != ErrClosed {
		t.Fatalf("publish after close: err = %v, want ErrClosed", err)
	}
}
