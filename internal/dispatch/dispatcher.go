// Package dispatch delivers committed domain events to registered handlers
// on a bounded worker pool. It implements the eventbus.Bus port for
// in-process side effects: due generation, audit writes, notifications,
// cache invalidation, and the external relay.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/rentwise/rentd/internal/domain/event"
	"github.com/rentwise/rentd/internal/port/eventbus"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("dispatch: dispatcher closed")

type subscriber struct {
	name    string
	handler eventbus.Handler
}

// Dispatcher fans committed events out to every subscriber. Handlers for
// one event run in unspecified order relative to each other; all of them
// observe state the originating transaction has already committed.
type Dispatcher struct {
	log *slog.Logger

	mu   sync.RWMutex
	subs []subscriber

	ch      chan event.Event
	wg      sync.WaitGroup
	dropped atomic.Int64

	closeMu   sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// New creates a dispatcher with the given queue capacity and worker count.
func New(log *slog.Logger, queueSize, workers int) *Dispatcher {
	if queueSize < 1 {
		queueSize = 64
	}
	if workers < 1 {
		workers = 2
	}
	d := &Dispatcher{
		log: log,
		ch:  make(chan event.Event, queueSize),
	}
	for range workers {
		d.wg.Add(1)
		go d.drain()
	}
	return d
}

// Subscribe registers a named handler for all event types.
func (d *Dispatcher) Subscribe(name string, h eventbus.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs = append(d.subs, subscriber{name: name, handler: h})
}

// Publish enqueues a committed event for asynchronous delivery. It blocks
// when the queue is full rather than dropping: losing a lifecycle event
// would silently desynchronize side effects from the committed state.
// After Close it returns ErrClosed.
func (d *Dispatcher) Publish(_ context.Context, ev event.Event) error {
	d.closeMu.RLock()
	defer d.closeMu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	d.ch <- ev
	return nil
}

func (d *Dispatcher) drain() {
	defer d.wg.Done()
	for ev := range d.ch {
		d.deliver(ev)
	}
}

func (d *Dispatcher) deliver(ev event.Event) {
	d.mu.RLock()
	subs := make([]subscriber, len(d.subs))
	copy(subs, d.subs)
	d.mu.RUnlock()

	for _, s := range subs {
		d.invoke(s, ev)
	}
}

// invoke runs one handler, containing its panics so a misbehaving listener
// never blocks the others.
func (d *Dispatcher) invoke(s subscriber, ev event.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.dropped.Add(1)
			d.log.Error("event handler panicked",
				"handler", s.name, "event_type", ev.Type, "event_id", ev.ID, "panic", r)
		}
	}()
	s.handler(context.Background(), ev)
}

// Close drains queued events and stops the workers. The closed flag is set
// under the write lock before the channel closes, so no Publish can race a
// send against the close.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		d.closeMu.Lock()
		d.closed = true
		d.closeMu.Unlock()
		close(d.ch)
		d.wg.Wait()
	})
}

// Panicked returns how many handler invocations ended in a panic.
func (d *Dispatcher) Panicked() int64 {
	return d.dropped.Load()
}
