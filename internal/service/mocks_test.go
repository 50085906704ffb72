package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rentwise/rentd/internal/calendar"
	"github.com/rentwise/rentd/internal/domain"
	"github.com/rentwise/rentd/internal/domain/audit"
	"github.com/rentwise/rentd/internal/domain/contract"
	"github.com/rentwise/rentd/internal/domain/due"
	"github.com/rentwise/rentd/internal/domain/event"
	"github.com/rentwise/rentd/internal/port/auditstore"
	"github.com/rentwise/rentd/internal/port/cache"
	"github.com/rentwise/rentd/internal/port/contractstore"
	"github.com/rentwise/rentd/internal/port/duestore"
	"github.com/rentwise/rentd/internal/port/eventbus"
	"github.com/rentwise/rentd/internal/port/notifier"
	"github.com/rentwise/rentd/internal/port/txn"
)

var (
	_ contractstore.Store = (*mockContractStore)(nil)
	_ duestore.Store      = (*mockDueStore)(nil)
	_ auditstore.Store    = (*mockAuditStore)(nil)
	_ eventbus.Bus        = (*mockBus)(nil)
	_ txn.Transactor      = (*noopTx)(nil)
	_ cache.Cache         = (*mockCache)(nil)
	_ notifier.Notifier   = (*mockNotifier)(nil)
)

// mockContractStore is a minimal in-memory contract store for testing.
type mockContractStore struct {
	contracts []contract.Contract
	nextID    int

	// Error hooks, set to inject failures.
	createErr error
	updateErr error
	getErr    error
}

func (m *mockContractStore) Create(_ context.Context, c *contract.Contract) error {
	if m.createErr != nil {
		return m.createErr
	}
	if c.Status == contract.StatusActive {
		for i := range m.contracts {
			if m.contracts[i].FlatID == c.FlatID && m.contracts[i].Status == contract.StatusActive {
				return fmt.Errorf("create contract for flat %s: %w", c.FlatID, domain.ErrConflict)
			}
		}
	}
	m.nextID++
	c.ID = fmt.Sprintf("c-%d", m.nextID)
	c.Version = 1
	m.contracts = append(m.contracts, *c)
	return nil
}

func (m *mockContractStore) Update(_ context.Context, c *contract.Contract) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	for i := range m.contracts {
		if m.contracts[i].ID == c.ID {
			if m.contracts[i].Version != c.Version {
				return fmt.Errorf("update contract %s: %w", c.ID, domain.ErrConflict)
			}
			c.Version++
			m.contracts[i] = *c
			return nil
		}
	}
	return fmt.Errorf("update contract %s: %w", c.ID, domain.ErrNotFound)
}

func (m *mockContractStore) Get(_ context.Context, id string) (*contract.Contract, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for i := range m.contracts {
		if m.contracts[i].ID == id {
			c := m.contracts[i]
			return &c, nil
		}
	}
	return nil, fmt.Errorf("get contract %s: %w", id, domain.ErrNotFound)
}

func (m *mockContractStore) ActiveByFlat(_ context.Context, flatID string) (*contract.Contract, error) {
	for i := range m.contracts {
		if m.contracts[i].FlatID == flatID && m.contracts[i].Status == contract.StatusActive {
			c := m.contracts[i]
			return &c, nil
		}
	}
	return nil, fmt.Errorf("active contract for flat %s: %w", flatID, domain.ErrNotFound)
}

func (m *mockContractStore) HasActive(ctx context.Context, flatID string) (bool, error) {
	_, err := m.ActiveByFlat(ctx, flatID)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (m *mockContractStore) FindOverlapping(_ context.Context, flatID string, start, end time.Time, excludeID string) ([]contract.Contract, error) {
	var out []contract.Contract
	for i := range m.contracts {
		c := m.contracts[i]
		if c.FlatID != flatID || c.ID == excludeID {
			continue
		}
		if c.Status == contract.StatusCancelled || c.Status == contract.StatusSuperseded {
			continue
		}
		if calendar.PeriodsOverlap(c.StartDate, c.EndDate, start, end) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockContractStore) FindNeedingStatusUpdate(_ context.Context, today time.Time) ([]contract.Contract, error) {
	var out []contract.Contract
	for i := range m.contracts {
		c := m.contracts[i]
		switch {
		case c.Status == contract.StatusPending && !calendar.Midnight(c.StartDate).After(today):
			out = append(out, c)
		case c.Status == contract.StatusActive && calendar.Midnight(c.EndDate).Before(today):
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockContractStore) FindExpiring(_ context.Context, from, to time.Time) ([]contract.Contract, error) {
	var out []contract.Contract
	for i := range m.contracts {
		c := m.contracts[i]
		if c.Status != contract.StatusActive {
			continue
		}
		end := calendar.Midnight(c.EndDate)
		if !end.Before(from) && !end.After(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockContractStore) FindRenewable(ctx context.Context, from, to time.Time) ([]contract.Contract, error) {
	expiring, _ := m.FindExpiring(ctx, from, to)
	var out []contract.Contract
	for _, c := range expiring {
		if _, err := m.RenewalOf(ctx, c.ID); err != nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockContractStore) RenewalOf(_ context.Context, previousID string) (*contract.Contract, error) {
	for i := range m.contracts {
		if m.contracts[i].PreviousContractID == previousID {
			c := m.contracts[i]
			return &c, nil
		}
	}
	return nil, fmt.Errorf("renewal of %s: %w", previousID, domain.ErrNotFound)
}

// mockDueStore is a minimal in-memory due store for testing.
type mockDueStore struct {
	dues   []due.Due
	nextID int

	createErr error
	existsErr error
}

func (m *mockDueStore) Create(_ context.Context, d *due.Due) error {
	if m.createErr != nil {
		return m.createErr
	}
	for i := range m.dues {
		if m.dues[i].FlatID == d.FlatID && m.dues[i].DueDate.Equal(d.DueDate) &&
			m.dues[i].Status != due.StatusCancelled {
			return fmt.Errorf("create due: %w", domain.ErrConflict)
		}
	}
	m.nextID++
	d.ID = fmt.Sprintf("d-%d", m.nextID)
	m.dues = append(m.dues, *d)
	return nil
}

func (m *mockDueStore) ExistsFor(_ context.Context, flatID string, date time.Time) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	for i := range m.dues {
		if m.dues[i].FlatID == flatID && m.dues[i].DueDate.Equal(date) &&
			m.dues[i].Status != due.StatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockDueStore) ByContract(_ context.Context, contractID string) ([]due.Due, error) {
	var out []due.Due
	for i := range m.dues {
		if m.dues[i].ContractID == contractID {
			out = append(out, m.dues[i])
		}
	}
	return out, nil
}

func (m *mockDueStore) HasPaid(_ context.Context, contractID string) (bool, error) {
	for i := range m.dues {
		d := m.dues[i]
		if d.ContractID == contractID && d.Paid() {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockDueStore) CancelUnpaidFrom(_ context.Context, contractID string, from time.Time) (int, error) {
	n := 0
	for i := range m.dues {
		d := &m.dues[i]
		if d.ContractID != contractID || !d.Cancellable() {
			continue
		}
		if !from.IsZero() && d.DueDate.Before(from) {
			continue
		}
		d.Status = due.StatusCancelled
		n++
	}
	return n, nil
}

func (m *mockDueStore) MarkOverdue(_ context.Context, today time.Time) (int, error) {
	n := 0
	for i := range m.dues {
		d := &m.dues[i]
		if d.Status == due.StatusUnpaid && d.DueDate.Before(today) {
			d.Status = due.StatusOverdue
			n++
		}
	}
	return n, nil
}

// mockAuditStore records appended entries.
type mockAuditStore struct {
	entries []audit.Entry
}

func (m *mockAuditStore) Append(_ context.Context, e audit.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockAuditStore) byAction(a audit.Action) []audit.Entry {
	var out []audit.Entry
	for _, e := range m.entries {
		if e.Action == a {
			out = append(out, e)
		}
	}
	return out
}

// mockBus records published events without delivering them.
type mockBus struct {
	mu     sync.Mutex
	events []event.Event
}

func (m *mockBus) Publish(_ context.Context, ev event.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *mockBus) Subscribe(string, eventbus.Handler) {}

func (m *mockBus) Close() {}

func (m *mockBus) byType(t event.Type) []event.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []event.Event
	for _, ev := range m.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// noopTx runs the function without any transaction.
type noopTx struct {
	// beginErr makes InTx fail before running fn.
	beginErr error
}

func (t *noopTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if t.beginErr != nil {
		return t.beginErr
	}
	return fn(ctx)
}

// mockCache is a map-backed cache ignoring TTLs.
type mockCache struct {
	data map[string][]byte
}

func newMockCache() *mockCache {
	return &mockCache{data: map[string][]byte{}}
}

func (m *mockCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mockCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

// mockNotifier records sent notifications.
type mockNotifier struct {
	sent    []notifier.Notification
	sendErr error
}

func (m *mockNotifier) Name() string { return "mock" }

func (m *mockNotifier) Send(_ context.Context, n notifier.Notification) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, n)
	return nil
}
