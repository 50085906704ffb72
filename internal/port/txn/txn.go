// Package txn defines the transaction boundary port (interface).
package txn

import "context"

// Transactor runs fn inside a single all-or-nothing transaction. Store
// calls made with the context passed to fn join that transaction; if fn
// returns an error the transaction rolls back and nothing fn wrote is
// observable.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
