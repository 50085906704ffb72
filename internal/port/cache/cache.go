// Package cache defines the port interface for caching.
package cache

import (
	"context"
	"time"
)

// Cache is the port interface for key-value caching of read models such as
// the per-flat active-contract snapshot.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ActiveContractKey is the cache key for a flat's active-contract snapshot.
func ActiveContractKey(flatID string) string {
	return "flat:" + flatID + ":active_contract"
}

// FlatDuesKey is the cache key for a flat's due summary.
func FlatDuesKey(flatID string) string {
	return "flat:" + flatID + ":dues"
}
