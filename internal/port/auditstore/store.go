// Package auditstore defines the audit trail sink port (interface).
// The storage format behind it is not this service's concern.
package auditstore

import (
	"context"

	"github.com/rentwise/rentd/internal/domain/audit"
)

// Store is the port interface for appending audit entries.
type Store interface {
	Append(ctx context.Context, e audit.Entry) error
}
