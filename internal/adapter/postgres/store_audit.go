package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentwise/rentd/internal/domain/audit"
)

// AuditStore implements auditstore.Store using PostgreSQL. Entries are
// append-only; nothing in the service reads them back.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore creates an AuditStore backed by the given connection pool.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

func (s *AuditStore) Append(ctx context.Context, e audit.Entry) error {
	at := e.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := db(ctx, s.pool).Exec(ctx,
		`INSERT INTO audit_log (action, entity_type, entity_id, actor_id, detail, success, at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(e.Action), e.EntityType, nullIfEmpty(e.EntityID), e.ActorID, e.Detail, e.Success, at)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}
