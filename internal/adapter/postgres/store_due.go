package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentwise/rentd/internal/domain"
	"github.com/rentwise/rentd/internal/domain/due"
)

// DueStore implements duestore.Store using PostgreSQL.
type DueStore struct {
	pool *pgxpool.Pool
}

// NewDueStore creates a DueStore backed by the given connection pool.
func NewDueStore(pool *pgxpool.Pool) *DueStore {
	return &DueStore{pool: pool}
}

func (s *DueStore) Create(ctx context.Context, d *due.Due) error {
	err := db(ctx, s.pool).QueryRow(ctx,
		`INSERT INTO monthly_dues (flat_id, contract_id, due_date, amount, paid_amount, status, description)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		d.FlatID, d.ContractID, d.DueDate, d.Amount, d.PaidAmount, string(d.Status), d.Description,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "monthly_dues_flat_due_date_key") {
			return fmt.Errorf("create due for flat %s on %s: %w",
				d.FlatID, d.DueDate.Format("2006-01-02"), domain.ErrConflict)
		}
		return fmt.Errorf("create due: %w", err)
	}
	return nil
}

func (s *DueStore) ExistsFor(ctx context.Context, flatID string, date time.Time) (bool, error) {
	var exists bool
	err := db(ctx, s.pool).QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM monthly_dues
			WHERE flat_id = $1 AND due_date = $2 AND status <> 'CANCELLED'
		)`,
		flatID, date,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("due exists for flat %s: %w", flatID, err)
	}
	return exists, nil
}

func (s *DueStore) ByContract(ctx context.Context, contractID string) ([]due.Due, error) {
	rows, err := db(ctx, s.pool).Query(ctx,
		`SELECT id, flat_id, contract_id, due_date, amount, paid_amount, status, description, payment_date, created_at, updated_at
		 FROM monthly_dues WHERE contract_id = $1 ORDER BY due_date ASC`, contractID)
	if err != nil {
		return nil, fmt.Errorf("dues by contract %s: %w", contractID, err)
	}
	defer rows.Close()

	var dues []due.Due
	for rows.Next() {
		var d due.Due
		if err := rows.Scan(
			&d.ID, &d.FlatID, &d.ContractID, &d.DueDate, &d.Amount, &d.PaidAmount,
			&d.Status, &d.Description, &d.PaymentDate, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan due: %w", err)
		}
		dues = append(dues, d)
	}
	return dues, rows.Err()
}

func (s *DueStore) HasPaid(ctx context.Context, contractID string) (bool, error) {
	var exists bool
	err := db(ctx, s.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM monthly_dues
		  WHERE contract_id = $1 AND status IN ('PAID', 'PARTIALLY_PAID'))`, contractID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has paid dues for contract %s: %w", contractID, err)
	}
	return exists, nil
}

func (s *DueStore) CancelUnpaidFrom(ctx context.Context, contractID string, from time.Time) (int, error) {
	tag, err := db(ctx, s.pool).Exec(ctx,
		`UPDATE monthly_dues SET status = 'CANCELLED', updated_at = now()
		 WHERE contract_id = $1
		   AND status IN ('UNPAID', 'OVERDUE')
		   AND ($2::date IS NULL OR due_date >= $2)`,
		contractID, nullTime(from))
	if err != nil {
		return 0, fmt.Errorf("cancel unpaid dues for contract %s: %w", contractID, err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *DueStore) MarkOverdue(ctx context.Context, today time.Time) (int, error) {
	tag, err := db(ctx, s.pool).Exec(ctx,
		`UPDATE monthly_dues SET status = 'OVERDUE', updated_at = now()
		 WHERE status = 'UNPAID' AND due_date < $1`, today)
	if err != nil {
		return 0, fmt.Errorf("mark overdue dues: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
