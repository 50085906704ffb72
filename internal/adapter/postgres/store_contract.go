package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rentwise/rentd/internal/domain"
	"github.com/rentwise/rentd/internal/domain/contract"
)

// contractColumns is the column list shared by every contract SELECT.
const contractColumns = `id, flat_id, start_date, end_date, monthly_rent, day_of_month, security_deposit,
	due_amount, status, COALESCE(previous_contract_id::text, ''), tenant_name, tenant_contact, tenant_email,
	notes, auto_renew, dues_generated, cancellation_reason, cancellation_date, cancelled_by,
	status_changed_at, status_changed_by, status_change_reason, version, created_at, updated_at`

// ContractStore implements contractstore.Store using PostgreSQL.
type ContractStore struct {
	pool *pgxpool.Pool
}

// NewContractStore creates a ContractStore backed by the given connection pool.
func NewContractStore(pool *pgxpool.Pool) *ContractStore {
	return &ContractStore{pool: pool}
}

func (s *ContractStore) Create(ctx context.Context, c *contract.Contract) error {
	err := db(ctx, s.pool).QueryRow(ctx,
		`INSERT INTO contracts (flat_id, start_date, end_date, monthly_rent, day_of_month, security_deposit,
		   due_amount, status, previous_contract_id, tenant_name, tenant_contact, tenant_email,
		   notes, auto_renew, dues_generated)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING id, version, created_at, updated_at`,
		c.FlatID, c.StartDate, c.EndDate, c.MonthlyRent, c.DayOfMonth, c.SecurityDeposit,
		nullDecimal(c.DueAmount), string(c.Status), nullIfEmpty(c.PreviousContractID),
		c.TenantName, c.TenantContact, c.TenantEmail, c.Notes, c.AutoRenew, c.DuesGenerated,
	).Scan(&c.ID, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "contracts_one_active_per_flat") {
			return fmt.Errorf("create contract for flat %s: %w", c.FlatID, domain.ErrConflict)
		}
		return fmt.Errorf("create contract: %w", err)
	}
	return nil
}

func (s *ContractStore) Update(ctx context.Context, c *contract.Contract) error {
	tag, err := db(ctx, s.pool).Exec(ctx,
		`UPDATE contracts SET status = $2, notes = $3, auto_renew = $4, dues_generated = $5,
		   cancellation_reason = $6, cancellation_date = $7, cancelled_by = $8,
		   status_changed_at = $9, status_changed_by = $10, status_change_reason = $11,
		   updated_at = now()
		 WHERE id = $1 AND version = $12`,
		c.ID, string(c.Status), c.Notes, c.AutoRenew, c.DuesGenerated,
		c.CancellationReason, c.CancellationDate, c.CancelledBy,
		c.StatusChangedAt, c.StatusChangedBy, c.StatusChangeReason, c.Version)
	if err != nil {
		return fmt.Errorf("update contract %s: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update contract %s: %w", c.ID, domain.ErrConflict)
	}
	c.Version++
	return nil
}

func (s *ContractStore) Get(ctx context.Context, id string) (*contract.Contract, error) {
	row := db(ctx, s.pool).QueryRow(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE id = $1`, id)

	c, err := scanContract(row)
	if err != nil {
		return nil, notFoundWrap(err, "get contract %s", id)
	}
	return &c, nil
}

func (s *ContractStore) ActiveByFlat(ctx context.Context, flatID string) (*contract.Contract, error) {
	row := db(ctx, s.pool).QueryRow(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE flat_id = $1 AND status = 'ACTIVE'`, flatID)

	c, err := scanContract(row)
	if err != nil {
		return nil, notFoundWrap(err, "active contract for flat %s", flatID)
	}
	return &c, nil
}

func (s *ContractStore) HasActive(ctx context.Context, flatID string) (bool, error) {
	var exists bool
	err := db(ctx, s.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM contracts WHERE flat_id = $1 AND status = 'ACTIVE')`, flatID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has active contract for flat %s: %w", flatID, err)
	}
	return exists, nil
}

func (s *ContractStore) FindOverlapping(ctx context.Context, flatID string, start, end time.Time, excludeID string) ([]contract.Contract, error) {
	rows, err := db(ctx, s.pool).Query(ctx,
		`SELECT `+contractColumns+`
		 FROM contracts
		 WHERE flat_id = $1
		   AND status NOT IN ('CANCELLED', 'SUPERSEDED')
		   AND start_date <= $3 AND end_date >= $2
		   AND ($4 = '' OR id::text <> $4)
		 ORDER BY start_date ASC`, flatID, start, end, excludeID)
	if err != nil {
		return nil, fmt.Errorf("find overlapping contracts: %w", err)
	}
	return collectContracts(rows)
}

func (s *ContractStore) FindNeedingStatusUpdate(ctx context.Context, today time.Time) ([]contract.Contract, error) {
	rows, err := db(ctx, s.pool).Query(ctx,
		`SELECT `+contractColumns+`
		 FROM contracts
		 WHERE (status = 'PENDING' AND start_date <= $1)
		    OR (status = 'ACTIVE' AND end_date < $1)
		 ORDER BY created_at ASC`, today)
	if err != nil {
		return nil, fmt.Errorf("find contracts needing status update: %w", err)
	}
	return collectContracts(rows)
}

func (s *ContractStore) FindExpiring(ctx context.Context, from, to time.Time) ([]contract.Contract, error) {
	rows, err := db(ctx, s.pool).Query(ctx,
		`SELECT `+contractColumns+`
		 FROM contracts
		 WHERE status = 'ACTIVE' AND end_date BETWEEN $1 AND $2
		 ORDER BY end_date ASC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("find expiring contracts: %w", err)
	}
	return collectContracts(rows)
}

func (s *ContractStore) FindRenewable(ctx context.Context, from, to time.Time) ([]contract.Contract, error) {
	rows, err := db(ctx, s.pool).Query(ctx,
		`SELECT `+contractColumns+`
		 FROM contracts c
		 WHERE c.status = 'ACTIVE' AND c.end_date BETWEEN $1 AND $2
		   AND NOT EXISTS (SELECT 1 FROM contracts r WHERE r.previous_contract_id = c.id)
		 ORDER BY c.end_date ASC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("find renewable contracts: %w", err)
	}
	return collectContracts(rows)
}

func (s *ContractStore) RenewalOf(ctx context.Context, previousID string) (*contract.Contract, error) {
	row := db(ctx, s.pool).QueryRow(ctx,
		`SELECT `+contractColumns+`
		 FROM contracts WHERE previous_contract_id = $1
		 ORDER BY created_at DESC LIMIT 1`, previousID)

	c, err := scanContract(row)
	if err != nil {
		return nil, notFoundWrap(err, "renewal of contract %s", previousID)
	}
	return &c, nil
}

func collectContracts(rows pgx.Rows) ([]contract.Contract, error) {
	defer rows.Close()

	var contracts []contract.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contract: %w", err)
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

func scanContract(row scannable) (contract.Contract, error) {
	var c contract.Contract
	var dueAmount decimal.NullDecimal
	err := row.Scan(
		&c.ID, &c.FlatID, &c.StartDate, &c.EndDate, &c.MonthlyRent, &c.DayOfMonth, &c.SecurityDeposit,
		&dueAmount, &c.Status, &c.PreviousContractID, &c.TenantName, &c.TenantContact, &c.TenantEmail,
		&c.Notes, &c.AutoRenew, &c.DuesGenerated, &c.CancellationReason, &c.CancellationDate, &c.CancelledBy,
		&c.StatusChangedAt, &c.StatusChangedBy, &c.StatusChangeReason, &c.Version, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return c, err
	}
	if dueAmount.Valid {
		c.DueAmount = &dueAmount.Decimal
	}
	return c, nil
}

// nullDecimal converts an optional decimal to its nullable DB form.
func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
