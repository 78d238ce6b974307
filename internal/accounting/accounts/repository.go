package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

// Repository persists the chart of accounts.
type Repository interface {
	Create(ctx context.Context, tenantID int64, in AccountInput) (Account, error)
	Get(ctx context.Context, tenantID, id int64) (Account, error)
	List(ctx context.Context, tenantID int64) ([]Account, error)
	Update(ctx context.Context, tenantID, id int64, in AccountUpdate) (Account, error)
	Delete(ctx context.Context, tenantID, id int64) error
	HasLines(ctx context.Context, tenantID, id int64) (bool, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a pgx backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, tenant_id, number, name, type, subtype, description, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.TenantID, &a.Number, &a.Name, &a.Type, &a.Subtype, &a.Description, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) Create(ctx context.Context, tenantID int64, in AccountInput) (Account, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO accounts (tenant_id, number, name, type, subtype, description, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING `+accountColumns, tenantID, in.Number, in.Name, in.Type, in.Subtype, in.Description, in.IsActive)
	a, err := scanAccount(row)
	if err != nil && db.IsUniqueViolation(err, "uq_accounts_tenant_number") {
		return Account{}, shared.ErrDuplicateAccountNumber
	}
	return a, err
}

func (r *repository) Get(ctx context.Context, tenantID, id int64) (Account, error) {
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1 AND tenant_id=$2`, id, tenantID))
}

func (r *repository) List(ctx context.Context, tenantID int64) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE tenant_id=$1 ORDER BY number`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) Update(ctx context.Context, tenantID, id int64, in AccountUpdate) (Account, error) {
	row := r.db.QueryRow(ctx, `UPDATE accounts SET number=$3, name=$4, subtype=$5, description=$6, is_active=$7, updated_at=NOW()
WHERE id=$1 AND tenant_id=$2 RETURNING `+accountColumns, id, tenantID, in.Number, in.Name, in.Subtype, in.Description, in.IsActive)
	a, err := scanAccount(row)
	if err != nil && db.IsUniqueViolation(err, "uq_accounts_tenant_number") {
		return Account{}, shared.ErrDuplicateAccountNumber
	}
	return a, err
}

func (r *repository) Delete(ctx context.Context, tenantID, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return shared.ErrAccountInUse
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

func (r *repository) HasLines(ctx context.Context, tenantID, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM journal_entry_lines l JOIN journal_entries e ON e.id = l.entry_id
WHERE l.account_id=$1 AND e.tenant_id=$2)`, id, tenantID).Scan(&exists)
	return exists, err
}
