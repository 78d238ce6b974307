package expenses

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

// Repository persists expenses.
type Repository interface {
	Get(ctx context.Context, tenantID, id int64) (Expense, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository runs inside the transaction that also writes the journal entry.
type TxRepository interface {
	Journal() journals.TxRepository
	Insert(ctx context.Context, e Expense) (Expense, error)
	Update(ctx context.Context, e Expense) (Expense, error)
	Delete(ctx context.Context, tenantID, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns the pgx backed expense repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func scanExpense(row pgx.Row) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.TenantID, &e.Description, &e.Amount, &e.ExpenseAccountID, &e.ExpenseDate, &e.VendorID, &e.Category, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, shared.ErrDocumentNotFound
	}
	return e, err
}

func (r *repository) Get(ctx context.Context, tenantID, id int64) (Expense, error) {
	return scanExpense(r.pool.QueryRow(ctx, `SELECT id, tenant_id, description, amount, expense_account_id, expense_date, vendor_id, category, created_at, updated_at
FROM expenses WHERE id=$1 AND tenant_id=$2`, id, tenantID))
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx, journal: journals.NewTxRepository(tx)})
	})
}

type txRepository struct {
	tx      pgx.Tx
	journal journals.TxRepository
}

func (r *txRepository) Journal() journals.TxRepository {
	return r.journal
}

func (r *txRepository) Insert(ctx context.Context, e Expense) (Expense, error) {
	return scanExpense(r.tx.QueryRow(ctx, `INSERT INTO expenses (tenant_id, description, amount, expense_account_id, expense_date, vendor_id, category)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id, tenant_id, description, amount, expense_account_id, expense_date, vendor_id, category, created_at, updated_at`,
		e.TenantID, e.Description, e.Amount, e.ExpenseAccountID, e.ExpenseDate, e.VendorID, e.Category))
}

func (r *txRepository) Update(ctx context.Context, e Expense) (Expense, error) {
	return scanExpense(r.tx.QueryRow(ctx, `UPDATE expenses SET description=$3, amount=$4, expense_account_id=$5, expense_date=$6, vendor_id=$7, category=$8, updated_at=NOW()
WHERE id=$1 AND tenant_id=$2
RETURNING id, tenant_id, description, amount, expense_account_id, expense_date, vendor_id, category, created_at, updated_at`,
		e.ID, e.TenantID, e.Description, e.Amount, e.ExpenseAccountID, e.ExpenseDate, e.VendorID, e.Category))
}

func (r *txRepository) Delete(ctx context.Context, tenantID, id int64) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM expenses WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrDocumentNotFound
	}
	return nil
}
