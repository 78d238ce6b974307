package reconciliation

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

// Repository reads bank lines and payments awaiting reconciliation.
type Repository interface {
	UnmatchedPayments(ctx context.Context, tenantID int64) ([]UnmatchedPayment, error)
	UnreconciledTransactions(ctx context.Context, tenantID, bankAccountID int64) ([]BankTransaction, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository locks and marks rows inside one transaction.
type TxRepository interface {
	Journal() journals.TxRepository
	LockTransaction(ctx context.Context, tenantID, id int64) (BankTransaction, error)
	BankAccount(ctx context.Context, tenantID, id int64) (BankAccount, error)
	LockPayment(ctx context.Context, tenantID, id int64) (amount decimal.Decimal, reconciled bool, err error)
	MarkReconciled(ctx context.Context, tenantID, bankTxID int64, paymentID *int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns the pgx backed reconciliation repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) UnmatchedPayments(ctx context.Context, tenantID int64) ([]UnmatchedPayment, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, i.invoice_number, p.amount_paid, p.payment_date
FROM payments p
JOIN invoices i ON i.id = p.invoice_id
WHERE p.tenant_id=$1 AND p.is_reconciled = FALSE
ORDER BY p.payment_date DESC, p.id DESC`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []UnmatchedPayment
	for rows.Next() {
		var p UnmatchedPayment
		if err := rows.Scan(&p.ID, &p.InvoiceNumber, &p.Amount, &p.PaymentDate); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) UnreconciledTransactions(ctx context.Context, tenantID, bankAccountID int64) ([]BankTransaction, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, tenant_id, bank_account_id, transaction_date, description, amount, is_reconciled, linked_payment_id
FROM bank_transactions
WHERE tenant_id=$1 AND bank_account_id=$2 AND is_reconciled = FALSE
ORDER BY transaction_date, id`, tenantID, bankAccountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BankTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTransaction(row pgx.Row) (BankTransaction, error) {
	var t BankTransaction
	err := row.Scan(&t.ID, &t.TenantID, &t.BankAccountID, &t.Date, &t.Description, &t.Amount, &t.IsReconciled, &t.LinkedPaymentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return BankTransaction{}, shared.ErrDocumentNotFound
	}
	return t, err
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

func (r *txRepository) LockTransaction(ctx context.Context, tenantID, id int64) (BankTransaction, error) {
	return scanTransaction(r.tx.QueryRow(ctx, `SELECT id, tenant_id, bank_account_id, transaction_date, description, amount, is_reconciled, linked_payment_id
FROM bank_transactions WHERE id=$1 AND tenant_id=$2 FOR UPDATE`, id, tenantID))
}

func (r *txRepository) BankAccount(ctx context.Context, tenantID, id int64) (BankAccount, error) {
	var a BankAccount
	err := r.tx.QueryRow(ctx, `SELECT id, tenant_id, name, gl_account_id FROM bank_accounts WHERE id=$1 AND tenant_id=$2`, id, tenantID).
		Scan(&a.ID, &a.TenantID, &a.Name, &a.GLAccountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return BankAccount{}, shared.NotFound("bank account", id)
	}
	return a, err
}

func (r *txRepository) LockPayment(ctx context.Context, tenantID, id int64) (decimal.Decimal, bool, error) {
	var (
		amount     decimal.Decimal
		reconciled bool
	)
	err := r.tx.QueryRow(ctx, `SELECT amount_paid, is_reconciled FROM payments WHERE id=$1 AND tenant_id=$2 FOR UPDATE`, id, tenantID).Scan(&amount, &reconciled)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, false, shared.NotFound("payment", id)
	}
	return amount, reconciled, err
}

func (r *txRepository) MarkReconciled(ctx context.Context, tenantID, bankTxID int64, paymentID *int64) error {
	if _, err := r.tx.Exec(ctx, `UPDATE bank_transactions SET is_reconciled = TRUE, linked_payment_id = COALESCE($3, linked_payment_id)
WHERE id=$1 AND tenant_id=$2`, bankTxID, tenantID, paymentID); err != nil {
		return err
	}
	if paymentID == nil {
		return nil
	}
	_, err := r.tx.Exec(ctx, `UPDATE payments SET is_reconciled = TRUE WHERE id=$1 AND tenant_id=$2`, *paymentID, tenantID)
	return err
}
