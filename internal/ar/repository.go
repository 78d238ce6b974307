package ar

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

// Repository defines data access methods for AR.
type Repository interface {
	GetInvoice(ctx context.Context, tenantID, id int64) (Invoice, error)
	ListPayments(ctx context.Context, tenantID, invoiceID int64) ([]Payment, error)
	ListOutstanding(ctx context.Context, tenantID int64) ([]OpenInvoice, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes document writes that commit with their journal entry.
type TxRepository interface {
	Journal() journals.TxRepository
	LockInvoice(ctx context.Context, tenantID, id int64) (Invoice, error)
	InsertInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	UpdateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	SetStatus(ctx context.Context, tenantID, id int64, status InvoiceStatus) error
	DeleteInvoice(ctx context.Context, tenantID, id int64) error
	PaidTotal(ctx context.Context, tenantID, invoiceID int64) (decimal.Decimal, error)
	InsertPayment(ctx context.Context, p Payment) (Payment, error)
	PaymentIDs(ctx context.Context, tenantID, invoiceID int64) ([]int64, error)
	DeletePayments(ctx context.Context, tenantID, invoiceID int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns the pgx backed AR repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const invoiceColumns = `id, tenant_id, client_id, invoice_number, issue_date, due_date, subtotal, tax_1, tax_2, tax_3, tax_4, total_amount, status, created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.TenantID, &inv.ClientID, &inv.Number, &inv.IssueDate, &inv.DueDate, &inv.Subtotal,
		&inv.Taxes[0], &inv.Taxes[1], &inv.Taxes[2], &inv.Taxes[3], &inv.Total, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, shared.ErrDocumentNotFound
	}
	return inv, err
}

func loadInvoice(ctx context.Context, q querier, tenantID, id int64, lock bool) (Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id=$1 AND tenant_id=$2`
	if lock {
		query += ` FOR UPDATE`
	}
	inv, err := scanInvoice(q.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		return Invoice{}, err
	}
	rows, err := q.Query(ctx, `SELECT id, invoice_id, product_id, description, quantity, unit_price, line_total
FROM invoice_items WHERE invoice_id=$1 ORDER BY id`, id)
	if err != nil {
		return Invoice{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var it InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.ProductID, &it.Description, &it.Quantity, &it.UnitPrice, &it.LineTotal); err != nil {
			return Invoice{}, err
		}
		inv.Items = append(inv.Items, it)
	}
	return inv, rows.Err()
}

func (r *repository) GetInvoice(ctx context.Context, tenantID, id int64) (Invoice, error) {
	var inv Invoice
	err := db.WithSnapshot(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		inv, err = loadInvoice(ctx, tx, tenantID, id, false)
		return err
	})
	return inv, err
}

func (r *repository) ListPayments(ctx context.Context, tenantID, invoiceID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, tenant_id, invoice_id, amount_paid, payment_date, deposit_account, is_reconciled, created_at
FROM payments WHERE tenant_id=$1 AND invoice_id=$2 ORDER BY payment_date, id`, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.TenantID, &p.InvoiceID, &p.Amount, &p.PaymentDate, &p.DepositAccount, &p.IsReconciled, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) ListOutstanding(ctx context.Context, tenantID int64) ([]OpenInvoice, error) {
	rows, err := r.pool.Query(ctx, `SELECT i.id, i.invoice_number, i.due_date,
       i.total_amount - COALESCE((SELECT SUM(p.amount_paid) FROM payments p WHERE p.invoice_id = i.id), 0)
FROM invoices i
WHERE i.tenant_id=$1 AND i.status IN ('SENT', 'OVERDUE', 'PARTIALLY_PAID')
ORDER BY i.due_date, i.id`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OpenInvoice
	for rows.Next() {
		var o OpenInvoice
		if err := rows.Scan(&o.ID, &o.Number, &o.DueDate, &o.Balance); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
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

func (r *txRepository) LockInvoice(ctx context.Context, tenantID, id int64) (Invoice, error) {
	return loadInvoice(ctx, r.tx, tenantID, id, true)
}

func (r *txRepository) InsertInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO invoices (tenant_id, client_id, invoice_number, issue_date, due_date, subtotal, tax_1, tax_2, tax_3, tax_4, total_amount, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING id, created_at, updated_at`,
		inv.TenantID, inv.ClientID, inv.Number, inv.IssueDate, inv.DueDate, inv.Subtotal,
		inv.Taxes[0], inv.Taxes[1], inv.Taxes[2], inv.Taxes[3], inv.Total, inv.Status).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return Invoice{}, err
	}
	return r.insertItems(ctx, inv)
}

func (r *txRepository) UpdateInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	err := r.tx.QueryRow(ctx, `UPDATE invoices SET client_id=$3, invoice_number=$4, issue_date=$5, due_date=$6, subtotal=$7,
tax_1=$8, tax_2=$9, tax_3=$10, tax_4=$11, total_amount=$12, status=$13, updated_at=NOW()
WHERE id=$1 AND tenant_id=$2 RETURNING created_at, updated_at`,
		inv.ID, inv.TenantID, inv.ClientID, inv.Number, inv.IssueDate, inv.DueDate, inv.Subtotal,
		inv.Taxes[0], inv.Taxes[1], inv.Taxes[2], inv.Taxes[3], inv.Total, inv.Status).Scan(&inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, shared.ErrDocumentNotFound
	}
	if err != nil {
		return Invoice{}, err
	}
	if _, err := r.tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id=$1`, inv.ID); err != nil {
		return Invoice{}, err
	}
	return r.insertItems(ctx, inv)
}

func (r *txRepository) insertItems(ctx context.Context, inv Invoice) (Invoice, error) {
	for i := range inv.Items {
		it := &inv.Items[i]
		it.InvoiceID = inv.ID
		if err := r.tx.QueryRow(ctx, `INSERT INTO invoice_items (invoice_id, product_id, description, quantity, unit_price, line_total)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`, inv.ID, it.ProductID, it.Description, it.Quantity, it.UnitPrice, it.LineTotal).Scan(&it.ID); err != nil {
			return Invoice{}, err
		}
	}
	return inv, nil
}

func (r *txRepository) SetStatus(ctx context.Context, tenantID, id int64, status InvoiceStatus) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE invoices SET status=$3, updated_at=NOW() WHERE id=$1 AND tenant_id=$2`, id, tenantID, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrDocumentNotFound
	}
	return nil
}

func (r *txRepository) DeleteInvoice(ctx context.Context, tenantID, id int64) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM invoices WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrDocumentNotFound
	}
	return nil
}

func (r *txRepository) PaidTotal(ctx context.Context, tenantID, invoiceID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount_paid), 0) FROM payments WHERE tenant_id=$1 AND invoice_id=$2`, tenantID, invoiceID).Scan(&total)
	return total, err
}

func (r *txRepository) InsertPayment(ctx context.Context, p Payment) (Payment, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO payments (tenant_id, invoice_id, amount_paid, payment_date, deposit_account)
VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at`, p.TenantID, p.InvoiceID, p.Amount, p.PaymentDate, p.DepositAccount).Scan(&p.ID, &p.CreatedAt)
	return p, err
}

func (r *txRepository) PaymentIDs(ctx context.Context, tenantID, invoiceID int64) ([]int64, error) {
	rows, err := r.tx.Query(ctx, `SELECT id FROM payments WHERE tenant_id=$1 AND invoice_id=$2 ORDER BY id`, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (r *txRepository) DeletePayments(ctx context.Context, tenantID, invoiceID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM payments WHERE tenant_id=$1 AND invoice_id=$2`, tenantID, invoiceID)
	return err
}
