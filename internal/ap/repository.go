package ap

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

// Repository defines data access methods for bills.
type Repository interface {
	GetBill(ctx context.Context, tenantID, id int64) (Bill, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes bill writes that commit with their journal entries.
type TxRepository interface {
	Journal() journals.TxRepository
	LockBill(ctx context.Context, tenantID, id int64) (Bill, error)
	InsertBill(ctx context.Context, b Bill) (Bill, error)
	UpdateBill(ctx context.Context, b Bill) (Bill, error)
	MarkPaid(ctx context.Context, tenantID, id int64, paidAt time.Time) error
	DeleteBill(ctx context.Context, tenantID, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns the pgx backed AP repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadBill(ctx context.Context, q querier, tenantID, id int64, lock bool) (Bill, error) {
	query := `SELECT id, tenant_id, vendor_id, bill_number, issue_date, due_date, account_id, total_amount, status, paid_date, created_at, updated_at
FROM bills WHERE id=$1 AND tenant_id=$2`
	if lock {
		query += ` FOR UPDATE`
	}
	var b Bill
	err := q.QueryRow(ctx, query, id, tenantID).Scan(&b.ID, &b.TenantID, &b.VendorID, &b.Number, &b.IssueDate, &b.DueDate,
		&b.AccountID, &b.Total, &b.Status, &b.PaidDate, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Bill{}, shared.ErrDocumentNotFound
	}
	if err != nil {
		return Bill{}, err
	}
	rows, err := q.Query(ctx, `SELECT id, bill_id, product_id, description, quantity, unit_price, line_total
FROM bill_items WHERE bill_id=$1 ORDER BY id`, id)
	if err != nil {
		return Bill{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var it BillItem
		if err := rows.Scan(&it.ID, &it.BillID, &it.ProductID, &it.Description, &it.Quantity, &it.UnitPrice, &it.LineTotal); err != nil {
			return Bill{}, err
		}
		b.Items = append(b.Items, it)
	}
	return b, rows.Err()
}

func (r *repository) GetBill(ctx context.Context, tenantID, id int64) (Bill, error) {
	var b Bill
	err := db.WithSnapshot(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		b, err = loadBill(ctx, tx, tenantID, id, false)
		return err
	})
	return b, err
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

func (r *txRepository) LockBill(ctx context.Context, tenantID, id int64) (Bill, error) {
	return loadBill(ctx, r.tx, tenantID, id, true)
}

func (r *txRepository) InsertBill(ctx context.Context, b Bill) (Bill, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO bills (tenant_id, vendor_id, bill_number, issue_date, due_date, account_id, total_amount, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id, created_at, updated_at`,
		b.TenantID, b.VendorID, b.Number, b.IssueDate, b.DueDate, b.AccountID, b.Total, b.Status).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return Bill{}, err
	}
	return r.insertItems(ctx, b)
}

func (r *txRepository) UpdateBill(ctx context.Context, b Bill) (Bill, error) {
	err := r.tx.QueryRow(ctx, `UPDATE bills SET vendor_id=$3, bill_number=$4, issue_date=$5, due_date=$6, account_id=$7, total_amount=$8, status=$9, updated_at=NOW()
WHERE id=$1 AND tenant_id=$2 RETURNING paid_date, created_at, updated_at`,
		b.ID, b.TenantID, b.VendorID, b.Number, b.IssueDate, b.DueDate, b.AccountID, b.Total, b.Status).Scan(&b.PaidDate, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Bill{}, shared.ErrDocumentNotFound
	}
	if err != nil {
		return Bill{}, err
	}
	if _, err := r.tx.Exec(ctx, `DELETE FROM bill_items WHERE bill_id=$1`, b.ID); err != nil {
		return Bill{}, err
	}
	return r.insertItems(ctx, b)
}

func (r *txRepository) insertItems(ctx context.Context, b Bill) (Bill, error) {
	for i := range b.Items {
		it := &b.Items[i]
		it.BillID = b.ID
		if err := r.tx.QueryRow(ctx, `INSERT INTO bill_items (bill_id, product_id, description, quantity, unit_price, line_total)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`, b.ID, it.ProductID, it.Description, it.Quantity, it.UnitPrice, it.LineTotal).Scan(&it.ID); err != nil {
			return Bill{}, err
		}
	}
	return b, nil
}

func (r *txRepository) MarkPaid(ctx context.Context, tenantID, id int64, paidAt time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE bills SET status='PAID', paid_date=$3, updated_at=NOW() WHERE id=$1 AND tenant_id=$2`, id, tenantID, paidAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrDocumentNotFound
	}
	return nil
}

func (r *txRepository) DeleteBill(ctx context.Context, tenantID, id int64) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM bills WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrDocumentNotFound
	}
	return nil
}
