package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// DocumentRepository sums source documents for the document-based reports.
type DocumentRepository interface {
	PaidInvoiceTotal(ctx context.Context, tenantID int64, start, end time.Time) (decimal.Decimal, error)
	ExpenseTotal(ctx context.Context, tenantID int64, start, end time.Time) (decimal.Decimal, error)
	PaymentsReceived(ctx context.Context, tenantID int64, start, end time.Time) (decimal.Decimal, error)
	PaidBillTotal(ctx context.Context, tenantID int64, start, end time.Time) (decimal.Decimal, error)
	Dashboard(ctx context.Context, tenantID int64) (Dashboard, error)
	PaymentsByMonth(ctx context.Context, tenantID int64, start, end time.Time) ([]MonthTotal, error)
	ExpensesByMonth(ctx context.Context, tenantID int64, start, end time.Time) ([]MonthTotal, error)
	ExpensesByCategory(ctx context.Context, tenantID int64, start, end time.Time) ([]CategoryTotal, error)
}

type documentRepository struct {
	db *pgxpool.Pool
}

func NewDocumentRepository(db *pgxpool.Pool) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) sum(ctx context.Context, query string, args ...any) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, query, args...).Scan(&total)
	return total, err
}

func (r *documentRepository) PaidInvoiceTotal(ctx context.Context, tenantID int64, start, end time.Time) (decimal.Decimal, error) {
	return r.sum(ctx, `SELECT COALESCE(SUM(total_amount), 0) FROM invoices
WHERE tenant_id=$1 AND status='PAID' AND issue_date BETWEEN $2 AND $3`, tenantID, start, end)
}

func (r *documentRepository) ExpenseTotal(ctx context.Context, tenantID int64, start, end time.Time) (decimal.Decimal, error) {
	return r.sum(ctx, `SELECT COALESCE(SUM(amount), 0) FROM expenses
WHERE tenant_id=$1 AND expense_date BETWEEN $2 AND $3`, tenantID, start, end)
}

func (r *documentRepository) PaymentsReceived(ctx context.Context, tenantID int64, start, end time.Time) (decimal.Decimal, error) {
	return r.sum(ctx, `SELECT COALESCE(SUM(amount_paid), 0) FROM payments
WHERE tenant_id=$1 AND payment_date BETWEEN $2 AND $3`, tenantID, start, end)
}

func (r *documentRepository) PaidBillTotal(ctx context.Context, tenantID int64, start, end time.Time) (decimal.Decimal, error) {
	return r.sum(ctx, `SELECT COALESCE(SUM(total_amount), 0) FROM bills
WHERE tenant_id=$1 AND status='PAID' AND COALESCE(paid_date, due_date) BETWEEN $2 AND $3`, tenantID, start, end)
}

func (r *documentRepository) Dashboard(ctx context.Context, tenantID int64) (Dashboard, error) {
	var d Dashboard
	err := r.db.QueryRow(ctx, `SELECT
  COALESCE(SUM(total_amount) FILTER (WHERE status = 'PAID'), 0),
  COALESCE(SUM(total_amount) FILTER (WHERE status IN ('SENT', 'OVERDUE')), 0),
  COUNT(DISTINCT client_id),
  COUNT(*) FILTER (WHERE status = 'OVERDUE')
FROM invoices WHERE tenant_id=$1`, tenantID).Scan(&d.TotalRevenue, &d.TotalReceivable, &d.ClientCount, &d.OverdueCount)
	return d, err
}

func (r *documentRepository) monthly(ctx context.Context, query string, args ...any) ([]MonthTotal, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (MonthTotal, error) {
		var t MonthTotal
		err := row.Scan(&t.Month, &t.Total)
		return t, err
	})
}

func (r *documentRepository) PaymentsByMonth(ctx context.Context, tenantID int64, start, end time.Time) ([]MonthTotal, error) {
	return r.monthly(ctx, `SELECT DATE_TRUNC('month', payment_date)::date, SUM(amount_paid) FROM payments
WHERE tenant_id=$1 AND payment_date BETWEEN $2 AND $3 GROUP BY 1 ORDER BY 1`, tenantID, start, end)
}

func (r *documentRepository) ExpensesByMonth(ctx context.Context, tenantID int64, start, end time.Time) ([]MonthTotal, error) {
	return r.monthly(ctx, `SELECT DATE_TRUNC('month', expense_date)::date, SUM(amount) FROM expenses
WHERE tenant_id=$1 AND expense_date BETWEEN $2 AND $3 GROUP BY 1 ORDER BY 1`, tenantID, start, end)
}

func (r *documentRepository) ExpensesByCategory(ctx context.Context, tenantID int64, start, end time.Time) ([]CategoryTotal, error) {
	rows, err := r.db.Query(ctx, `SELECT category, SUM(amount) FROM expenses
WHERE tenant_id=$1 AND expense_date BETWEEN $2 AND $3 GROUP BY category`, tenantID, start, end)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (CategoryTotal, error) {
		var c CategoryTotal
		err := row.Scan(&c.Category, &c.Total)
		return c, err
	})
}
