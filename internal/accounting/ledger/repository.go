package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

// Reader runs ledger queries against one consistent snapshot.
type Reader interface {
	Account(ctx context.Context, tenantID, id int64) (accounts.Account, error)
	// Activity sums lines per account for entries dated in [from, to]. A zero from is unbounded.
	Activity(ctx context.Context, tenantID int64, from, to time.Time) ([]AccountActivity, error)
	// AccountTotals sums an account's lines dated strictly before the given day.
	AccountTotals(ctx context.Context, tenantID, accountID int64, before time.Time) (debits, credits decimal.Decimal, err error)
	Postings(ctx context.Context, tenantID, accountID int64, from, to time.Time) ([]Posting, error)
}

// Repository opens read-only snapshots.
type Repository interface {
	Snapshot(ctx context.Context, fn func(context.Context, Reader) error) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Snapshot(ctx context.Context, fn func(context.Context, Reader) error) error {
	return db.WithSnapshot(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &reader{tx: tx})
	})
}

type reader struct {
	tx pgx.Tx
}

func (r *reader) Account(ctx context.Context, tenantID, id int64) (accounts.Account, error) {
	var a accounts.Account
	err := r.tx.QueryRow(ctx, `SELECT id, tenant_id, number, name, type, subtype, description, is_active, created_at, updated_at
FROM accounts WHERE id=$1 AND tenant_id=$2`, id, tenantID).
		Scan(&a.ID, &a.TenantID, &a.Number, &a.Name, &a.Type, &a.Subtype, &a.Description, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return accounts.Account{}, shared.ErrAccountNotFound
	}
	return a, err
}

func (r *reader) Activity(ctx context.Context, tenantID int64, from, to time.Time) ([]AccountActivity, error) {
	var lower any
	if !from.IsZero() {
		lower = from
	}
	rows, err := r.tx.Query(ctx, `SELECT a.id, a.tenant_id, a.number, a.name, a.type, a.subtype, a.description, a.is_active, a.created_at, a.updated_at,
       COALESCE(SUM(l.amount) FILTER (WHERE l.side = 'DEBIT'), 0),
       COALESCE(SUM(l.amount) FILTER (WHERE l.side = 'CREDIT'), 0)
FROM accounts a
JOIN journal_entry_lines l ON l.account_id = a.id
JOIN journal_entries e ON e.id = l.entry_id AND e.tenant_id = a.tenant_id
WHERE a.tenant_id = $1 AND e.entry_date <= $2 AND ($3::date IS NULL OR e.entry_date >= $3)
GROUP BY a.id
ORDER BY a.number`, tenantID, to, lower)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountActivity
	for rows.Next() {
		var act AccountActivity
		a := &act.Account
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Number, &a.Name, &a.Type, &a.Subtype, &a.Description, &a.IsActive, &a.CreatedAt, &a.UpdatedAt,
			&act.Debits, &act.Credits); err != nil {
			return nil, err
		}
		out = append(out, act)
	}
	return out, rows.Err()
}

func (r *reader) AccountTotals(ctx context.Context, tenantID, accountID int64, before time.Time) (decimal.Decimal, decimal.Decimal, error) {
	var debits, credits decimal.Decimal
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(SUM(l.amount) FILTER (WHERE l.side = 'DEBIT'), 0),
       COALESCE(SUM(l.amount) FILTER (WHERE l.side = 'CREDIT'), 0)
FROM journal_entry_lines l
JOIN journal_entries e ON e.id = l.entry_id
WHERE e.tenant_id = $1 AND l.account_id = $2 AND e.entry_date < $3`, tenantID, accountID, before).Scan(&debits, &credits)
	return debits, credits, err
}

func (r *reader) Postings(ctx context.Context, tenantID, accountID int64, from, to time.Time) ([]Posting, error) {
	rows, err := r.tx.Query(ctx, `SELECT e.id, l.id, e.entry_date, e.description, l.side, l.amount
FROM journal_entry_lines l
JOIN journal_entries e ON e.id = l.entry_id
WHERE e.tenant_id = $1 AND l.account_id = $2 AND e.entry_date BETWEEN $3 AND $4
ORDER BY e.entry_date, e.id, l.id`, tenantID, accountID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Posting
	for rows.Next() {
		var p Posting
		if err := rows.Scan(&p.EntryID, &p.LineID, &p.Date, &p.Description, &p.Side, &p.Amount); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
