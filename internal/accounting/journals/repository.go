package journals

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

// Repository encapsulates DB operations for journals.
type Repository interface {
	Get(ctx context.Context, tenantID, id int64) (JournalEntry, error)
	List(ctx context.Context, tenantID int64, filter ListFilter) ([]JournalEntry, error)
	// Integrity lists entries with unequal sides or fewer than two lines.
	Integrity(ctx context.Context, tenantID int64) ([]IntegrityIssue, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a transaction. Document
// repositories hand one out so their writes and the entry commit together.
type TxRepository interface {
	// EnsureAccounts fails with ErrAccountNotFound unless every id belongs to the tenant.
	EnsureAccounts(ctx context.Context, tenantID int64, ids []int64) error
	InsertEntry(ctx context.Context, in PostingInput) (JournalEntry, error)
	GetEntry(ctx context.Context, tenantID, id int64) (JournalEntry, error)
	FindBySource(ctx context.Context, tenantID int64, ref SourceRef) (JournalEntry, bool, error)
	DeleteEntry(ctx context.Context, tenantID, id int64) (JournalEntry, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the pgx implementation.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context, tenantID, id int64) (JournalEntry, error) {
	var entry JournalEntry
	err := db.WithSnapshot(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		entry, err = NewTxRepository(tx).GetEntry(ctx, tenantID, id)
		return err
	})
	return entry, err
}

func (r *repository) List(ctx context.Context, tenantID int64, filter ListFilter) ([]JournalEntry, error) {
	var entries []JournalEntry
	err := db.WithSnapshot(ctx, r.db, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT id, tenant_id, entry_date, description, source_type, source_id, created_at
FROM journal_entries
WHERE tenant_id=$1 AND ($2::date IS NULL OR entry_date >= $2) AND ($3::date IS NULL OR entry_date <= $3)
ORDER BY entry_date DESC, id DESC
LIMIT $4 OFFSET $5`, tenantID, nullDate(filter.From), nullDate(filter.To), nullLimit(filter.Limit), filter.Offset)
		if err != nil {
			return err
		}
		entries, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (JournalEntry, error) {
			return scanEntry(row)
		})
		if err != nil {
			return err
		}
		byID := make(map[int64]int, len(entries))
		ids := make([]int64, len(entries))
		for i, e := range entries {
			byID[e.ID] = i
			ids[i] = e.ID
		}
		lines, err := queryLines(ctx, tx, ids)
		if err != nil {
			return err
		}
		for _, l := range lines {
			i := byID[l.EntryID]
			entries[i].Lines = append(entries[i].Lines, l)
		}
		return nil
	})
	return entries, err
}

func (r *repository) Integrity(ctx context.Context, tenantID int64) ([]IntegrityIssue, error) {
	rows, err := r.db.Query(ctx, `SELECT e.id, e.entry_date, COUNT(l.id),
       COALESCE(SUM(l.amount) FILTER (WHERE l.side = 'DEBIT'), 0),
       COALESCE(SUM(l.amount) FILTER (WHERE l.side = 'CREDIT'), 0)
FROM journal_entries e
LEFT JOIN journal_entry_lines l ON l.entry_id = e.id
WHERE e.tenant_id=$1
GROUP BY e.id, e.entry_date
HAVING COUNT(l.id) < 2
    OR COALESCE(SUM(l.amount) FILTER (WHERE l.side = 'DEBIT'), 0) <> COALESCE(SUM(l.amount) FILTER (WHERE l.side = 'CREDIT'), 0)
ORDER BY e.entry_date, e.id`, tenantID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (IntegrityIssue, error) {
		var i IntegrityIssue
		err := row.Scan(&i.EntryID, &i.Date, &i.Lines, &i.Debit, &i.Credit)
		return i, err
	})
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository binds the journal statements to an open transaction.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

func (r *txRepository) EnsureAccounts(ctx context.Context, tenantID int64, ids []int64) error {
	var found int
	err := r.tx.QueryRow(ctx, `SELECT COUNT(DISTINCT id) FROM accounts WHERE tenant_id=$1 AND id = ANY($2)`, tenantID, ids).Scan(&found)
	if err != nil {
		return err
	}
	if found != len(ids) {
		return shared.ErrAccountNotFound
	}
	return nil
}

func (r *txRepository) InsertEntry(ctx context.Context, in PostingInput) (JournalEntry, error) {
	var sourceType any
	var sourceID any
	if in.Source != nil {
		sourceType, sourceID = string(in.Source.Kind), in.Source.ID
	}
	entry := JournalEntry{
		TenantID:    in.TenantID,
		Date:        in.Date,
		Description: in.Description,
		Source:      in.Source,
	}
	err := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (tenant_id, entry_date, description, source_type, source_id)
VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at`, in.TenantID, in.Date, in.Description, sourceType, sourceID).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "uq_journal_entries_source") {
			return JournalEntry{}, shared.Invalid("journal: %s already has an entry", in.Source)
		}
		return JournalEntry{}, err
	}
	for _, line := range in.Lines {
		l := JournalLine{EntryID: entry.ID, AccountID: line.AccountID, Side: line.Side, Amount: line.Amount}
		if err := r.tx.QueryRow(ctx, `INSERT INTO journal_entry_lines (entry_id, account_id, side, amount)
VALUES ($1,$2,$3,$4) RETURNING id`, entry.ID, line.AccountID, line.Side, line.Amount).Scan(&l.ID); err != nil {
			return JournalEntry{}, err
		}
		entry.Lines = append(entry.Lines, l)
	}
	return entry, nil
}

func (r *txRepository) GetEntry(ctx context.Context, tenantID, id int64) (JournalEntry, error) {
	entry, err := scanEntry(r.tx.QueryRow(ctx, `SELECT id, tenant_id, entry_date, description, source_type, source_id, created_at
FROM journal_entries WHERE id=$1 AND tenant_id=$2`, id, tenantID))
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines, err = queryLines(ctx, r.tx, []int64{entry.ID})
	return entry, err
}

func (r *txRepository) FindBySource(ctx context.Context, tenantID int64, ref SourceRef) (JournalEntry, bool, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `SELECT id FROM journal_entries WHERE tenant_id=$1 AND source_type=$2 AND source_id=$3`,
		tenantID, string(ref.Kind), ref.ID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return JournalEntry{}, false, nil
	}
	if err != nil {
		return JournalEntry{}, false, err
	}
	entry, err := r.GetEntry(ctx, tenantID, id)
	if err != nil {
		return JournalEntry{}, false, err
	}
	return entry, true, nil
}

// DeleteEntry removes the header; lines go with it through ON DELETE CASCADE.
func (r *txRepository) DeleteEntry(ctx context.Context, tenantID, id int64) (JournalEntry, error) {
	return scanEntry(r.tx.QueryRow(ctx, `DELETE FROM journal_entries WHERE id=$1 AND tenant_id=$2
RETURNING id, tenant_id, entry_date, description, source_type, source_id, created_at`, id, tenantID))
}

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var (
		e          JournalEntry
		sourceType *string
		sourceID   *int64
	)
	if err := row.Scan(&e.ID, &e.TenantID, &e.Date, &e.Description, &sourceType, &sourceID, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrDocumentNotFound
		}
		return JournalEntry{}, err
	}
	if sourceType != nil && sourceID != nil {
		e.Source = Source(SourceKind(*sourceType), *sourceID)
	}
	return e, nil
}

func queryLines(ctx context.Context, tx pgx.Tx, entryIDs []int64) ([]JournalLine, error) {
	if len(entryIDs) == 0 {
		return nil, nil
	}
	rows, err := tx.Query(ctx, `SELECT id, entry_id, account_id, side, amount
FROM journal_entry_lines WHERE entry_id = ANY($1) ORDER BY entry_id, id`, entryIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []JournalLine
	for rows.Next() {
		var l JournalLine
		if err := rows.Scan(&l.ID, &l.EntryID, &l.AccountID, &l.Side, &l.Amount); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func nullDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func nullLimit(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}
