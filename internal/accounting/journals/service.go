package journals

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	internalShared "github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// AuditPort records committed ledger mutations.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Notifier receives every committed change, e.g. to invalidate report caches.
type Notifier interface {
	Notify(ctx context.Context, change Change)
}

// Service is the journal engine. All writes validate first and commit header
// and lines as one unit.
type Service struct {
	repo     Repository
	audit    AuditPort
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires the engine. audit and notifier may be nil.
func NewService(repo Repository, audit AuditPort, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, notifier: notifier, logger: logger, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Get returns an entry with its lines.
func (s *Service) Get(ctx context.Context, tenantID, id int64) (JournalEntry, error) {
	if tenantID == 0 {
		return JournalEntry{}, shared.ErrUnauthorized
	}
	return s.repo.Get(ctx, tenantID, id)
}

// List returns entries newest first.
func (s *Service) List(ctx context.Context, tenantID int64, filter ListFilter) ([]JournalEntry, error) {
	if tenantID == 0 {
		return nil, shared.ErrUnauthorized
	}
	return s.repo.List(ctx, tenantID, filter)
}

// CheckIntegrity reports stored entries that no longer balance or have fewer
// than two lines. Writes through Post and Replace never produce them.
func (s *Service) CheckIntegrity(ctx context.Context, tenantID int64) ([]IntegrityIssue, error) {
	if tenantID == 0 {
		return nil, shared.ErrUnauthorized
	}
	return s.repo.Integrity(ctx, tenantID)
}

// Post validates and persists a new entry.
func (s *Service) Post(ctx context.Context, in PostingInput) (JournalEntry, error) {
	if err := in.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var (
		entry  JournalEntry
		change Change
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, change, err = s.PostTx(ctx, tx, in)
		return err
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.Committed(ctx, change)
	return entry, nil
}

// PostTx posts inside a caller-owned transaction. The caller must pass the
// returned Change to Committed once the transaction commits.
func (s *Service) PostTx(ctx context.Context, tx TxRepository, in PostingInput) (JournalEntry, Change, error) {
	if err := in.Validate(); err != nil {
		return JournalEntry{}, Change{}, err
	}
	in = in.rounded()
	if err := tx.EnsureAccounts(ctx, in.TenantID, in.accountIDs()); err != nil {
		return JournalEntry{}, Change{}, err
	}
	entry, err := tx.InsertEntry(ctx, in)
	if err != nil {
		return JournalEntry{}, Change{}, err
	}
	return entry, s.change(ChangePosted, entry.TenantID, entry.ID, 0, entry.Source), nil
}

// Replace supersedes the targeted entry with a freshly validated one. The old
// entry is removed and the new one inserted in the same transaction.
func (s *Service) Replace(ctx context.Context, target Target, in PostingInput) (JournalEntry, error) {
	if err := in.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var (
		entry  JournalEntry
		change Change
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, change, err = s.ReplaceTx(ctx, tx, target, in)
		return err
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.Committed(ctx, change)
	return entry, nil
}

// ReplaceTx is Replace on a caller-owned transaction.
func (s *Service) ReplaceTx(ctx context.Context, tx TxRepository, target Target, in PostingInput) (JournalEntry, Change, error) {
	if err := in.Validate(); err != nil {
		return JournalEntry{}, Change{}, err
	}
	in = in.rounded()

	var (
		previous JournalEntry
		found    bool
	)
	switch {
	case target.Source != nil:
		in.Source = target.Source
		var err error
		previous, found, err = tx.FindBySource(ctx, in.TenantID, *target.Source)
		if err != nil {
			return JournalEntry{}, Change{}, err
		}
	case target.EntryID != 0:
		var err error
		previous, err = tx.GetEntry(ctx, in.TenantID, target.EntryID)
		if err != nil {
			return JournalEntry{}, Change{}, err
		}
		found = true
		if in.Source == nil {
			in.Source = previous.Source
		}
	default:
		return JournalEntry{}, Change{}, shared.Invalid("journal: replace target required")
	}

	if err := tx.EnsureAccounts(ctx, in.TenantID, in.accountIDs()); err != nil {
		return JournalEntry{}, Change{}, err
	}
	if found {
		if _, err := tx.DeleteEntry(ctx, in.TenantID, previous.ID); err != nil {
			return JournalEntry{}, Change{}, err
		}
	}
	entry, err := tx.InsertEntry(ctx, in)
	if err != nil {
		return JournalEntry{}, Change{}, err
	}
	if !found {
		return entry, s.change(ChangePosted, entry.TenantID, entry.ID, 0, entry.Source), nil
	}
	return entry, s.change(ChangeReplaced, entry.TenantID, entry.ID, previous.ID, entry.Source), nil
}

// Delete removes an entry and its lines unconditionally.
func (s *Service) Delete(ctx context.Context, tenantID, entryID int64) error {
	if tenantID == 0 {
		return shared.ErrUnauthorized
	}
	var change Change
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		removed, err := tx.DeleteEntry(ctx, tenantID, entryID)
		if err != nil {
			return err
		}
		change = s.change(ChangeDeleted, tenantID, 0, removed.ID, removed.Source)
		return nil
	})
	if err != nil {
		return err
	}
	s.Committed(ctx, change)
	return nil
}

// DeleteBySource removes the entry owned by a document, if any.
func (s *Service) DeleteBySource(ctx context.Context, tenantID int64, ref SourceRef) error {
	var change Change
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		change, err = s.DeleteBySourceTx(ctx, tx, tenantID, ref)
		return err
	})
	if err != nil {
		return err
	}
	s.Committed(ctx, change)
	return nil
}

// DeleteBySourceTx returns an empty Change when the document never had an entry.
func (s *Service) DeleteBySourceTx(ctx context.Context, tx TxRepository, tenantID int64, ref SourceRef) (Change, error) {
	if tenantID == 0 {
		return Change{}, shared.ErrUnauthorized
	}
	existing, found, err := tx.FindBySource(ctx, tenantID, ref)
	if err != nil || !found {
		return Change{}, err
	}
	if _, err := tx.DeleteEntry(ctx, tenantID, existing.ID); err != nil {
		return Change{}, err
	}
	return s.change(ChangeDeleted, tenantID, 0, existing.ID, &ref), nil
}

// Committed audits and broadcasts changes after their transaction commits.
// Failures here are logged; the ledger write already stands.
func (s *Service) Committed(ctx context.Context, changes ...Change) {
	for _, c := range changes {
		if c.empty() {
			continue
		}
		if s.audit != nil {
			if err := s.audit.Record(ctx, auditLog(c)); err != nil {
				s.logger.Warn("journal audit failed", slog.Any("error", err), slog.Int64("tenant_id", c.TenantID), slog.String("kind", string(c.Kind)))
			}
		}
		if s.notifier != nil {
			s.notifier.Notify(ctx, c)
		}
	}
}

// DocumentChanged describes a committed document write that posted nothing,
// such as an invoice status change. Pass it to Committed so cached reports
// that read documents are invalidated.
func (s *Service) DocumentChanged(tenantID int64, ref SourceRef) Change {
	return s.change(ChangeDocument, tenantID, 0, 0, &ref)
}

func (s *Service) change(kind ChangeKind, tenantID, entryID, previousID int64, source *SourceRef) Change {
	return Change{Kind: kind, TenantID: tenantID, EntryID: entryID, PreviousEntryID: previousID, Source: source, At: s.now()}
}

func auditLog(c Change) internalShared.AuditLog {
	if c.Kind == ChangeDocument && c.Source != nil {
		return internalShared.AuditLog{
			TenantID: c.TenantID,
			Action:   "document.update",
			Entity:   string(c.Source.Kind),
			EntityID: fmt.Sprintf("%d", c.Source.ID),
			At:       c.At,
		}
	}
	action := map[ChangeKind]string{
		ChangePosted:   "journal.post",
		ChangeReplaced: "journal.replace",
		ChangeDeleted:  "journal.delete",
	}[c.Kind]
	id := c.EntryID
	if id == 0 {
		id = c.PreviousEntryID
	}
	meta := map[string]any{}
	if c.PreviousEntryID != 0 {
		meta["previous_entry_id"] = c.PreviousEntryID
	}
	if c.Source != nil {
		meta["source"] = c.Source.String()
	}
	return internalShared.AuditLog{
		TenantID: c.TenantID,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
		At:       c.At,
	}
}
