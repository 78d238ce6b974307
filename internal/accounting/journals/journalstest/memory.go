// Package journalstest provides an in-memory journal repository for tests of
// the engine and of the document services that post through it.
package journalstest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// Memory keeps entries per tenant. WithTx works on a copy and swaps it in on
// success, so a failing callback leaves no trace.
type Memory struct {
	mu    sync.Mutex
	state state
	// FailInsert, when set, is returned by the next InsertEntry call.
	FailInsert error
}

type state struct {
	accounts   map[int64]int64 // account id -> tenant id
	entries    map[int64]journals.JournalEntry
	nextEntry  int64
	nextLineID int64
}

func (s state) clone() state {
	out := state{
		accounts:   make(map[int64]int64, len(s.accounts)),
		entries:    make(map[int64]journals.JournalEntry, len(s.entries)),
		nextEntry:  s.nextEntry,
		nextLineID: s.nextLineID,
	}
	for k, v := range s.accounts {
		out.accounts[k] = v
	}
	for k, v := range s.entries {
		v.Lines = append([]journals.JournalLine(nil), v.Lines...)
		out.entries[k] = v
	}
	return out
}

// New returns an empty ledger.
func New() *Memory {
	return &Memory{state: state{
		accounts: make(map[int64]int64),
		entries:  make(map[int64]journals.JournalEntry),
	}}
}

// AddAccounts registers account ids as owned by the tenant.
func (m *Memory) AddAccounts(tenantID int64, ids ...int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		m.state.accounts[id] = tenantID
	}
}

// Entries returns the tenant's entries ordered by id.
func (m *Memory) Entries(tenantID int64) []journals.JournalEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []journals.JournalEntry
	for _, e := range m.state.entries {
		if e.TenantID == tenantID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// BySource returns the entry owned by ref, if any.
func (m *Memory) BySource(tenantID int64, ref journals.SourceRef) (journals.JournalEntry, bool) {
	for _, e := range m.Entries(tenantID) {
		if e.Source != nil && *e.Source == ref {
			return e, true
		}
	}
	return journals.JournalEntry{}, false
}

func (m *Memory) Get(ctx context.Context, tenantID, id int64) (journals.JournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&tx{st: &m.state}).GetEntry(ctx, tenantID, id)
}

func (m *Memory) List(ctx context.Context, tenantID int64, filter journals.ListFilter) ([]journals.JournalEntry, error) {
	all := m.Entries(tenantID)
	var out []journals.JournalEntry
	for i := len(all) - 1; i >= 0; i-- {
		e := all[i]
		if !filter.From.IsZero() && e.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && e.Date.After(filter.To) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *Memory) Integrity(_ context.Context, tenantID int64) ([]journals.IntegrityIssue, error) {
	var out []journals.IntegrityIssue
	for _, e := range m.Entries(tenantID) {
		debit, credit := e.Totals()
		if len(e.Lines) < 2 || !debit.Equal(credit) {
			out = append(out, journals.IntegrityIssue{EntryID: e.ID, Date: e.Date, Lines: len(e.Lines), Debit: debit, Credit: credit})
		}
	}
	return out, nil
}

// WithTx runs fn against a private copy of the ledger.
func (m *Memory) WithTx(ctx context.Context, fn func(context.Context, journals.TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	work := m.state.clone()
	t := &tx{st: &work, mem: m}
	if err := fn(ctx, t); err != nil {
		return err
	}
	m.state = work
	return nil
}

type tx struct {
	st  *state
	mem *Memory
}

func (t *tx) EnsureAccounts(_ context.Context, tenantID int64, ids []int64) error {
	for _, id := range ids {
		owner, ok := t.st.accounts[id]
		if !ok || owner != tenantID {
			return shared.ErrAccountNotFound
		}
	}
	return nil
}

func (t *tx) InsertEntry(_ context.Context, in journals.PostingInput) (journals.JournalEntry, error) {
	if t.mem != nil && t.mem.FailInsert != nil {
		err := t.mem.FailInsert
		t.mem.FailInsert = nil
		return journals.JournalEntry{}, err
	}
	if in.Source != nil {
		for _, e := range t.st.entries {
			if e.TenantID == in.TenantID && e.Source != nil && *e.Source == *in.Source {
				return journals.JournalEntry{}, shared.Invalid("journal: %s already has an entry", in.Source)
			}
		}
	}
	t.st.nextEntry++
	entry := journals.JournalEntry{
		ID:          t.st.nextEntry,
		TenantID:    in.TenantID,
		Date:        in.Date,
		Description: in.Description,
		Source:      in.Source,
		CreatedAt:   time.Now(),
	}
	for _, l := range in.Lines {
		t.st.nextLineID++
		entry.Lines = append(entry.Lines, journals.JournalLine{
			ID:        t.st.nextLineID,
			EntryID:   entry.ID,
			AccountID: l.AccountID,
			Side:      l.Side,
			Amount:    l.Amount,
		})
	}
	t.st.entries[entry.ID] = entry
	return entry, nil
}

func (t *tx) GetEntry(_ context.Context, tenantID, id int64) (journals.JournalEntry, error) {
	e, ok := t.st.entries[id]
	if !ok || e.TenantID != tenantID {
		return journals.JournalEntry{}, shared.ErrDocumentNotFound
	}
	return e, nil
}

func (t *tx) FindBySource(_ context.Context, tenantID int64, ref journals.SourceRef) (journals.JournalEntry, bool, error) {
	for _, e := range t.st.entries {
		if e.TenantID == tenantID && e.Source != nil && *e.Source == ref {
			return e, true, nil
		}
	}
	return journals.JournalEntry{}, false, nil
}

func (t *tx) DeleteEntry(ctx context.Context, tenantID, id int64) (journals.JournalEntry, error) {
	e, err := t.GetEntry(ctx, tenantID, id)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	delete(t.st.entries, id)
	return e, nil
}

// Recorder collects notified changes.
type Recorder struct {
	mu      sync.Mutex
	Changes []journals.Change
}

func (r *Recorder) Notify(_ context.Context, c journals.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Changes = append(r.Changes, c)
}
