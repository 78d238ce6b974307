package journals

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
)

// SourceKind names the document type an entry was derived from.
type SourceKind string

const (
	SourceInvoice     SourceKind = "invoice"
	SourcePayment     SourceKind = "payment"
	SourceExpense     SourceKind = "expense"
	SourceBill        SourceKind = "bill"
	SourceBillPayment SourceKind = "bill_payment"
	SourceDeposit     SourceKind = "deposit"
)

// SourceRef links an entry to the document that owns it.
type SourceRef struct {
	Kind SourceKind `json:"kind"`
	ID   int64      `json:"id"`
}

func (r SourceRef) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}

// Source is a convenience constructor.
func Source(kind SourceKind, id int64) *SourceRef {
	return &SourceRef{Kind: kind, ID: id}
}

// JournalEntry is a dated, balanced set of lines. Source is nil for manual entries.
type JournalEntry struct {
	ID          int64
	TenantID    int64
	Date        time.Time
	Description string
	Source      *SourceRef
	CreatedAt   time.Time
	Lines       []JournalLine
}

// JournalLine stores one side of an entry.
type JournalLine struct {
	ID        int64
	EntryID   int64
	AccountID int64
	Side      accounts.Side
	Amount    decimal.Decimal
}

// Totals sums both columns of the entry.
func (e JournalEntry) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range e.Lines {
		if l.Side == accounts.SideDebit {
			debit = debit.Add(l.Amount)
		} else {
			credit = credit.Add(l.Amount)
		}
	}
	return debit, credit
}

// IntegrityIssue is a stored entry that breaks double entry.
type IntegrityIssue struct {
	EntryID int64           `json:"entry_id"`
	Date    time.Time       `json:"date"`
	Lines   int             `json:"lines"`
	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
}

// ListFilter narrows List. Zero dates are unbounded, zero Limit returns everything.
type ListFilter struct {
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

// ChangeKind classifies ledger mutations.
type ChangeKind string

const (
	ChangePosted   ChangeKind = "posted"
	ChangeReplaced ChangeKind = "replaced"
	ChangeDeleted  ChangeKind = "deleted"
	// ChangeDocument marks a source document write that left the ledger untouched.
	ChangeDocument ChangeKind = "document"
)

// Change describes a committed ledger mutation.
type Change struct {
	Kind            ChangeKind `json:"kind"`
	TenantID        int64      `json:"tenant_id"`
	EntryID         int64      `json:"entry_id,omitempty"`
	PreviousEntryID int64      `json:"previous_entry_id,omitempty"`
	Source          *SourceRef `json:"source,omitempty"`
	At              time.Time  `json:"at"`
}

func (c Change) empty() bool {
	return c.Kind == ""
}
