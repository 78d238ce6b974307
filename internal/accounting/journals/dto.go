package journals

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// PostingLineInput describes a journal line for a posting request.
type PostingLineInput struct {
	AccountID int64
	Side      accounts.Side
	Amount    decimal.Decimal
}

// Debit builds a debit line.
func Debit(accountID int64, amount decimal.Decimal) PostingLineInput {
	return PostingLineInput{AccountID: accountID, Side: accounts.SideDebit, Amount: amount}
}

// Credit builds a credit line.
func Credit(accountID int64, amount decimal.Decimal) PostingLineInput {
	return PostingLineInput{AccountID: accountID, Side: accounts.SideCredit, Amount: amount}
}

// PostingInput groups fields required to create a journal entry.
type PostingInput struct {
	TenantID    int64
	Date        time.Time
	Description string
	Source      *SourceRef
	Lines       []PostingLineInput
}

// Validate checks the input in a fixed order: tenant, line count, line amounts, balance.
// Amounts are compared after rounding to cents, with no tolerance.
func (in PostingInput) Validate() error {
	if in.TenantID == 0 {
		return shared.ErrUnauthorized
	}
	if len(in.Lines) < 2 {
		return shared.ErrInsufficientLines
	}
	debit, credit := decimal.Zero, decimal.Zero
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return shared.InvalidAmount(idx, "missing account")
		}
		if !line.Side.Valid() {
			return shared.InvalidAmount(idx, "side must be DEBIT or CREDIT")
		}
		amount := shared.Cents(line.Amount)
		if !amount.IsPositive() {
			return shared.InvalidAmount(idx, "amount must be greater than zero")
		}
		if line.Side == accounts.SideDebit {
			debit = debit.Add(amount)
		} else {
			credit = credit.Add(amount)
		}
	}
	if !debit.Equal(credit) {
		return shared.Unbalanced(debit, credit)
	}
	if in.Date.IsZero() {
		return shared.Invalid("journal: date required")
	}
	if in.Source != nil && (in.Source.Kind == "" || in.Source.ID == 0) {
		return shared.Invalid("journal: incomplete source reference %s", in.Source)
	}
	return nil
}

// rounded returns a copy with every amount rounded to cents.
func (in PostingInput) rounded() PostingInput {
	lines := make([]PostingLineInput, len(in.Lines))
	for i, l := range in.Lines {
		l.Amount = shared.Cents(l.Amount)
		lines[i] = l
	}
	in.Lines = lines
	return in
}

func (in PostingInput) accountIDs() []int64 {
	seen := make(map[int64]struct{}, len(in.Lines))
	ids := make([]int64, 0, len(in.Lines))
	for _, l := range in.Lines {
		if _, ok := seen[l.AccountID]; ok {
			continue
		}
		seen[l.AccountID] = struct{}{}
		ids = append(ids, l.AccountID)
	}
	return ids
}

// Target selects the entry superseded by Replace.
type Target struct {
	EntryID int64
	Source  *SourceRef
}

// ByEntry targets an entry by id; the entry must exist.
func ByEntry(id int64) Target {
	return Target{EntryID: id}
}

// BySource targets the entry owned by a document. A missing entry is not an error.
func BySource(ref SourceRef) Target {
	return Target{Source: &ref}
}
