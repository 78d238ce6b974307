package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
)

// AccountActivity is the raw debit and credit total of one account.
type AccountActivity struct {
	Account accounts.Account
	Debits  decimal.Decimal
	Credits decimal.Decimal
}

// Balance is the activity normalized to the account's normal side.
func (a AccountActivity) Balance() decimal.Decimal {
	return accounts.Normalize(a.Account.Type, a.Debits, a.Credits)
}

// TrialBalanceRow shows a positive balance on the account's normal side.
type TrialBalanceRow struct {
	Account       accounts.Account `json:"account"`
	DebitBalance  decimal.Decimal  `json:"debit_balance"`
	CreditBalance decimal.Decimal  `json:"credit_balance"`
}

// Balance returns the normalized balance the row was built from.
func (r TrialBalanceRow) Balance() decimal.Decimal {
	if accounts.IsDebitNormal(r.Account.Type) {
		return r.DebitBalance
	}
	return r.CreditBalance
}

// Posting is one journal line as it appears on an account.
type Posting struct {
	EntryID     int64
	LineID      int64
	Date        time.Time
	Description string
	Side        accounts.Side
	Amount      decimal.Decimal
}

// Transaction is a general ledger row with the balance after it.
type Transaction struct {
	EntryID        int64           `json:"entry_id"`
	Date           time.Time       `json:"date"`
	Description    string          `json:"description"`
	Side           accounts.Side   `json:"side"`
	Amount         decimal.Decimal `json:"amount"`
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// GeneralLedger is the activity of one account over a date range.
type GeneralLedger struct {
	Account        accounts.Account `json:"account"`
	Start          time.Time        `json:"start"`
	End            time.Time        `json:"end"`
	OpeningBalance decimal.Decimal  `json:"opening_balance"`
	Transactions   []Transaction    `json:"transactions"`
	ClosingBalance decimal.Decimal  `json:"closing_balance"`
}
