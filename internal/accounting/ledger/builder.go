package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
)

// BuildTrialBalance turns per-account activity into rows ordered by account number.
// A balance that is negative on the normal side is shown as zero on both sides,
// and rows that end up zero on both sides are dropped.
func BuildTrialBalance(activity []AccountActivity) []TrialBalanceRow {
	rows := make([]TrialBalanceRow, 0, len(activity))
	for _, a := range activity {
		balance := a.Balance()
		if !balance.IsPositive() {
			continue
		}
		row := TrialBalanceRow{Account: a.Account, DebitBalance: decimal.Zero, CreditBalance: decimal.Zero}
		if accounts.IsDebitNormal(a.Account.Type) {
			row.DebitBalance = balance
		} else {
			row.CreditBalance = balance
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Account.Number < rows[j].Account.Number })
	return rows
}

// Totals sums both columns of a trial balance.
func Totals(rows []TrialBalanceRow) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, r := range rows {
		debit = debit.Add(r.DebitBalance)
		credit = credit.Add(r.CreditBalance)
	}
	return debit, credit
}

// BuildGeneralLedger applies postings to the opening balance in (date, entry, line) order.
func BuildGeneralLedger(account accounts.Account, opening decimal.Decimal, postings []Posting) GeneralLedger {
	sorted := append([]Posting(nil), postings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.EntryID != b.EntryID {
			return a.EntryID < b.EntryID
		}
		return a.LineID < b.LineID
	})
	gl := GeneralLedger{Account: account, OpeningBalance: opening, Transactions: make([]Transaction, 0, len(sorted))}
	running := opening
	for _, p := range sorted {
		running = running.Add(accounts.SignedAmount(account.Type, p.Side, p.Amount))
		gl.Transactions = append(gl.Transactions, Transaction{
			EntryID:        p.EntryID,
			Date:           p.Date,
			Description:    p.Description,
			Side:           p.Side,
			Amount:         p.Amount,
			RunningBalance: running,
		})
	}
	gl.ClosingBalance = running
	return gl
}
