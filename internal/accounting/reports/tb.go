package reports

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/ledger"
)

// GroupKey returns the account number prefix used to group trial balance rows.
func GroupKey(number string) string {
	if idx := strings.Index(number, "."); idx > 0 {
		return number[:idx]
	}
	if len(number) >= 2 {
		return number[:2]
	}
	return number
}

// TrialBalanceGroup aggregates rows sharing a number prefix for presentation.
type TrialBalanceGroup struct {
	Key    string                   `json:"key"`
	Rows   []ledger.TrialBalanceRow `json:"rows"`
	Debit  decimal.Decimal          `json:"debit"`
	Credit decimal.Decimal          `json:"credit"`
}

// TrialBalance is the structure rendered by the CLI and consumed by PDF layers.
type TrialBalance struct {
	AsOf        time.Time           `json:"as_of"`
	Groups      []TrialBalanceGroup `json:"groups"`
	TotalDebit  decimal.Decimal     `json:"total_debit"`
	TotalCredit decimal.Decimal     `json:"total_credit"`
	Balanced    bool                `json:"balanced"`
}

// BuildTrialBalance groups ledger rows by account number prefix.
func BuildTrialBalance(asOf time.Time, rows []ledger.TrialBalanceRow) TrialBalance {
	groups := make(map[string]*TrialBalanceGroup)
	keys := make([]string, 0)
	for _, row := range rows {
		key := GroupKey(row.Account.Number)
		grp, ok := groups[key]
		if !ok {
			grp = &TrialBalanceGroup{Key: key, Debit: decimal.Zero, Credit: decimal.Zero}
			groups[key] = grp
			keys = append(keys, key)
		}
		grp.Rows = append(grp.Rows, row)
		grp.Debit = grp.Debit.Add(row.DebitBalance)
		grp.Credit = grp.Credit.Add(row.CreditBalance)
	}

	sort.Strings(keys)
	result := TrialBalance{AsOf: asOf, TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, key := range keys {
		grp := groups[key]
		sort.Slice(grp.Rows, func(i, j int) bool {
			return grp.Rows[i].Account.Number < grp.Rows[j].Account.Number
		})
		result.Groups = append(result.Groups, *grp)
		result.TotalDebit = result.TotalDebit.Add(grp.Debit)
		result.TotalCredit = result.TotalCredit.Add(grp.Credit)
	}
	result.Balanced = result.TotalDebit.Equal(result.TotalCredit)
	return result
}
