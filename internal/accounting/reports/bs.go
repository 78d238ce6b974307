package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/ledger"
)

// RetainedEarningsLabel names the synthetic equity line carrying net income.
const RetainedEarningsLabel = "Retained Earnings / Net Loss"

// BalanceSheetAccount summarises an account for assets, liabilities, or equity.
type BalanceSheetAccount struct {
	Number  string          `json:"number"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// BalanceSheetSection contains the accounts and totals for a classification.
type BalanceSheetSection struct {
	Label    string                `json:"label"`
	Accounts []BalanceSheetAccount `json:"accounts"`
	Total    decimal.Decimal       `json:"total"`
}

// BalanceSheet is the structured response for the balance sheet report.
// Balanced and Difference report the accounting equation; nothing enforces it.
type BalanceSheet struct {
	AsOf                      time.Time           `json:"as_of"`
	Assets                    BalanceSheetSection `json:"assets"`
	Liabilities               BalanceSheetSection `json:"liabilities"`
	Equity                    BalanceSheetSection `json:"equity"`
	NetIncome                 decimal.Decimal     `json:"net_income"`
	TotalAssets               decimal.Decimal     `json:"total_assets"`
	TotalLiabilitiesAndEquity decimal.Decimal     `json:"total_liabilities_and_equity"`
	Balanced                  bool                `json:"balanced"`
	Difference                decimal.Decimal     `json:"difference"`
}

// BuildBalanceSheet partitions trial balance rows by account type and appends
// income minus expenses to equity when it is non-zero.
func BuildBalanceSheet(asOf time.Time, rows []ledger.TrialBalanceRow) BalanceSheet {
	assets := BalanceSheetSection{Label: "Assets", Total: decimal.Zero}
	liabilities := BalanceSheetSection{Label: "Liabilities", Total: decimal.Zero}
	equity := BalanceSheetSection{Label: "Equity", Total: decimal.Zero}
	income, expense := decimal.Zero, decimal.Zero

	for _, row := range rows {
		line := BalanceSheetAccount{Number: row.Account.Number, Name: row.Account.Name, Balance: row.Balance()}
		switch row.Account.Type {
		case accounts.AccountTypeAsset:
			assets.Accounts = append(assets.Accounts, line)
			assets.Total = assets.Total.Add(line.Balance)
		case accounts.AccountTypeLiability:
			liabilities.Accounts = append(liabilities.Accounts, line)
			liabilities.Total = liabilities.Total.Add(line.Balance)
		case accounts.AccountTypeEquity:
			equity.Accounts = append(equity.Accounts, line)
			equity.Total = equity.Total.Add(line.Balance)
		case accounts.AccountTypeIncome:
			income = income.Add(line.Balance)
		case accounts.AccountTypeExpense:
			expense = expense.Add(line.Balance)
		}
	}

	sort.Slice(assets.Accounts, func(i, j int) bool { return assets.Accounts[i].Number < assets.Accounts[j].Number })
	sort.Slice(liabilities.Accounts, func(i, j int) bool { return liabilities.Accounts[i].Number < liabilities.Accounts[j].Number })
	sort.Slice(equity.Accounts, func(i, j int) bool { return equity.Accounts[i].Number < equity.Accounts[j].Number })

	netIncome := income.Sub(expense)
	if !netIncome.IsZero() {
		equity.Accounts = append(equity.Accounts, BalanceSheetAccount{Name: RetainedEarningsLabel, Balance: netIncome})
		equity.Total = equity.Total.Add(netIncome)
	}

	totalLE := liabilities.Total.Add(equity.Total)
	return BalanceSheet{
		AsOf:                      asOf,
		Assets:                    assets,
		Liabilities:               liabilities,
		Equity:                    equity,
		NetIncome:                 netIncome,
		TotalAssets:               assets.Total,
		TotalLiabilitiesAndEquity: totalLE,
		Balanced:                  assets.Total.Equal(totalLE),
		Difference:                assets.Total.Sub(totalLE),
	}
}
