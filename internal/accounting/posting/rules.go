// Package posting turns business events into balanced journal lines. The rules
// are pure: they read tenant settings and never touch storage.
package posting

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/settings"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

func configured(id *int64, setting string) (int64, error) {
	if id == nil || *id == 0 {
		return 0, shared.MissingDefaultAccount(setting)
	}
	return *id, nil
}

// Sale debits receivable for the grand total and credits sales income for the
// subtotal. Each slot's tax goes to that slot's tax-payable account; a slot
// without one is credited to sales income. A zero invoice yields no lines.
func Sale(cfg settings.Settings, totals Totals) ([]journals.PostingLineInput, error) {
	receivable, err := configured(cfg.DefaultReceivable, "accounts receivable")
	if err != nil {
		return nil, err
	}
	income, err := configured(cfg.DefaultSalesIncome, "sales income")
	if err != nil {
		return nil, err
	}
	if !totals.GrandTotal.IsPositive() {
		return nil, nil
	}
	credits := newCreditSet()
	incomeCredit := totals.Subtotal
	for slot, tax := range totals.Taxes {
		if !tax.IsPositive() {
			continue
		}
		if payable := cfg.TaxPayable[slot]; payable != nil && *payable != 0 {
			credits.add(*payable, tax)
			continue
		}
		incomeCredit = incomeCredit.Add(tax)
	}
	lines := []journals.PostingLineInput{journals.Debit(receivable, totals.GrandTotal)}
	if incomeCredit.IsPositive() {
		lines = append(lines, journals.Credit(income, incomeCredit))
	}
	return append(lines, credits.lines()...), nil
}

// ExpenseRecorded debits the chosen expense account and credits default cash.
func ExpenseRecorded(cfg settings.Settings, expenseAccount int64, amount decimal.Decimal) ([]journals.PostingLineInput, error) {
	cash, err := configured(cfg.DefaultCash, "cash")
	if err != nil {
		return nil, err
	}
	return []journals.PostingLineInput{
		journals.Debit(expenseAccount, amount),
		journals.Credit(cash, amount),
	}, nil
}

// PaymentReceived debits the deposit account, default cash when none is chosen,
// and credits receivable.
func PaymentReceived(cfg settings.Settings, depositAccount *int64, amount decimal.Decimal) ([]journals.PostingLineInput, error) {
	receivable, err := configured(cfg.DefaultReceivable, "accounts receivable")
	if err != nil {
		return nil, err
	}
	deposit := depositAccount
	if deposit == nil || *deposit == 0 {
		deposit = cfg.DefaultCash
	}
	debit, err := configured(deposit, "cash")
	if err != nil {
		return nil, err
	}
	return []journals.PostingLineInput{
		journals.Debit(debit, amount),
		journals.Credit(receivable, amount),
	}, nil
}

// BillRecorded debits the bill's account, default COGS when none is chosen,
// and credits payable.
func BillRecorded(cfg settings.Settings, account *int64, amount decimal.Decimal) ([]journals.PostingLineInput, error) {
	payable, err := configured(cfg.DefaultPayable, "accounts payable")
	if err != nil {
		return nil, err
	}
	target := account
	if target == nil || *target == 0 {
		target = cfg.DefaultCOGS
	}
	debit, err := configured(target, "COGS")
	if err != nil {
		return nil, err
	}
	return []journals.PostingLineInput{
		journals.Debit(debit, amount),
		journals.Credit(payable, amount),
	}, nil
}

// BillPaid settles payable from default cash.
func BillPaid(cfg settings.Settings, amount decimal.Decimal) ([]journals.PostingLineInput, error) {
	payable, err := configured(cfg.DefaultPayable, "accounts payable")
	if err != nil {
		return nil, err
	}
	cash, err := configured(cfg.DefaultCash, "cash")
	if err != nil {
		return nil, err
	}
	return []journals.PostingLineInput{
		journals.Debit(payable, amount),
		journals.Credit(cash, amount),
	}, nil
}

// BankDeposit debits the bank's ledger account, default cash when the bank has
// none, and credits the account the deposit is classified under.
func BankDeposit(cfg settings.Settings, bankAccount *int64, creditAccount int64, amount decimal.Decimal) ([]journals.PostingLineInput, error) {
	target := bankAccount
	if target == nil || *target == 0 {
		target = cfg.DefaultCash
	}
	debit, err := configured(target, "cash")
	if err != nil {
		return nil, err
	}
	return []journals.PostingLineInput{
		journals.Debit(debit, amount),
		journals.Credit(creditAccount, amount),
	}, nil
}

// creditSet merges credits per account, keeping first-seen order.
type creditSet struct {
	order  []int64
	amount map[int64]decimal.Decimal
}

func newCreditSet() *creditSet {
	return &creditSet{amount: map[int64]decimal.Decimal{}}
}

func (c *creditSet) add(account int64, v decimal.Decimal) {
	if _, ok := c.amount[account]; !ok {
		c.order = append(c.order, account)
		c.amount[account] = decimal.Zero
	}
	c.amount[account] = c.amount[account].Add(v)
}

func (c *creditSet) lines() []journals.PostingLineInput {
	out := make([]journals.PostingLineInput, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, journals.Credit(id, c.amount[id]))
	}
	return out
}
