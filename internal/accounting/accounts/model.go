package accounts

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeIncome    AccountType = "INCOME"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Side is the column a journal line is recorded in.
type Side string

const (
	SideDebit  Side = "DEBIT"
	SideCredit Side = "CREDIT"
)

// Valid reports whether the side is known.
func (s Side) Valid() bool {
	return s == SideDebit || s == SideCredit
}

// ParseAccountType accepts any casing and the REVENUE alias.
func ParseAccountType(raw string) (AccountType, bool) {
	switch AccountType(strings.ToUpper(strings.TrimSpace(raw))) {
	case AccountTypeAsset:
		return AccountTypeAsset, true
	case AccountTypeLiability:
		return AccountTypeLiability, true
	case AccountTypeEquity:
		return AccountTypeEquity, true
	case AccountTypeIncome, "REVENUE":
		return AccountTypeIncome, true
	case AccountTypeExpense:
		return AccountTypeExpense, true
	}
	return "", false
}

// Valid reports whether the type is one of the five CoA categories.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// NormalSide returns the side on which balances of the type are positive.
// Every balance computation in the ledger derives its sign from here.
func NormalSide(t AccountType) Side {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return SideDebit
	default:
		return SideCredit
	}
}

// IsDebitNormal reports whether the type carries a debit balance.
func IsDebitNormal(t AccountType) bool {
	return NormalSide(t) == SideDebit
}

// Normalize converts raw debit/credit totals into a balance on the normal side.
func Normalize(t AccountType, debits, credits decimal.Decimal) decimal.Decimal {
	if IsDebitNormal(t) {
		return debits.Sub(credits)
	}
	return credits.Sub(debits)
}

// SignedAmount is +amount when side matches the normal side of t, -amount otherwise.
func SignedAmount(t AccountType, side Side, amount decimal.Decimal) decimal.Decimal {
	if side == NormalSide(t) {
		return amount
	}
	return amount.Neg()
}

// Account models a chart of accounts node.
type Account struct {
	ID          int64
	TenantID    int64
	Number      string
	Name        string
	Type        AccountType
	Subtype     string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Label renders "number - name" the way ledger headers show it.
func (a Account) Label() string {
	return a.Number + " - " + a.Name
}

// AccountInput carries fields for a new account.
type AccountInput struct {
	Number      string `validate:"required,max=32"`
	Name        string `validate:"required,max=255"`
	Type        AccountType
	Subtype     string `validate:"max=64"`
	Description string
	IsActive    bool
}

// AccountUpdate carries mutable fields. The type is fixed at creation.
type AccountUpdate struct {
	Number      string `validate:"required,max=32"`
	Name        string `validate:"required,max=255"`
	Subtype     string `validate:"max=64"`
	Description string
	IsActive    bool
}
