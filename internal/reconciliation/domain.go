package reconciliation

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankAccount links a bank feed to its ledger account.
type BankAccount struct {
	ID          int64
	TenantID    int64
	Name        string
	GLAccountID *int64
}

// BankTransaction is one line of a bank statement.
type BankTransaction struct {
	ID              int64
	TenantID        int64
	BankAccountID   int64
	Date            time.Time
	Description     string
	Amount          decimal.Decimal
	IsReconciled    bool
	LinkedPaymentID *int64
}

// UnmatchedPayment is a customer payment not yet tied to a bank line.
type UnmatchedPayment struct {
	ID            int64
	InvoiceNumber string
	Amount        decimal.Decimal
	PaymentDate   time.Time
}

// DepositInput classifies a bank receipt that has no source document.
type DepositInput struct {
	BankTransactionID int64  `validate:"required"`
	CreditAccountID   int64  `validate:"required"`
	Description       string `validate:"max=255"`
}
