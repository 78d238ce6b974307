package expenses

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a cash-paid cost booked straight to an expense account.
type Expense struct {
	ID               int64
	TenantID         int64
	Description      string
	Amount           decimal.Decimal
	ExpenseAccountID int64
	ExpenseDate      time.Time
	VendorID         *int64
	Category         string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Input carries the editable fields of an expense.
type Input struct {
	Description      string    `validate:"required,max=255"`
	Amount           decimal.Decimal
	ExpenseAccountID int64     `validate:"required"`
	ExpenseDate      time.Time `validate:"required"`
	VendorID         *int64
	Category         string `validate:"max=64"`
}
