package ap

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillStatus enumerates bill statuses.
type BillStatus string

const (
	BillStatusDraft   BillStatus = "DRAFT"
	BillStatusOpen    BillStatus = "OPEN"
	BillStatusOverdue BillStatus = "OVERDUE"
	BillStatusPaid    BillStatus = "PAID"
	BillStatusVoid    BillStatus = "VOID"
)

// Bill is a vendor invoice owed by the tenant.
type Bill struct {
	ID        int64
	TenantID  int64
	VendorID  *int64
	Number    string
	IssueDate time.Time
	DueDate   time.Time
	// AccountID is the debit side of the bill; nil books it to default COGS.
	AccountID *int64
	Total     decimal.Decimal
	Status    BillStatus
	PaidDate  *time.Time
	Items     []BillItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BillItem is a priced line of a bill.
type BillItem struct {
	ID          int64
	BillID      int64
	ProductID   *int64
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

// BillInput for creating or updating bills. Total is used only when Items is empty.
type BillInput struct {
	VendorID  *int64
	Number    string    `validate:"required,max=64"`
	IssueDate time.Time `validate:"required"`
	DueDate   time.Time `validate:"required,gtefield=IssueDate"`
	AccountID *int64
	Total     decimal.Decimal
	Status    BillStatus `validate:"omitempty,oneof=DRAFT OPEN OVERDUE VOID"`
	Items     []ItemInput `validate:"dive"`
}

// ItemInput describes one bill line.
type ItemInput struct {
	ProductID   *int64
	Description string `validate:"max=255"`
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}
