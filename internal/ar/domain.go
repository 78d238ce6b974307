package ar

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/settings"
)

// InvoiceStatus enumerates invoice statuses.
type InvoiceStatus string

const (
	StatusDraft         InvoiceStatus = "DRAFT"
	StatusSent          InvoiceStatus = "SENT"
	StatusOverdue       InvoiceStatus = "OVERDUE"
	StatusVoid          InvoiceStatus = "VOID"
	StatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	StatusPaid          InvoiceStatus = "PAID"
)

// Manual reports whether users may set the status directly. Payment statuses are derived.
func (s InvoiceStatus) Manual() bool {
	switch s {
	case StatusDraft, StatusSent, StatusOverdue, StatusVoid:
		return true
	}
	return false
}

// Invoice model.
type Invoice struct {
	ID        int64
	TenantID  int64
	ClientID  int64
	Number    string
	IssueDate time.Time
	DueDate   time.Time
	Subtotal  decimal.Decimal
	Taxes     [settings.TaxSlots]decimal.Decimal
	Total     decimal.Decimal
	Status    InvoiceStatus
	Items     []InvoiceItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// InvoiceItem is a priced line of an invoice.
type InvoiceItem struct {
	ID          int64
	InvoiceID   int64
	ProductID   *int64
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

// Payment model.
type Payment struct {
	ID             int64
	TenantID       int64
	InvoiceID      int64
	Amount         decimal.Decimal
	PaymentDate    time.Time
	DepositAccount *int64
	IsReconciled   bool
	CreatedAt      time.Time
}

// InvoiceInput for creating or updating invoices.
type InvoiceInput struct {
	ClientID  int64         `validate:"required"`
	Number    string        `validate:"required,max=64"`
	IssueDate time.Time     `validate:"required"`
	DueDate   time.Time     `validate:"required,gtefield=IssueDate"`
	Status    InvoiceStatus `validate:"omitempty,oneof=DRAFT SENT OVERDUE VOID"`
	Items     []ItemInput   `validate:"required,min=1,dive"`
}

// ItemInput describes one invoice line.
type ItemInput struct {
	ProductID   *int64
	Description string `validate:"max=255"`
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// PaymentInput for recording a customer payment.
type PaymentInput struct {
	InvoiceID      int64     `validate:"required"`
	Amount         decimal.Decimal
	PaymentDate    time.Time `validate:"required"`
	DepositAccount *int64
}

// AgingBucket summarises open balances by days past due.
type AgingBucket struct {
	Current   decimal.Decimal
	Bucket30  decimal.Decimal
	Bucket60  decimal.Decimal
	Bucket90  decimal.Decimal
	Bucket120 decimal.Decimal
}

// OpenInvoice is an invoice with money still due.
type OpenInvoice struct {
	ID      int64
	Number  string
	DueDate time.Time
	Balance decimal.Decimal
}
