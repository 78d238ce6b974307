package ar

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/posting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/settings"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// SettingsPort provides tenant configuration.
type SettingsPort interface {
	Get(ctx context.Context, tenantID int64) (settings.Settings, error)
}

// ProductPort resolves which tax slots apply to products.
type ProductPort interface {
	TaxFlags(ctx context.Context, tenantID int64, ids []int64) (map[int64][settings.TaxSlots]bool, error)
}

// JournalPort is the slice of the journal engine that runs inside document transactions.
type JournalPort interface {
	PostTx(ctx context.Context, tx journals.TxRepository, in journals.PostingInput) (journals.JournalEntry, journals.Change, error)
	ReplaceTx(ctx context.Context, tx journals.TxRepository, target journals.Target, in journals.PostingInput) (journals.JournalEntry, journals.Change, error)
	DeleteBySourceTx(ctx context.Context, tx journals.TxRepository, tenantID int64, ref journals.SourceRef) (journals.Change, error)
	DocumentChanged(tenantID int64, ref journals.SourceRef) journals.Change
	Committed(ctx context.Context, changes ...journals.Change)
}

// Service handles invoices and customer payments. Every document write and its
// journal entry commit together.
type Service struct {
	repo     Repository
	settings SettingsPort
	products ProductPort
	journal  JournalPort
	validate *validator.Validate
}

// NewService builds Service instance.
func NewService(repo Repository, settings SettingsPort, products ProductPort, journal JournalPort) *Service {
	return &Service{repo: repo, settings: settings, products: products, journal: journal, validate: validator.New()}
}

// GetInvoice returns the invoice with its items.
func (s *Service) GetInvoice(ctx context.Context, tenantID, id int64) (Invoice, error) {
	if tenantID == 0 {
		return Invoice{}, shared.ErrUnauthorized
	}
	return s.repo.GetInvoice(ctx, tenantID, id)
}

// ListPayments returns the payments applied to an invoice.
func (s *Service) ListPayments(ctx context.Context, tenantID, invoiceID int64) ([]Payment, error) {
	if tenantID == 0 {
		return nil, shared.ErrUnauthorized
	}
	return s.repo.ListPayments(ctx, tenantID, invoiceID)
}

// CreateInvoice stores the invoice and posts the sale.
func (s *Service) CreateInvoice(ctx context.Context, tenantID int64, in InvoiceInput) (Invoice, error) {
	inv, cfg, err := s.prepare(ctx, tenantID, in)
	if err != nil {
		return Invoice{}, err
	}
	if inv.Status == "" {
		inv.Status = StatusDraft
	}
	var change journals.Change
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		created, err := tx.InsertInvoice(ctx, inv)
		if err != nil {
			return err
		}
		inv = created
		change, err = s.postSale(ctx, tx, cfg, inv)
		return err
	})
	if err != nil {
		return Invoice{}, err
	}
	s.committed(ctx, inv.TenantID, inv.ID, change)
	return inv, nil
}

// UpdateInvoice rewrites the invoice and supersedes its entry. Invoices with
// payments keep their derived status.
func (s *Service) UpdateInvoice(ctx context.Context, tenantID, id int64, in InvoiceInput) (Invoice, error) {
	inv, cfg, err := s.prepare(ctx, tenantID, in)
	if err != nil {
		return Invoice{}, err
	}
	inv.ID = id
	var change journals.Change
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.LockInvoice(ctx, tenantID, id)
		if err != nil {
			return err
		}
		paid, err := tx.PaidTotal(ctx, tenantID, id)
		if err != nil {
			return err
		}
		switch {
		case paid.IsPositive():
			if paid.GreaterThan(inv.Total.Add(shared.PaymentTolerance)) {
				return shared.Invalid("invoice %s: total %s is below the %s already paid", inv.Number, inv.Total.StringFixed(2), paid.StringFixed(2))
			}
			inv.Status = paymentStatus(paid, inv.Total)
		case inv.Status == "":
			inv.Status = current.Status
		}
		updated, err := tx.UpdateInvoice(ctx, inv)
		if err != nil {
			return err
		}
		inv = updated
		change, err = s.postSale(ctx, tx, cfg, inv)
		return err
	})
	if err != nil {
		return Invoice{}, err
	}
	s.committed(ctx, tenantID, id, change)
	return inv, nil
}

// DeleteInvoice removes the invoice, its payments and every entry they own.
func (s *Service) DeleteInvoice(ctx context.Context, tenantID, id int64) error {
	if tenantID == 0 {
		return shared.ErrUnauthorized
	}
	var changes []journals.Change
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.LockInvoice(ctx, tenantID, id); err != nil {
			return err
		}
		paymentIDs, err := tx.PaymentIDs(ctx, tenantID, id)
		if err != nil {
			return err
		}
		for _, pid := range paymentIDs {
			c, err := s.journal.DeleteBySourceTx(ctx, tx.Journal(), tenantID, journals.SourceRef{Kind: journals.SourcePayment, ID: pid})
			if err != nil {
				return err
			}
			changes = append(changes, c)
		}
		if err := tx.DeletePayments(ctx, tenantID, id); err != nil {
			return err
		}
		c, err := s.journal.DeleteBySourceTx(ctx, tx.Journal(), tenantID, journals.SourceRef{Kind: journals.SourceInvoice, ID: id})
		if err != nil {
			return err
		}
		changes = append(changes, c)
		return tx.DeleteInvoice(ctx, tenantID, id)
	})
	if err != nil {
		return err
	}
	s.committed(ctx, tenantID, id, changes...)
	return nil
}

// UpdateStatus sets one of the manual statuses.
func (s *Service) UpdateStatus(ctx context.Context, tenantID, id int64, status InvoiceStatus) error {
	if tenantID == 0 {
		return shared.ErrUnauthorized
	}
	if !status.Manual() {
		return shared.Invalid("invoice status %q is invalid or derived from payments", status)
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.SetStatus(ctx, tenantID, id, status)
	})
	if err != nil {
		return err
	}
	s.committed(ctx, tenantID, id)
	return nil
}

// RecordPayment applies a payment, posts it and derives the invoice status.
func (s *Service) RecordPayment(ctx context.Context, tenantID int64, in PaymentInput) (Payment, error) {
	if tenantID == 0 {
		return Payment{}, shared.ErrUnauthorized
	}
	if err := s.validate.Struct(in); err != nil {
		return Payment{}, shared.Invalid("payment: %v", err)
	}
	amount := shared.Cents(in.Amount)
	if !amount.IsPositive() {
		return Payment{}, shared.InvalidAmount(0, "payment amount must be greater than zero")
	}
	cfg, err := s.settings.Get(ctx, tenantID)
	if err != nil {
		return Payment{}, err
	}
	lines, err := posting.PaymentReceived(cfg, in.DepositAccount, amount)
	if err != nil {
		return Payment{}, err
	}

	var (
		payment Payment
		change  journals.Change
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.LockInvoice(ctx, tenantID, in.InvoiceID)
		if err != nil {
			return err
		}
		paid, err := tx.PaidTotal(ctx, tenantID, inv.ID)
		if err != nil {
			return err
		}
		due := inv.Total.Sub(paid)
		if amount.GreaterThan(due.Add(shared.PaymentTolerance)) {
			return &shared.Error{
				Kind:    shared.KindPaymentExceedsBalance,
				Message: fmt.Sprintf("payment exceeds the balance due of %s", due.StringFixed(2)),
			}
		}
		payment, err = tx.InsertPayment(ctx, Payment{
			TenantID:       tenantID,
			InvoiceID:      inv.ID,
			Amount:         amount,
			PaymentDate:    in.PaymentDate,
			DepositAccount: in.DepositAccount,
		})
		if err != nil {
			return err
		}
		_, change, err = s.journal.PostTx(ctx, tx.Journal(), journals.PostingInput{
			TenantID:    tenantID,
			Date:        in.PaymentDate,
			Description: fmt.Sprintf("Payment for invoice %s", inv.Number),
			Source:      journals.Source(journals.SourcePayment, payment.ID),
			Lines:       lines,
		})
		if err != nil {
			return err
		}
		return tx.SetStatus(ctx, tenantID, inv.ID, paymentStatus(paid.Add(amount), inv.Total))
	})
	if err != nil {
		return Payment{}, err
	}
	s.journal.Committed(ctx, change)
	return payment, nil
}

// CalculateAging groups open balances by days past due.
func (s *Service) CalculateAging(ctx context.Context, tenantID int64, asOf time.Time) (AgingBucket, error) {
	if tenantID == 0 {
		return AgingBucket{}, shared.ErrUnauthorized
	}
	invoices, err := s.repo.ListOutstanding(ctx, tenantID)
	if err != nil {
		return AgingBucket{}, err
	}
	if asOf.IsZero() {
		asOf = time.Now()
	}
	bucket := AgingBucket{Current: decimal.Zero, Bucket30: decimal.Zero, Bucket60: decimal.Zero, Bucket90: decimal.Zero, Bucket120: decimal.Zero}
	for _, inv := range invoices {
		days := int(asOf.Sub(inv.DueDate).Hours() / 24)
		switch {
		case days <= 0:
			bucket.Current = bucket.Current.Add(inv.Balance)
		case days <= 30:
			bucket.Bucket30 = bucket.Bucket30.Add(inv.Balance)
		case days <= 60:
			bucket.Bucket60 = bucket.Bucket60.Add(inv.Balance)
		case days <= 90:
			bucket.Bucket90 = bucket.Bucket90.Add(inv.Balance)
		default:
			bucket.Bucket120 = bucket.Bucket120.Add(inv.Balance)
		}
	}
	return bucket, nil
}

// prepare validates the input and computes totals outside the transaction.
func (s *Service) prepare(ctx context.Context, tenantID int64, in InvoiceInput) (Invoice, settings.Settings, error) {
	if tenantID == 0 {
		return Invoice{}, settings.Settings{}, shared.ErrUnauthorized
	}
	if err := s.validate.Struct(in); err != nil {
		return Invoice{}, settings.Settings{}, shared.Invalid("invoice: %v", err)
	}
	var productIDs []int64
	items := make([]posting.Item, len(in.Items))
	for i, it := range in.Items {
		if !it.Quantity.IsPositive() {
			return Invoice{}, settings.Settings{}, shared.InvalidAmount(i, "quantity must be greater than zero")
		}
		if it.UnitPrice.IsNegative() {
			return Invoice{}, settings.Settings{}, shared.InvalidAmount(i, "unit price cannot be negative")
		}
		if it.ProductID != nil {
			productIDs = append(productIDs, *it.ProductID)
		}
		items[i] = posting.Item{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: shared.Cents(it.UnitPrice)}
	}
	cfg, err := s.settings.Get(ctx, tenantID)
	if err != nil {
		return Invoice{}, settings.Settings{}, err
	}
	flags, err := s.products.TaxFlags(ctx, tenantID, productIDs)
	if err != nil {
		return Invoice{}, settings.Settings{}, err
	}
	for _, id := range productIDs {
		if _, ok := flags[id]; !ok {
			return Invoice{}, settings.Settings{}, shared.NotFound("product", id)
		}
	}
	totals := posting.ComputeTotals(items, flags, cfg.TaxRates)

	inv := Invoice{
		TenantID:  tenantID,
		ClientID:  in.ClientID,
		Number:    in.Number,
		IssueDate: in.IssueDate,
		DueDate:   in.DueDate,
		Subtotal:  totals.Subtotal,
		Taxes:     totals.Taxes,
		Total:     totals.GrandTotal,
		Status:    in.Status,
	}
	for i, it := range in.Items {
		inv.Items = append(inv.Items, InvoiceItem{
			ProductID:   it.ProductID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   items[i].UnitPrice,
			LineTotal:   totals.LineTotals[i],
		})
	}
	return inv, cfg, nil
}

// postSale supersedes the invoice's entry. A zero invoice carries no entry.
func (s *Service) postSale(ctx context.Context, tx TxRepository, cfg settings.Settings, inv Invoice) (journals.Change, error) {
	lines, err := posting.Sale(cfg, posting.Totals{Subtotal: inv.Subtotal, Taxes: inv.Taxes, GrandTotal: inv.Total})
	if err != nil {
		return journals.Change{}, err
	}
	ref := journals.SourceRef{Kind: journals.SourceInvoice, ID: inv.ID}
	if len(lines) == 0 {
		return s.journal.DeleteBySourceTx(ctx, tx.Journal(), inv.TenantID, ref)
	}
	_, change, err := s.journal.ReplaceTx(ctx, tx.Journal(), journals.BySource(ref), journals.PostingInput{
		TenantID:    inv.TenantID,
		Date:        inv.IssueDate,
		Description: fmt.Sprintf("Invoice %s", inv.Number),
		Lines:       lines,
	})
	return change, err
}

// committed broadcasts the invoice's ledger changes. Writes that left the
// ledger untouched still announce a document change, since the dashboard and
// the document-basis P&L read invoices directly.
func (s *Service) committed(ctx context.Context, tenantID, invoiceID int64, changes ...journals.Change) {
	for _, c := range changes {
		if c.Kind != "" {
			s.journal.Committed(ctx, changes...)
			return
		}
	}
	s.journal.Committed(ctx, s.journal.DocumentChanged(tenantID, journals.SourceRef{Kind: journals.SourceInvoice, ID: invoiceID}))
}

func paymentStatus(paid, total decimal.Decimal) InvoiceStatus {
	if paid.GreaterThanOrEqual(total) {
		return StatusPaid
	}
	return StatusPartiallyPaid
}
