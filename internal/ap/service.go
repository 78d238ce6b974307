package ap

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

// JournalPort is the slice of the journal engine used by bills.
type JournalPort interface {
	ReplaceTx(ctx context.Context, tx journals.TxRepository, target journals.Target, in journals.PostingInput) (journals.JournalEntry, journals.Change, error)
	DeleteBySourceTx(ctx context.Context, tx journals.TxRepository, tenantID int64, ref journals.SourceRef) (journals.Change, error)
	Committed(ctx context.Context, changes ...journals.Change)
}

type Service struct {
	repo     Repository
	settings SettingsPort
	journal  JournalPort
	validate *validator.Validate
}

func NewService(repo Repository, settings SettingsPort, journal JournalPort) *Service {
	return &Service{repo: repo, settings: settings, journal: journal, validate: validator.New()}
}

// GetBill returns a bill with its items.
func (s *Service) GetBill(ctx context.Context, tenantID, id int64) (Bill, error) {
	if tenantID == 0 {
		return Bill{}, shared.ErrUnauthorized
	}
	return s.repo.GetBill(ctx, tenantID, id)
}

// CreateBill stores the bill and posts it to payable.
func (s *Service) CreateBill(ctx context.Context, tenantID int64, in BillInput) (Bill, error) {
	bill, cfg, err := s.prepare(ctx, tenantID, in)
	if err != nil {
		return Bill{}, err
	}
	if bill.Status == "" {
		bill.Status = BillStatusOpen
	}
	var change journals.Change
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		created, err := tx.InsertBill(ctx, bill)
		if err != nil {
			return err
		}
		bill = created
		change, err = s.postBill(ctx, tx, cfg, bill)
		return err
	})
	if err != nil {
		return Bill{}, err
	}
	s.journal.Committed(ctx, change)
	return bill, nil
}

// UpdateBill rewrites the bill and supersedes its entries. A paid bill stays
// paid and its settlement follows the new total.
func (s *Service) UpdateBill(ctx context.Context, tenantID, id int64, in BillInput) (Bill, error) {
	bill, cfg, err := s.prepare(ctx, tenantID, in)
	if err != nil {
		return Bill{}, err
	}
	bill.ID = id
	var changes []journals.Change
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.LockBill(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if current.Status == BillStatusPaid || bill.Status == "" {
			bill.Status = current.Status
		}
		updated, err := tx.UpdateBill(ctx, bill)
		if err != nil {
			return err
		}
		bill = updated
		c, err := s.postBill(ctx, tx, cfg, bill)
		if err != nil {
			return err
		}
		changes = append(changes, c)
		if bill.Status == BillStatusPaid && bill.PaidDate != nil {
			c, err := s.postSettlement(ctx, tx, cfg, bill, *bill.PaidDate)
			if err != nil {
				return err
			}
			changes = append(changes, c)
		}
		return nil
	})
	if err != nil {
		return Bill{}, err
	}
	s.journal.Committed(ctx, changes...)
	return bill, nil
}

// MarkPaid settles the bill from default cash.
func (s *Service) MarkPaid(ctx context.Context, tenantID, id int64, paidAt time.Time) (Bill, error) {
	if tenantID == 0 {
		return Bill{}, shared.ErrUnauthorized
	}
	if paidAt.IsZero() {
		return Bill{}, shared.Invalid("bill: payment date is required")
	}
	cfg, err := s.settings.Get(ctx, tenantID)
	if err != nil {
		return Bill{}, err
	}
	var (
		bill   Bill
		change journals.Change
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		bill, err = tx.LockBill(ctx, tenantID, id)
		if err != nil {
			return err
		}
		switch bill.Status {
		case BillStatusPaid:
			return shared.Invalid("bill %s is already paid", bill.Number)
		case BillStatusVoid:
			return shared.Invalid("bill %s is void", bill.Number)
		}
		if change, err = s.postSettlement(ctx, tx, cfg, bill, paidAt); err != nil {
			return err
		}
		if err := tx.MarkPaid(ctx, tenantID, id, paidAt); err != nil {
			return err
		}
		bill.Status = BillStatusPaid
		bill.PaidDate = &paidAt
		return nil
	})
	if err != nil {
		return Bill{}, err
	}
	s.journal.Committed(ctx, change)
	return bill, nil
}

// DeleteBill removes the bill with its recording and settlement entries.
func (s *Service) DeleteBill(ctx context.Context, tenantID, id int64) error {
	if tenantID == 0 {
		return shared.ErrUnauthorized
	}
	var changes []journals.Change
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.LockBill(ctx, tenantID, id); err != nil {
			return err
		}
		for _, kind := range []journals.SourceKind{journals.SourceBillPayment, journals.SourceBill} {
			c, err := s.journal.DeleteBySourceTx(ctx, tx.Journal(), tenantID, journals.SourceRef{Kind: kind, ID: id})
			if err != nil {
				return err
			}
			changes = append(changes, c)
		}
		return tx.DeleteBill(ctx, tenantID, id)
	})
	if err != nil {
		return err
	}
	s.journal.Committed(ctx, changes...)
	return nil
}

func (s *Service) prepare(ctx context.Context, tenantID int64, in BillInput) (Bill, settings.Settings, error) {
	if tenantID == 0 {
		return Bill{}, settings.Settings{}, shared.ErrUnauthorized
	}
	if err := s.validate.Struct(in); err != nil {
		return Bill{}, settings.Settings{}, shared.Invalid("bill: %v", err)
	}
	bill := Bill{
		TenantID:  tenantID,
		VendorID:  in.VendorID,
		Number:    in.Number,
		IssueDate: in.IssueDate,
		DueDate:   in.DueDate,
		AccountID: in.AccountID,
		Status:    in.Status,
		Total:     shared.Cents(in.Total),
	}
	if len(in.Items) > 0 {
		bill.Total = decimal.Zero
		for i, it := range in.Items {
			if !it.Quantity.IsPositive() {
				return Bill{}, settings.Settings{}, shared.InvalidAmount(i, "quantity must be greater than zero")
			}
			if it.UnitPrice.IsNegative() {
				return Bill{}, settings.Settings{}, shared.InvalidAmount(i, "unit price cannot be negative")
			}
			price := shared.Cents(it.UnitPrice)
			line := shared.Cents(it.Quantity.Mul(price))
			bill.Items = append(bill.Items, BillItem{
				ProductID:   it.ProductID,
				Description: it.Description,
				Quantity:    it.Quantity,
				UnitPrice:   price,
				LineTotal:   line,
			})
			bill.Total = bill.Total.Add(line)
		}
	}
	if !bill.Total.IsPositive() {
		return Bill{}, settings.Settings{}, shared.InvalidAmount(0, "bill total must be greater than zero")
	}
	cfg, err := s.settings.Get(ctx, tenantID)
	if err != nil {
		return Bill{}, settings.Settings{}, err
	}
	return bill, cfg, nil
}

func (s *Service) postBill(ctx context.Context, tx TxRepository, cfg settings.Settings, bill Bill) (journals.Change, error) {
	lines, err := posting.BillRecorded(cfg, bill.AccountID, bill.Total)
	if err != nil {
		return journals.Change{}, err
	}
	_, change, err := s.journal.ReplaceTx(ctx, tx.Journal(), journals.BySource(journals.SourceRef{Kind: journals.SourceBill, ID: bill.ID}), journals.PostingInput{
		TenantID:    bill.TenantID,
		Date:        bill.IssueDate,
		Description: fmt.Sprintf("Bill %s", bill.Number),
		Lines:       lines,
	})
	return change, err
}

func (s *Service) postSettlement(ctx context.Context, tx TxRepository, cfg settings.Settings, bill Bill, paidAt time.Time) (journals.Change, error) {
	lines, err := posting.BillPaid(cfg, bill.Total)
	if err != nil {
		return journals.Change{}, err
	}
	_, change, err := s.journal.ReplaceTx(ctx, tx.Journal(), journals.BySource(journals.SourceRef{Kind: journals.SourceBillPayment, ID: bill.ID}), journals.PostingInput{
		TenantID:    bill.TenantID,
		Date:        paidAt,
		Description: fmt.Sprintf("Payment of bill %s", bill.Number),
		Lines:       lines,
	})
	return change, err
}
