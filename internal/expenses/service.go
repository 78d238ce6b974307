package expenses

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/posting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/settings"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// SettingsPort provides tenant configuration.
type SettingsPort interface {
	Get(ctx context.Context, tenantID int64) (settings.Settings, error)
}

// JournalPort is the slice of the journal engine used by expenses.
type JournalPort interface {
	ReplaceTx(ctx context.Context, tx journals.TxRepository, target journals.Target, in journals.PostingInput) (journals.JournalEntry, journals.Change, error)
	DeleteBySourceTx(ctx context.Context, tx journals.TxRepository, tenantID int64, ref journals.SourceRef) (journals.Change, error)
	Committed(ctx context.Context, changes ...journals.Change)
}

// Service records expenses and keeps their entries in step.
type Service struct {
	repo     Repository
	settings SettingsPort
	journal  JournalPort
	validate *validator.Validate
}

func NewService(repo Repository, settings SettingsPort, journal JournalPort) *Service {
	return &Service{repo: repo, settings: settings, journal: journal, validate: validator.New()}
}

// Get returns one expense.
func (s *Service) Get(ctx context.Context, tenantID, id int64) (Expense, error) {
	if tenantID == 0 {
		return Expense{}, shared.ErrUnauthorized
	}
	return s.repo.Get(ctx, tenantID, id)
}

// Create stores the expense and posts it against default cash.
func (s *Service) Create(ctx context.Context, tenantID int64, in Input) (Expense, error) {
	return s.save(ctx, tenantID, 0, in)
}

// Update rewrites the expense and supersedes its entry.
func (s *Service) Update(ctx context.Context, tenantID, id int64, in Input) (Expense, error) {
	return s.save(ctx, tenantID, id, in)
}

// Delete removes the expense together with its entry.
func (s *Service) Delete(ctx context.Context, tenantID, id int64) error {
	if tenantID == 0 {
		return shared.ErrUnauthorized
	}
	var change journals.Change
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		change, err = s.journal.DeleteBySourceTx(ctx, tx.Journal(), tenantID, journals.SourceRef{Kind: journals.SourceExpense, ID: id})
		if err != nil {
			return err
		}
		return tx.Delete(ctx, tenantID, id)
	})
	if err != nil {
		return err
	}
	s.journal.Committed(ctx, change)
	return nil
}

func (s *Service) save(ctx context.Context, tenantID, id int64, in Input) (Expense, error) {
	if tenantID == 0 {
		return Expense{}, shared.ErrUnauthorized
	}
	if err := s.validate.Struct(in); err != nil {
		return Expense{}, shared.Invalid("expense: %v", err)
	}
	amount := shared.Cents(in.Amount)
	if !amount.IsPositive() {
		return Expense{}, shared.InvalidAmount(0, "expense amount must be greater than zero")
	}
	cfg, err := s.settings.Get(ctx, tenantID)
	if err != nil {
		return Expense{}, err
	}
	lines, err := posting.ExpenseRecorded(cfg, in.ExpenseAccountID, amount)
	if err != nil {
		return Expense{}, err
	}

	exp := Expense{
		ID:               id,
		TenantID:         tenantID,
		Description:      in.Description,
		Amount:           amount,
		ExpenseAccountID: in.ExpenseAccountID,
		ExpenseDate:      in.ExpenseDate,
		VendorID:         in.VendorID,
		Category:         in.Category,
	}
	var change journals.Change
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		if id == 0 {
			exp, err = tx.Insert(ctx, exp)
		} else {
			exp, err = tx.Update(ctx, exp)
		}
		if err != nil {
			return err
		}
		_, change, err = s.journal.ReplaceTx(ctx, tx.Journal(), journals.BySource(journals.SourceRef{Kind: journals.SourceExpense, ID: exp.ID}), journals.PostingInput{
			TenantID:    tenantID,
			Date:        exp.ExpenseDate,
			Description: exp.Description,
			Lines:       lines,
		})
		return err
	})
	if err != nil {
		return Expense{}, err
	}
	s.journal.Committed(ctx, change)
	return exp, nil
}
