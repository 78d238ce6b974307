// Package reconciliation ties bank statement lines to the ledger, either by
// matching a recorded customer payment or by posting the line as a deposit.
package reconciliation

import (
	"context"
	"fmt"

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

// JournalPort is the slice of the journal engine used for deposits.
type JournalPort interface {
	PostTx(ctx context.Context, tx journals.TxRepository, in journals.PostingInput) (journals.JournalEntry, journals.Change, error)
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

// UnmatchedPayments lists payments not yet matched to a bank line, newest first.
func (s *Service) UnmatchedPayments(ctx context.Context, tenantID int64) ([]UnmatchedPayment, error) {
	if tenantID == 0 {
		return nil, shared.ErrUnauthorized
	}
	return s.repo.UnmatchedPayments(ctx, tenantID)
}

// UnreconciledTransactions lists open lines of one bank account.
func (s *Service) UnreconciledTransactions(ctx context.Context, tenantID, bankAccountID int64) ([]BankTransaction, error) {
	if tenantID == 0 {
		return nil, shared.ErrUnauthorized
	}
	return s.repo.UnreconciledTransactions(ctx, tenantID, bankAccountID)
}

// MatchPayment links a bank line to a customer payment. The payment already
// carries its entry, so nothing is posted.
func (s *Service) MatchPayment(ctx context.Context, tenantID, bankTxID, paymentID int64) error {
	if tenantID == 0 {
		return shared.ErrUnauthorized
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		bankTx, err := tx.LockTransaction(ctx, tenantID, bankTxID)
		if err != nil {
			return err
		}
		if bankTx.IsReconciled {
			return shared.Invalid("bank transaction %d is already reconciled", bankTxID)
		}
		amount, reconciled, err := tx.LockPayment(ctx, tenantID, paymentID)
		if err != nil {
			return err
		}
		if reconciled {
			return shared.Invalid("payment %d is already reconciled", paymentID)
		}
		if bankTx.Amount.Sub(amount).Abs().GreaterThan(shared.PaymentTolerance) {
			return &shared.Error{
				Kind:    shared.KindAmountMismatch,
				Message: fmt.Sprintf("bank amount %s does not match payment amount %s", bankTx.Amount.StringFixed(2), amount.StringFixed(2)),
			}
		}
		return tx.MarkReconciled(ctx, tenantID, bankTxID, &paymentID)
	})
}

// ReconcileAsDeposit posts a bank receipt against the chosen account and marks
// the line reconciled.
func (s *Service) ReconcileAsDeposit(ctx context.Context, tenantID int64, in DepositInput) (journals.JournalEntry, error) {
	if tenantID == 0 {
		return journals.JournalEntry{}, shared.ErrUnauthorized
	}
	if err := s.validate.Struct(in); err != nil {
		return journals.JournalEntry{}, shared.Invalid("deposit: %v", err)
	}
	cfg, err := s.settings.Get(ctx, tenantID)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	var (
		entry  journals.JournalEntry
		change journals.Change
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		bankTx, err := tx.LockTransaction(ctx, tenantID, in.BankTransactionID)
		if err != nil {
			return err
		}
		if bankTx.IsReconciled {
			return shared.Invalid("bank transaction %d is already reconciled", bankTx.ID)
		}
		if !bankTx.Amount.IsPositive() {
			return shared.InvalidAmount(0, "only receipts can be reconciled as deposits")
		}
		bank, err := tx.BankAccount(ctx, tenantID, bankTx.BankAccountID)
		if err != nil {
			return err
		}
		lines, err := posting.BankDeposit(cfg, bank.GLAccountID, in.CreditAccountID, bankTx.Amount)
		if err != nil {
			return err
		}
		description := in.Description
		if description == "" {
			description = bankTx.Description
		}
		entry, change, err = s.journal.PostTx(ctx, tx.Journal(), journals.PostingInput{
			TenantID:    tenantID,
			Date:        bankTx.Date,
			Description: description,
			Source:      journals.Source(journals.SourceDeposit, bankTx.ID),
			Lines:       lines,
		})
		if err != nil {
			return err
		}
		return tx.MarkReconciled(ctx, tenantID, bankTx.ID, nil)
	})
	if err != nil {
		return journals.JournalEntry{}, err
	}
	s.journal.Committed(ctx, change)
	return entry, nil
}
