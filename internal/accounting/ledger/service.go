package ledger

import (
	"context"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// Service answers balance questions from posted journal lines only.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// TrialBalance lists every account with a positive normal balance as of the day.
func (s *Service) TrialBalance(ctx context.Context, tenantID int64, asOf time.Time) ([]TrialBalanceRow, error) {
	if tenantID == 0 {
		return nil, shared.ErrUnauthorized
	}
	var rows []TrialBalanceRow
	err := s.repo.Snapshot(ctx, func(ctx context.Context, r Reader) error {
		activity, err := r.Activity(ctx, tenantID, time.Time{}, asOf)
		if err != nil {
			return err
		}
		rows = BuildTrialBalance(activity)
		return nil
	})
	return rows, err
}

// Activity returns raw per-account totals for entries dated in [start, end].
func (s *Service) Activity(ctx context.Context, tenantID int64, start, end time.Time) ([]AccountActivity, error) {
	if tenantID == 0 {
		return nil, shared.ErrUnauthorized
	}
	var out []AccountActivity
	err := s.repo.Snapshot(ctx, func(ctx context.Context, r Reader) error {
		var err error
		out, err = r.Activity(ctx, tenantID, start, end)
		return err
	})
	return out, err
}

// GeneralLedger returns the account's opening balance before start, each line
// in [start, end] with its running balance, and the closing balance.
func (s *Service) GeneralLedger(ctx context.Context, tenantID, accountID int64, start, end time.Time) (GeneralLedger, error) {
	if tenantID == 0 {
		return GeneralLedger{}, shared.ErrUnauthorized
	}
	if end.Before(start) {
		return GeneralLedger{}, shared.Invalid("ledger: end %s is before start %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	var gl GeneralLedger
	err := s.repo.Snapshot(ctx, func(ctx context.Context, r Reader) error {
		account, err := r.Account(ctx, tenantID, accountID)
		if err != nil {
			return err
		}
		debits, credits, err := r.AccountTotals(ctx, tenantID, accountID, start)
		if err != nil {
			return err
		}
		postings, err := r.Postings(ctx, tenantID, accountID, start, end)
		if err != nil {
			return err
		}
		gl = BuildGeneralLedger(account, accounts.Normalize(account.Type, debits, credits), postings)
		gl.Start, gl.End = start, end
		return nil
	})
	return gl, err
}
