package reports

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/ledger"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// LedgerPort is the ledger query surface the reports are composed from.
type LedgerPort interface {
	TrialBalance(ctx context.Context, tenantID int64, asOf time.Time) ([]ledger.TrialBalanceRow, error)
	GeneralLedger(ctx context.Context, tenantID, accountID int64, start, end time.Time) (ledger.GeneralLedger, error)
	Activity(ctx context.Context, tenantID int64, start, end time.Time) ([]ledger.AccountActivity, error)
}

// Service composes ledger queries and document sums into financial statements.
type Service struct {
	ledger LedgerPort
	docs   DocumentRepository
	cache  *Cache
	logger *slog.Logger
	group  singleflight.Group
}

// NewService wires the aggregator. cache may be nil.
func NewService(ledger LedgerPort, docs DocumentRepository, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	cache.SetLogger(logger)
	return &Service{ledger: ledger, docs: docs, cache: cache, logger: logger}
}

// Invalidate drops every cached report of the tenant.
func (s *Service) Invalidate(ctx context.Context, tenantID int64) error {
	return s.cache.Bump(ctx, tenantID)
}

// TrialBalance returns the grouped trial balance as of the day.
func (s *Service) TrialBalance(ctx context.Context, tenantID int64, asOf time.Time) (TrialBalance, error) {
	if tenantID == 0 {
		return TrialBalance{}, shared.ErrUnauthorized
	}
	return cached(ctx, s, tenantID, []string{"tb", day(asOf)}, func(ctx context.Context) (TrialBalance, error) {
		rows, err := s.ledger.TrialBalance(ctx, tenantID, asOf)
		if err != nil {
			return TrialBalance{}, err
		}
		return BuildTrialBalance(asOf, rows), nil
	})
}

// GeneralLedger re-exposes the ledger engine for report consumers.
func (s *Service) GeneralLedger(ctx context.Context, tenantID, accountID int64, start, end time.Time) (ledger.GeneralLedger, error) {
	if tenantID == 0 {
		return ledger.GeneralLedger{}, shared.ErrUnauthorized
	}
	return cached(ctx, s, tenantID, []string{"gl", strconv.FormatInt(accountID, 10), day(start), day(end)}, func(ctx context.Context) (ledger.GeneralLedger, error) {
		return s.ledger.GeneralLedger(ctx, tenantID, accountID, start, end)
	})
}

// BalanceSheet partitions the trial balance as of the day.
func (s *Service) BalanceSheet(ctx context.Context, tenantID int64, asOf time.Time) (BalanceSheet, error) {
	if tenantID == 0 {
		return BalanceSheet{}, shared.ErrUnauthorized
	}
	return cached(ctx, s, tenantID, []string{"bs", day(asOf)}, func(ctx context.Context) (BalanceSheet, error) {
		rows, err := s.ledger.TrialBalance(ctx, tenantID, asOf)
		if err != nil {
			return BalanceSheet{}, err
		}
		return BuildBalanceSheet(asOf, rows), nil
	})
}

// ProfitLoss sums paid invoices and expenses issued in [start, end].
func (s *Service) ProfitLoss(ctx context.Context, tenantID int64, start, end time.Time) (ProfitLoss, error) {
	if err := checkRange(tenantID, start, end); err != nil {
		return ProfitLoss{}, err
	}
	return cached(ctx, s, tenantID, []string{"pl", day(start), day(end)}, func(ctx context.Context) (ProfitLoss, error) {
		var income, expenses decimal.Decimal
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			income, err = s.docs.PaidInvoiceTotal(gctx, tenantID, start, end)
			return err
		})
		g.Go(func() error {
			var err error
			expenses, err = s.docs.ExpenseTotal(gctx, tenantID, start, end)
			return err
		})
		if err := g.Wait(); err != nil {
			return ProfitLoss{}, err
		}
		return ProfitLoss{
			Start:         start,
			End:           end,
			TotalIncome:   income,
			TotalExpenses: expenses,
			NetProfit:     income.Sub(expenses),
		}, nil
	})
}

// LedgerProfitLoss builds the statement from income and expense account activity.
func (s *Service) LedgerProfitLoss(ctx context.Context, tenantID int64, start, end time.Time) (ProfitAndLoss, error) {
	if err := checkRange(tenantID, start, end); err != nil {
		return ProfitAndLoss{}, err
	}
	return cached(ctx, s, tenantID, []string{"lpl", day(start), day(end)}, func(ctx context.Context) (ProfitAndLoss, error) {
		activity, err := s.ledger.Activity(ctx, tenantID, start, end)
		if err != nil {
			return ProfitAndLoss{}, err
		}
		pl := BuildProfitAndLoss(activity)
		pl.Start, pl.End = start, end
		return pl, nil
	})
}

// CashFlow compares payments received with expenses and paid bills in [start, end].
func (s *Service) CashFlow(ctx context.Context, tenantID int64, start, end time.Time) (CashFlow, error) {
	if err := checkRange(tenantID, start, end); err != nil {
		return CashFlow{}, err
	}
	return cached(ctx, s, tenantID, []string{"cf", day(start), day(end)}, func(ctx context.Context) (CashFlow, error) {
		var inflows, expenses, bills decimal.Decimal
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			inflows, err = s.docs.PaymentsReceived(gctx, tenantID, start, end)
			return err
		})
		g.Go(func() error {
			var err error
			expenses, err = s.docs.ExpenseTotal(gctx, tenantID, start, end)
			return err
		})
		g.Go(func() error {
			var err error
			bills, err = s.docs.PaidBillTotal(gctx, tenantID, start, end)
			return err
		})
		if err := g.Wait(); err != nil {
			return CashFlow{}, err
		}
		return buildCashFlow(start, end, inflows, expenses, bills), nil
	})
}

// Dashboard summarises revenue and receivables.
func (s *Service) Dashboard(ctx context.Context, tenantID int64) (Dashboard, error) {
	if tenantID == 0 {
		return Dashboard{}, shared.ErrUnauthorized
	}
	return cached(ctx, s, tenantID, []string{"dashboard"}, func(ctx context.Context) (Dashboard, error) {
		return s.docs.Dashboard(ctx, tenantID)
	})
}

// IncomeVsExpense compares payments received with expenses over the
// TrendMonths calendar months ending at asOf.
func (s *Service) IncomeVsExpense(ctx context.Context, tenantID int64, asOf time.Time) (IncomeVsExpense, error) {
	if tenantID == 0 {
		return IncomeVsExpense{}, shared.ErrUnauthorized
	}
	start, end := trendWindow(asOf)
	return cached(ctx, s, tenantID, []string{"ive", day(asOf)}, func(ctx context.Context) (IncomeVsExpense, error) {
		var income, expenses []MonthTotal
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			income, err = s.docs.PaymentsByMonth(gctx, tenantID, start, end)
			return err
		})
		g.Go(func() error {
			var err error
			expenses, err = s.docs.ExpensesByMonth(gctx, tenantID, start, end)
			return err
		})
		if err := g.Wait(); err != nil {
			return IncomeVsExpense{}, err
		}
		return BuildIncomeVsExpense(asOf, income, expenses), nil
	})
}

// ExpensesByCategory splits the expenses of the year ending at asOf by category.
func (s *Service) ExpensesByCategory(ctx context.Context, tenantID int64, asOf time.Time) (ExpenseBreakdown, error) {
	if tenantID == 0 {
		return ExpenseBreakdown{}, shared.ErrUnauthorized
	}
	start, end := categoryWindow(asOf)
	return cached(ctx, s, tenantID, []string{"cat", day(asOf)}, func(ctx context.Context) (ExpenseBreakdown, error) {
		rows, err := s.docs.ExpensesByCategory(ctx, tenantID, start, end)
		if err != nil {
			return ExpenseBreakdown{}, err
		}
		return BuildExpenseBreakdown(start, end, rows), nil
	})
}

// cached collapses concurrent builds of the same report and serves it from
// the versioned cache. When Redis fails the report is built directly.
func cached[T any](ctx context.Context, s *Service, tenantID int64, parts []string, build func(context.Context) (T, error)) (T, error) {
	var zero T
	key, err := s.cache.BuildKey(ctx, tenantID, parts...)
	if err != nil {
		s.logger.Warn("report cache unavailable", slog.Any("error", err), slog.Int64("tenant_id", tenantID))
		return build(ctx)
	}
	resultChan := s.group.DoChan(key, func() (any, error) {
		var out T
		err := s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
			return build(ctx)
		})
		return out, err
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func checkRange(tenantID int64, start, end time.Time) error {
	if tenantID == 0 {
		return shared.ErrUnauthorized
	}
	if end.Before(start) {
		return shared.Invalid("reports: end %s is before start %s", day(end), day(start))
	}
	return nil
}

func day(t time.Time) string {
	return t.Format(time.DateOnly)
}
