// Package cli implements the odyssey-ledger operator commands.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/ledger"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/observability"
)

const dateLayout = "2006-01-02"

// ReportsPort is the report surface the commands render.
type ReportsPort interface {
	TrialBalance(ctx context.Context, tenantID int64, asOf time.Time) (reports.TrialBalance, error)
	GeneralLedger(ctx context.Context, tenantID, accountID int64, start, end time.Time) (ledger.GeneralLedger, error)
	BalanceSheet(ctx context.Context, tenantID int64, asOf time.Time) (reports.BalanceSheet, error)
	ProfitLoss(ctx context.Context, tenantID int64, start, end time.Time) (reports.ProfitLoss, error)
	LedgerProfitLoss(ctx context.Context, tenantID int64, start, end time.Time) (reports.ProfitAndLoss, error)
	CashFlow(ctx context.Context, tenantID int64, start, end time.Time) (reports.CashFlow, error)
	Dashboard(ctx context.Context, tenantID int64) (reports.Dashboard, error)
	IncomeVsExpense(ctx context.Context, tenantID int64, asOf time.Time) (reports.IncomeVsExpense, error)
	ExpensesByCategory(ctx context.Context, tenantID int64, asOf time.Time) (reports.ExpenseBreakdown, error)
}

// IntegrityPort finds stored entries that break double entry.
type IntegrityPort interface {
	CheckIntegrity(ctx context.Context, tenantID int64) ([]journals.IntegrityIssue, error)
}

// Deps carries what the commands need. Nil ports disable their commands.
type Deps struct {
	Reports   ReportsPort
	Integrity IntegrityPort
	Seeder    *Seeder
	Migrate   func(ctx context.Context) error
	Metrics   *observability.Metrics
	Stdout    io.Writer
	Stderr    io.Writer
	Now       func() time.Time
}

// ErrUsage marks invalid invocations.
var ErrUsage = errors.New("usage")

const usage = `usage: odyssey-ledger <command> [flags]

commands:
  migrate                                   apply the database schema
  seed            -tenant N                 create a starter chart of accounts and settings
  trial-balance   -tenant N [-as-of D]
  general-ledger  -tenant N -account N -from D -to D
  balance-sheet   -tenant N [-as-of D]
  profit-loss     -tenant N -from D -to D [-basis ledger|documents]
  cash-flow       -tenant N -from D -to D
  dashboard       -tenant N
  income-vs-expense  -tenant N [-as-of D]  payments against expenses, last six months
  expense-categories -tenant N [-as-of D]  expenses by category, last year
  integrity       -tenant N                 exit 2 when damaged entries exist

common flags: -format json|text (default json)
`

type options struct {
	tenant  int64
	account int64
	asOf    string
	from    string
	to      string
	format  string
	basis   string
}

// Run executes one command and returns the process exit code.
func Run(ctx context.Context, args []string, deps Deps) int {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if len(args) == 0 || args[0] == "-h" || args[0] == "help" {
		fmt.Fprint(deps.Stderr, usage)
		return 1
	}
	command := args[0]
	err := deps.Metrics.Track(command).End(run(ctx, command, args[1:], deps))
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errIntegrity):
		return 2
	case errors.Is(err, ErrUsage), errors.Is(err, flag.ErrHelp):
		fmt.Fprintf(deps.Stderr, "%s: %v\n\n%s", command, err, usage)
		return 1
	default:
		if kind := shared.KindOf(err); kind != "" {
			fmt.Fprintf(deps.Stderr, "%s: %s: %v\n", command, kind, err)
		} else {
			fmt.Fprintf(deps.Stderr, "%s: %v\n", command, err)
		}
		return 1
	}
}

var errIntegrity = errors.New("integrity issues found")

func run(ctx context.Context, command string, args []string, deps Deps) error {
	var opts options
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Int64Var(&opts.tenant, "tenant", 0, "tenant id")
	fs.Int64Var(&opts.account, "account", 0, "account id")
	fs.StringVar(&opts.asOf, "as-of", "", "report date (YYYY-MM-DD), defaults to today")
	fs.StringVar(&opts.from, "from", "", "period start (YYYY-MM-DD)")
	fs.StringVar(&opts.to, "to", "", "period end (YYYY-MM-DD)")
	fs.StringVar(&opts.format, "format", "json", "output format: json or text")
	fs.StringVar(&opts.basis, "basis", "ledger", "profit-loss basis: ledger or documents")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	opts.format = strings.ToLower(opts.format)
	if opts.format != "json" && opts.format != "text" {
		return fmt.Errorf("%w: unknown format %q", ErrUsage, opts.format)
	}
	opts.basis = strings.ToLower(opts.basis)
	if opts.basis != "ledger" && opts.basis != "documents" {
		return fmt.Errorf("%w: unknown basis %q", ErrUsage, opts.basis)
	}

	if command == "migrate" {
		if deps.Migrate == nil {
			return fmt.Errorf("%w: migrate is not available", ErrUsage)
		}
		if err := deps.Migrate(ctx); err != nil {
			return err
		}
		fmt.Fprintln(deps.Stdout, "schema up to date")
		return nil
	}

	if opts.tenant <= 0 {
		return fmt.Errorf("%w: -tenant is required", ErrUsage)
	}
	out := renderer{w: deps.Stdout, format: opts.format}

	switch command {
	case "seed":
		if deps.Seeder == nil {
			return fmt.Errorf("%w: seed is not available", ErrUsage)
		}
		result, err := deps.Seeder.Seed(ctx, opts.tenant)
		if err != nil {
			return err
		}
		return out.seed(result)
	case "integrity":
		if deps.Integrity == nil {
			return fmt.Errorf("%w: integrity is not available", ErrUsage)
		}
		issues, err := deps.Integrity.CheckIntegrity(ctx, opts.tenant)
		if err != nil {
			return err
		}
		if err := out.integrity(issues); err != nil {
			return err
		}
		if len(issues) > 0 {
			return errIntegrity
		}
		return nil
	}

	if deps.Reports == nil {
		return fmt.Errorf("%w: reports are not available", ErrUsage)
	}
	switch command {
	case "trial-balance":
		asOf, err := dateOr(opts.asOf, deps.Now())
		if err != nil {
			return err
		}
		tb, err := deps.Reports.TrialBalance(ctx, opts.tenant, asOf)
		if err != nil {
			return err
		}
		return out.trialBalance(tb)
	case "balance-sheet":
		asOf, err := dateOr(opts.asOf, deps.Now())
		if err != nil {
			return err
		}
		bs, err := deps.Reports.BalanceSheet(ctx, opts.tenant, asOf)
		if err != nil {
			return err
		}
		return out.balanceSheet(bs)
	case "dashboard":
		d, err := deps.Reports.Dashboard(ctx, opts.tenant)
		if err != nil {
			return err
		}
		return out.dashboard(d)
	case "income-vs-expense":
		asOf, err := dateOr(opts.asOf, deps.Now())
		if err != nil {
			return err
		}
		ive, err := deps.Reports.IncomeVsExpense(ctx, opts.tenant, asOf)
		if err != nil {
			return err
		}
		return out.incomeVsExpense(ive)
	case "expense-categories":
		asOf, err := dateOr(opts.asOf, deps.Now())
		if err != nil {
			return err
		}
		b, err := deps.Reports.ExpensesByCategory(ctx, opts.tenant, asOf)
		if err != nil {
			return err
		}
		return out.expenseBreakdown(b)
	}

	start, end, err := period(opts)
	if err != nil {
		return err
	}
	switch command {
	case "general-ledger":
		if opts.account <= 0 {
			return fmt.Errorf("%w: -account is required", ErrUsage)
		}
		gl, err := deps.Reports.GeneralLedger(ctx, opts.tenant, opts.account, start, end)
		if err != nil {
			return err
		}
		return out.generalLedger(gl)
	case "profit-loss":
		if opts.basis == "documents" {
			summary, err := deps.Reports.ProfitLoss(ctx, opts.tenant, start, end)
			if err != nil {
				return err
			}
			return out.profitLossSummary(summary)
		}
		pl, err := deps.Reports.LedgerProfitLoss(ctx, opts.tenant, start, end)
		if err != nil {
			return err
		}
		return out.profitLoss(pl)
	case "cash-flow":
		cf, err := deps.Reports.CashFlow(ctx, opts.tenant, start, end)
		if err != nil {
			return err
		}
		return out.cashFlow(cf)
	}
	return fmt.Errorf("%w: unknown command %q", ErrUsage, command)
}

func dateOr(raw string, fallback time.Time) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		y, m, d := fallback.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q (expected YYYY-MM-DD)", ErrUsage, raw)
	}
	return t, nil
}

func period(opts options) (time.Time, time.Time, error) {
	if opts.from == "" || opts.to == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: -from and -to are required", ErrUsage)
	}
	start, err := dateOr(opts.from, time.Time{})
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := dateOr(opts.to, time.Time{})
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
