package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/ledger"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/reports"
)

type renderer struct {
	w      io.Writer
	format string
}

var printer = message.NewPrinter(language.English)

// money renders an amount with grouping, e.g. 1,234.50, from the decimal's
// exact digits.
func money(v decimal.Decimal) string {
	s := v.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return sign + b.String() + "." + frac
}

func (r renderer) table(fn func(tw *tabwriter.Writer)) error {
	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fn(tw)
	return tw.Flush()
}

func (r renderer) trialBalance(tb reports.TrialBalance) error {
	if r.format == "json" {
		return writeJSON(r.w, tb)
	}
	fmt.Fprintf(r.w, "Trial balance as of %s\n\n", tb.AsOf.Format(dateLayout))
	return r.table(func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "Account\tName\tDebit\tCredit\t")
		for _, g := range tb.Groups {
			for _, row := range g.Rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", row.Account.Number, row.Account.Name, money(row.DebitBalance), money(row.CreditBalance))
			}
			fmt.Fprintf(tw, "%s\t\t%s\t%s\t\n", g.Key, money(g.Debit), money(g.Credit))
		}
		fmt.Fprintf(tw, "Total\t\t%s\t%s\t\n", money(tb.TotalDebit), money(tb.TotalCredit))
		if !tb.Balanced {
			fmt.Fprintln(tw, "OUT OF BALANCE\t\t\t\t")
		}
	})
}

func (r renderer) generalLedger(gl ledger.GeneralLedger) error {
	if r.format == "json" {
		return writeJSON(r.w, gl)
	}
	fmt.Fprintf(r.w, "General ledger %s, %s to %s\n\n", gl.Account.Label(), gl.Start.Format(dateLayout), gl.End.Format(dateLayout))
	return r.table(func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "Date\tEntry\tDescription\tDebit\tCredit\tBalance\t")
		fmt.Fprintf(tw, "\t\tOpening balance\t\t\t%s\t\n", money(gl.OpeningBalance))
		for _, tx := range gl.Transactions {
			debit, credit := "", ""
			if tx.Side == accounts.SideDebit {
				debit = money(tx.Amount)
			} else {
				credit = money(tx.Amount)
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t\n", tx.Date.Format(dateLayout), tx.EntryID, tx.Description, debit, credit, money(tx.RunningBalance))
		}
		fmt.Fprintf(tw, "\t\tClosing balance\t\t\t%s\t\n", money(gl.ClosingBalance))
	})
}

func (r renderer) balanceSheet(bs reports.BalanceSheet) error {
	if r.format == "json" {
		return writeJSON(r.w, bs)
	}
	fmt.Fprintf(r.w, "Balance sheet as of %s\n\n", bs.AsOf.Format(dateLayout))
	return r.table(func(tw *tabwriter.Writer) {
		for _, section := range []reports.BalanceSheetSection{bs.Assets, bs.Liabilities, bs.Equity} {
			fmt.Fprintf(tw, "%s\t\t\t\n", section.Label)
			for _, a := range section.Accounts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t\n", a.Number, a.Name, money(a.Balance))
			}
			fmt.Fprintf(tw, "Total %s\t\t%s\t\n", section.Label, money(section.Total))
		}
		fmt.Fprintf(tw, "Total assets\t\t%s\t\n", money(bs.TotalAssets))
		fmt.Fprintf(tw, "Total liabilities and equity\t\t%s\t\n", money(bs.TotalLiabilitiesAndEquity))
		if !bs.Balanced {
			fmt.Fprintf(tw, "Difference\t\t%s\t\n", money(bs.Difference))
		}
	})
}

func (r renderer) profitLoss(pl reports.ProfitAndLoss) error {
	if r.format == "json" {
		return writeJSON(r.w, pl)
	}
	fmt.Fprintf(r.w, "Profit and loss, %s to %s\n\n", pl.Start.Format(dateLayout), pl.End.Format(dateLayout))
	return r.table(func(tw *tabwriter.Writer) {
		for _, section := range []reports.ProfitAndLossSection{pl.Revenue, pl.Expense} {
			fmt.Fprintf(tw, "%s\t\t\t\n", section.Label)
			for _, a := range section.Accounts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t\n", a.Number, a.Name, money(a.Amount))
			}
			fmt.Fprintf(tw, "Total %s\t\t%s\t\n", section.Label, money(section.Total))
		}
		fmt.Fprintf(tw, "Net income\t\t%s\t\n", money(pl.NetIncome))
	})
}

func (r renderer) profitLossSummary(pl reports.ProfitLoss) error {
	if r.format == "json" {
		return writeJSON(r.w, pl)
	}
	fmt.Fprintf(r.w, "Profit and loss (documents), %s to %s\n\n", pl.Start.Format(dateLayout), pl.End.Format(dateLayout))
	return r.table(func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "Income\t%s\t\n", money(pl.TotalIncome))
		fmt.Fprintf(tw, "Expenses\t%s\t\n", money(pl.TotalExpenses))
		fmt.Fprintf(tw, "Net profit\t%s\t\n", money(pl.NetProfit))
	})
}

func (r renderer) cashFlow(cf reports.CashFlow) error {
	if r.format == "json" {
		return writeJSON(r.w, cf)
	}
	fmt.Fprintf(r.w, "Cash flow, %s to %s\n\n", cf.Start.Format(dateLayout), cf.End.Format(dateLayout))
	return r.table(func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "Inflows\t%s\t\n", money(cf.OperatingActivities.Inflows))
		fmt.Fprintf(tw, "Outflows\t%s\t\n", money(cf.OperatingActivities.Outflows))
		fmt.Fprintf(tw, "Net operating cash\t%s\t\n", money(cf.OperatingActivities.Net))
	})
}

func (r renderer) dashboard(d reports.Dashboard) error {
	if r.format == "json" {
		return writeJSON(r.w, d)
	}
	return r.table(func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "Revenue collected\t%s\t\n", money(d.TotalRevenue))
		fmt.Fprintf(tw, "Outstanding receivables\t%s\t\n", money(d.TotalReceivable))
		fmt.Fprintf(tw, "Clients\t%s\t\n", printer.Sprintf("%d", d.ClientCount))
		fmt.Fprintf(tw, "Overdue invoices\t%s\t\n", printer.Sprintf("%d", d.OverdueCount))
	})
}

func (r renderer) incomeVsExpense(ive reports.IncomeVsExpense) error {
	if r.format == "json" {
		return writeJSON(r.w, ive)
	}
	fmt.Fprintf(r.w, "Income vs expense, %d months to %s\n\n", len(ive.Months), ive.AsOf.Format(dateLayout))
	return r.table(func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "Month\tIncome\tExpense\tNet\t")
		for _, m := range ive.Months {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", m.Label, money(m.Income), money(m.Expense), money(m.Income.Sub(m.Expense)))
		}
	})
}

func (r renderer) expenseBreakdown(b reports.ExpenseBreakdown) error {
	if r.format == "json" {
		return writeJSON(r.w, b)
	}
	fmt.Fprintf(r.w, "Expenses by category, %s to %s\n\n", b.Start.Format(dateLayout), b.End.Format(dateLayout))
	return r.table(func(tw *tabwriter.Writer) {
		for _, c := range b.Categories {
			fmt.Fprintf(tw, "%s\t%s\t\n", c.Category, money(c.Total))
		}
		fmt.Fprintf(tw, "Total\t%s\t\n", money(b.Total))
	})
}

func (r renderer) integrity(issues []journals.IntegrityIssue) error {
	if r.format == "json" {
		if issues == nil {
			issues = []journals.IntegrityIssue{}
		}
		return writeJSON(r.w, issues)
	}
	if len(issues) == 0 {
		fmt.Fprintln(r.w, "all entries balance")
		return nil
	}
	return r.table(func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "Entry\tDate\tLines\tDebit\tCredit\t")
		for _, i := range issues {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t\n", i.EntryID, i.Date.Format(dateLayout), i.Lines, money(i.Debit), money(i.Credit))
		}
	})
}

func (r renderer) seed(res SeedResult) error {
	if r.format == "json" {
		return writeJSON(r.w, res)
	}
	fmt.Fprintf(r.w, "tenant %d: %d accounts created, %d already present, settings saved\n", res.TenantID, res.Created, res.Existing)
	return nil
}
