package reports

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TrendMonths is the length of the income vs expense series.
const TrendMonths = 6

// UncategorizedLabel names expenses saved without a category.
const UncategorizedLabel = "Uncategorized"

// Dashboard summarises receivables for a tenant.
type Dashboard struct {
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	TotalReceivable decimal.Decimal `json:"total_receivable"`
	ClientCount     int64           `json:"client_count"`
	OverdueCount    int64           `json:"overdue_count"`
}

// MonthTotal is a document sum for the calendar month starting at Month.
type MonthTotal struct {
	Month time.Time
	Total decimal.Decimal
}

// MonthPoint is one month of the income vs expense series.
type MonthPoint struct {
	Month   time.Time       `json:"month"`
	Label   string          `json:"label"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// IncomeVsExpense compares payments received with expenses month by month.
type IncomeVsExpense struct {
	AsOf   time.Time    `json:"as_of"`
	Months []MonthPoint `json:"months"`
}

// CategoryTotal is the expense sum of one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// ExpenseBreakdown splits expenses in [Start, End] by category, largest first.
type ExpenseBreakdown struct {
	Start      time.Time       `json:"start"`
	End        time.Time       `json:"end"`
	Categories []CategoryTotal `json:"categories"`
	Total      decimal.Decimal `json:"total"`
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// trendWindow returns the first day of the oldest month in the series ending at asOf.
func trendWindow(asOf time.Time) (time.Time, time.Time) {
	return monthStart(asOf).AddDate(0, -(TrendMonths - 1), 0), asOf
}

// categoryWindow covers the year ending at asOf, asOf included.
func categoryWindow(asOf time.Time) (time.Time, time.Time) {
	return asOf.AddDate(-1, 0, 1), asOf
}

// BuildIncomeVsExpense lays monthly sums onto the TrendMonths months ending at
// asOf. Months without documents show zero; totals outside the window are ignored.
func BuildIncomeVsExpense(asOf time.Time, income, expenses []MonthTotal) IncomeVsExpense {
	first, _ := trendWindow(asOf)
	out := IncomeVsExpense{AsOf: asOf, Months: make([]MonthPoint, TrendMonths)}
	index := make(map[time.Time]int, TrendMonths)
	for i := range out.Months {
		m := first.AddDate(0, i, 0)
		out.Months[i] = MonthPoint{Month: m, Label: m.Format("Jan 2006"), Income: decimal.Zero, Expense: decimal.Zero}
		index[m] = i
	}
	for _, t := range income {
		if i, ok := index[monthStart(t.Month)]; ok {
			out.Months[i].Income = out.Months[i].Income.Add(t.Total)
		}
	}
	for _, t := range expenses {
		if i, ok := index[monthStart(t.Month)]; ok {
			out.Months[i].Expense = out.Months[i].Expense.Add(t.Total)
		}
	}
	return out
}

// BuildExpenseBreakdown merges blank categories under UncategorizedLabel and
// orders by total descending, then by name.
func BuildExpenseBreakdown(start, end time.Time, rows []CategoryTotal) ExpenseBreakdown {
	sums := make(map[string]decimal.Decimal)
	for _, r := range rows {
		name := strings.TrimSpace(r.Category)
		if name == "" {
			name = UncategorizedLabel
		}
		if cur, ok := sums[name]; ok {
			sums[name] = cur.Add(r.Total)
		} else {
			sums[name] = r.Total
		}
	}
	out := ExpenseBreakdown{Start: start, End: end, Categories: []CategoryTotal{}, Total: decimal.Zero}
	for name, total := range sums {
		out.Categories = append(out.Categories, CategoryTotal{Category: name, Total: total})
		out.Total = out.Total.Add(total)
	}
	sort.Slice(out.Categories, func(i, j int) bool {
		a, b := out.Categories[i], out.Categories[j]
		if !a.Total.Equal(b.Total) {
			return a.Total.GreaterThan(b.Total)
		}
		return a.Category < b.Category
	})
	return out
}
