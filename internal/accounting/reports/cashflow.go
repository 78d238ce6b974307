package reports

import (
	"time"

	"github.com/shopspring/decimal"
)

// OperatingActivities is the only section of the direct-method statement.
type OperatingActivities struct {
	Inflows  decimal.Decimal `json:"inflows"`
	Outflows decimal.Decimal `json:"outflows"`
	Net      decimal.Decimal `json:"net"`
}

// CashFlow reports payments received against expenses and paid bills.
type CashFlow struct {
	Start               time.Time           `json:"start"`
	End                 time.Time           `json:"end"`
	OperatingActivities OperatingActivities `json:"operating_activities"`
}

func buildCashFlow(start, end time.Time, inflows, expenses, bills decimal.Decimal) CashFlow {
	outflows := expenses.Add(bills)
	return CashFlow{
		Start: start,
		End:   end,
		OperatingActivities: OperatingActivities{
			Inflows:  inflows,
			Outflows: outflows,
			Net:      inflows.Sub(outflows),
		},
	}
}
