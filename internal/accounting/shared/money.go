package shared

import "github.com/shopspring/decimal"

// PaymentTolerance is the slack allowed when matching payments to balances.
var PaymentTolerance = decimal.New(1, -2)

// Cents rounds an amount to two decimal places.
func Cents(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// Sum adds amounts.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
