package posting

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/settings"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// Item is one invoice or bill line as seen by the tax computation.
type Item struct {
	ProductID *int64
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// Totals are the document amounts derived from its items.
type Totals struct {
	// LineTotals holds quantity × unit price per item, in item order.
	LineTotals []decimal.Decimal
	Subtotal   decimal.Decimal
	Taxes      [settings.TaxSlots]decimal.Decimal
	TaxTotal   decimal.Decimal
	GrandTotal decimal.Decimal
}

// ComputeTotals applies flat per-slot rates to every item whose product has the
// slot flag set. Each line's tax is rounded to cents before it is summed.
func ComputeTotals(items []Item, flags map[int64][settings.TaxSlots]bool, rates [settings.TaxSlots]decimal.Decimal) Totals {
	t := Totals{
		LineTotals: make([]decimal.Decimal, len(items)),
		Subtotal:   decimal.Zero,
		TaxTotal:   decimal.Zero,
	}
	for slot := range t.Taxes {
		t.Taxes[slot] = decimal.Zero
	}
	for i, item := range items {
		line := shared.Cents(item.Quantity.Mul(item.UnitPrice))
		t.LineTotals[i] = line
		t.Subtotal = t.Subtotal.Add(line)
		if item.ProductID == nil {
			continue
		}
		applies := flags[*item.ProductID]
		for slot := range rates {
			if !applies[slot] {
				continue
			}
			t.Taxes[slot] = t.Taxes[slot].Add(shared.Cents(line.Mul(rates[slot])))
		}
	}
	for _, tax := range t.Taxes {
		t.TaxTotal = t.TaxTotal.Add(tax)
	}
	t.GrandTotal = t.Subtotal.Add(t.TaxTotal)
	return t
}
