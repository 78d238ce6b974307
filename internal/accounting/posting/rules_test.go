package posting

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/settings"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

const (
	receivable = int64(1200)
	cash       = int64(1000)
	income     = int64(4000)
	payable    = int64(2000)
	cogs       = int64(5000)
	vatPayable = int64(2100)
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func tenantSettings() settings.Settings {
	cfg := settings.Empty(1)
	cfg.DefaultReceivable = settings.Account(receivable)
	cfg.DefaultSalesIncome = settings.Account(income)
	cfg.DefaultPayable = settings.Account(payable)
	cfg.DefaultCOGS = settings.Account(cogs)
	cfg.DefaultCash = settings.Account(cash)
	cfg.TaxRates[0] = d("0.10")
	return cfg
}

func amounts(lines []journals.PostingLineInput) map[string]string {
	out := map[string]string{}
	for _, l := range lines {
		key := string(l.Side) + ":" + decimal.NewFromInt(l.AccountID).String()
		out[key] = l.Amount.StringFixed(2)
	}
	return out
}

func balanced(t *testing.T, lines []journals.PostingLineInput) {
	t.Helper()
	debit, credit := decimal.Zero, decimal.Zero
	for _, l := range lines {
		if l.Side == accounts.SideDebit {
			debit = debit.Add(l.Amount)
		} else {
			credit = credit.Add(l.Amount)
		}
	}
	require.True(t, debit.Equal(credit), "debit %s credit %s", debit, credit)
}

func TestComputeTotalsSingleSlot(t *testing.T) {
	product := int64(9)
	flags := map[int64][settings.TaxSlots]bool{product: {true, false, false, false}}
	totals := ComputeTotals([]Item{{ProductID: &product, Quantity: d("2"), UnitPrice: d("50")}}, flags, tenantSettings().TaxRates)

	require.Equal(t, "100.00", totals.Subtotal.StringFixed(2))
	require.Equal(t, "10.00", totals.Taxes[0].StringFixed(2))
	require.Equal(t, "110.00", totals.GrandTotal.StringFixed(2))
}

func TestComputeTotalsRoundsPerLine(t *testing.T) {
	product := int64(9)
	untaxed := int64(10)
	flags := map[int64][settings.TaxSlots]bool{product: {true, true, false, false}}
	rates := [settings.TaxSlots]decimal.Decimal{d("0.075"), d("0.05"), decimal.Zero, decimal.Zero}
	items := []Item{
		{ProductID: &product, Quantity: d("1"), UnitPrice: d("0.99")},
		{ProductID: &product, Quantity: d("1"), UnitPrice: d("0.99")},
		{ProductID: &untaxed, Quantity: d("3"), UnitPrice: d("1.00")},
		{Quantity: d("1"), UnitPrice: d("5")},
	}
	totals := ComputeTotals(items, flags, rates)

	// 0.99 × 0.075 = 0.07425 → 0.07 per line
	require.Equal(t, "0.14", totals.Taxes[0].StringFixed(2))
	// 0.99 × 0.05 = 0.0495 → 0.05 per line
	require.Equal(t, "0.10", totals.Taxes[1].StringFixed(2))
	require.Equal(t, "9.98", totals.Subtotal.StringFixed(2))
	require.Equal(t, "10.22", totals.GrandTotal.StringFixed(2))
	require.Len(t, totals.LineTotals, 4)
}

func TestSaleCreditsTaxPayable(t *testing.T) {
	cfg := tenantSettings()
	cfg.TaxPayable[0] = settings.Account(vatPayable)
	totals := Totals{Subtotal: d("100"), Taxes: [4]decimal.Decimal{d("10")}, GrandTotal: d("110")}

	lines, err := Sale(cfg, totals)
	require.NoError(t, err)
	balanced(t, lines)
	require.Equal(t, map[string]string{
		"DEBIT:1200":  "110.00",
		"CREDIT:4000": "100.00",
		"CREDIT:2100": "10.00",
	}, amounts(lines))
}

func TestSaleFoldsUnassignedTaxIntoIncome(t *testing.T) {
	totals := Totals{Subtotal: d("100"), Taxes: [4]decimal.Decimal{d("10")}, GrandTotal: d("110")}
	lines, err := Sale(tenantSettings(), totals)
	require.NoError(t, err)
	balanced(t, lines)
	require.Equal(t, map[string]string{
		"DEBIT:1200":  "110.00",
		"CREDIT:4000": "110.00",
	}, amounts(lines))
}

func TestSaleMergesSlotsSharingAnAccount(t *testing.T) {
	cfg := tenantSettings()
	cfg.TaxPayable[0] = settings.Account(vatPayable)
	cfg.TaxPayable[2] = settings.Account(vatPayable)
	totals := Totals{Subtotal: d("200"), Taxes: [4]decimal.Decimal{d("20"), decimal.Zero, d("5")}, GrandTotal: d("225")}

	lines, err := Sale(cfg, totals)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	require.Equal(t, "25.00", amounts(lines)["CREDIT:2100"])
}

func TestMissingDefaultAccounts(t *testing.T) {
	empty := settings.Empty(1)
	amount := d("10")

	_, err := Sale(empty, Totals{Subtotal: amount, GrandTotal: amount})
	require.ErrorIs(t, err, shared.ErrMissingDefaultAccount)
	require.Contains(t, err.Error(), "accounts receivable")

	_, err = ExpenseRecorded(empty, 6000, amount)
	require.ErrorIs(t, err, shared.ErrMissingDefaultAccount)

	_, err = PaymentReceived(empty, nil, amount)
	require.ErrorIs(t, err, shared.ErrMissingDefaultAccount)

	_, err = BillRecorded(empty, settings.Account(6000), amount)
	require.ErrorIs(t, err, shared.ErrMissingDefaultAccount)
	require.Contains(t, err.Error(), "accounts payable")

	_, err = BillPaid(empty, amount)
	require.ErrorIs(t, err, shared.ErrMissingDefaultAccount)
}

func TestPaymentAndBillFallbacks(t *testing.T) {
	cfg := tenantSettings()

	lines, err := PaymentReceived(cfg, nil, d("40"))
	require.NoError(t, err)
	require.Equal(t, map[string]string{"DEBIT:1000": "40.00", "CREDIT:1200": "40.00"}, amounts(lines))

	lines, err = PaymentReceived(cfg, settings.Account(1010), d("40"))
	require.NoError(t, err)
	require.Equal(t, "40.00", amounts(lines)["DEBIT:1010"])

	lines, err = BillRecorded(cfg, nil, d("75"))
	require.NoError(t, err)
	require.Equal(t, map[string]string{"DEBIT:5000": "75.00", "CREDIT:2000": "75.00"}, amounts(lines))

	lines, err = BillPaid(cfg, d("75"))
	require.NoError(t, err)
	require.Equal(t, map[string]string{"DEBIT:2000": "75.00", "CREDIT:1000": "75.00"}, amounts(lines))

	lines, err = BankDeposit(cfg, nil, 3100, d("12.5"))
	require.NoError(t, err)
	require.Equal(t, map[string]string{"DEBIT:1000": "12.50", "CREDIT:3100": "12.50"}, amounts(lines))
}
