package settings

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxSlots is the number of independent flat-rate taxes a tenant can configure.
const TaxSlots = 4

// Settings is the tenant configuration consumed by the posting rules.
type Settings struct {
	TenantID           int64
	CompanyName        string
	DefaultReceivable  *int64
	DefaultSalesIncome *int64
	DefaultPayable     *int64
	DefaultCOGS        *int64
	DefaultCash        *int64
	// TaxRates are fractions, 0.10 for ten percent.
	TaxRates        [TaxSlots]decimal.Decimal
	TaxPayable      [TaxSlots]*int64
	FiscalYearStart *time.Time
	BaseCurrency    string
	UpdatedAt       time.Time
}

// Empty returns the configuration of a tenant that never saved settings.
func Empty(tenantID int64) Settings {
	s := Settings{TenantID: tenantID, BaseCurrency: "USD"}
	for i := range s.TaxRates {
		s.TaxRates[i] = decimal.Zero
	}
	return s
}

// Account returns a pointer to an account id, for building settings in code.
func Account(id int64) *int64 {
	return &id
}
