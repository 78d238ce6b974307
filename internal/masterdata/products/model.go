package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is an item sold on invoices. TaxFlags select which tenant tax slots apply.
type Product struct {
	ID        int64           `json:"id"`
	TenantID  int64           `json:"tenant_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	TaxFlags  [4]bool         `json:"tax_flags"`
	CreatedAt time.Time       `json:"created_at"`
}
