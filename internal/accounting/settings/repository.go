package settings

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

type Repository interface {
	Get(ctx context.Context, tenantID int64) (Settings, error)
	Upsert(ctx context.Context, s Settings) (Settings, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const settingsColumns = `tenant_id, company_name, default_receivable, default_sales_income, default_payable, default_cogs, default_cash,
tax_rate_1, tax_rate_2, tax_rate_3, tax_rate_4, tax_payable_1, tax_payable_2, tax_payable_3, tax_payable_4,
fiscal_year_start, base_currency, updated_at`

func scan(row pgx.Row) (Settings, error) {
	var s Settings
	err := row.Scan(&s.TenantID, &s.CompanyName, &s.DefaultReceivable, &s.DefaultSalesIncome, &s.DefaultPayable, &s.DefaultCOGS, &s.DefaultCash,
		&s.TaxRates[0], &s.TaxRates[1], &s.TaxRates[2], &s.TaxRates[3],
		&s.TaxPayable[0], &s.TaxPayable[1], &s.TaxPayable[2], &s.TaxPayable[3],
		&s.FiscalYearStart, &s.BaseCurrency, &s.UpdatedAt)
	return s, err
}

// Get returns the tenant's settings. A tenant without a row gets Empty settings.
func (r *repository) Get(ctx context.Context, tenantID int64) (Settings, error) {
	s, err := scan(r.db.QueryRow(ctx, `SELECT `+settingsColumns+` FROM tenant_settings WHERE tenant_id=$1`, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Empty(tenantID), nil
	}
	return s, err
}

func (r *repository) Upsert(ctx context.Context, s Settings) (Settings, error) {
	out, err := scan(r.db.QueryRow(ctx, `INSERT INTO tenant_settings (tenant_id, company_name, default_receivable, default_sales_income, default_payable, default_cogs, default_cash,
tax_rate_1, tax_rate_2, tax_rate_3, tax_rate_4, tax_payable_1, tax_payable_2, tax_payable_3, tax_payable_4, fiscal_year_start, base_currency)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
ON CONFLICT (tenant_id) DO UPDATE SET
company_name=EXCLUDED.company_name, default_receivable=EXCLUDED.default_receivable, default_sales_income=EXCLUDED.default_sales_income,
default_payable=EXCLUDED.default_payable, default_cogs=EXCLUDED.default_cogs, default_cash=EXCLUDED.default_cash,
tax_rate_1=EXCLUDED.tax_rate_1, tax_rate_2=EXCLUDED.tax_rate_2, tax_rate_3=EXCLUDED.tax_rate_3, tax_rate_4=EXCLUDED.tax_rate_4,
tax_payable_1=EXCLUDED.tax_payable_1, tax_payable_2=EXCLUDED.tax_payable_2, tax_payable_3=EXCLUDED.tax_payable_3, tax_payable_4=EXCLUDED.tax_payable_4,
fiscal_year_start=EXCLUDED.fiscal_year_start, base_currency=EXCLUDED.base_currency, updated_at=NOW()
RETURNING `+settingsColumns,
		s.TenantID, s.CompanyName, s.DefaultReceivable, s.DefaultSalesIncome, s.DefaultPayable, s.DefaultCOGS, s.DefaultCash,
		s.TaxRates[0], s.TaxRates[1], s.TaxRates[2], s.TaxRates[3],
		s.TaxPayable[0], s.TaxPayable[1], s.TaxPayable[2], s.TaxPayable[3],
		s.FiscalYearStart, s.BaseCurrency))
	if err != nil && db.IsForeignKeyViolation(err) {
		return Settings{}, shared.ErrAccountNotFound
	}
	return out, err
}
