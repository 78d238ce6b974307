package cli

import (
	"context"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/settings"
)

// AccountsPort creates and lists chart of accounts entries.
type AccountsPort interface {
	CreateAccount(ctx context.Context, tenantID int64, in accounts.AccountInput) (accounts.Account, error)
	ListAccounts(ctx context.Context, tenantID int64) ([]accounts.Account, error)
}

// SettingsPort reads and stores tenant configuration.
type SettingsPort interface {
	Get(ctx context.Context, tenantID int64) (settings.Settings, error)
	Upsert(ctx context.Context, in settings.Settings) (settings.Settings, error)
}

// SeedResult summarises a seed run.
type SeedResult struct {
	TenantID int64 `json:"tenant_id"`
	Created  int   `json:"created"`
	Existing int   `json:"existing"`
}

type starterAccount struct {
	number, name string
	kind         accounts.AccountType
	assign       func(*settings.Settings, int64)
}

var starterChart = []starterAccount{
	{"1000", "Cash", accounts.AccountTypeAsset, func(s *settings.Settings, id int64) { s.DefaultCash = fill(s.DefaultCash, id) }},
	{"1010", "Bank", accounts.AccountTypeAsset, nil},
	{"1100", "Accounts Receivable", accounts.AccountTypeAsset, func(s *settings.Settings, id int64) { s.DefaultReceivable = fill(s.DefaultReceivable, id) }},
	{"2000", "Accounts Payable", accounts.AccountTypeLiability, func(s *settings.Settings, id int64) { s.DefaultPayable = fill(s.DefaultPayable, id) }},
	{"2100", "Sales Tax Payable", accounts.AccountTypeLiability, func(s *settings.Settings, id int64) { s.TaxPayable[0] = fill(s.TaxPayable[0], id) }},
	{"3000", "Owner's Equity", accounts.AccountTypeEquity, nil},
	{"4000", "Sales Income", accounts.AccountTypeIncome, func(s *settings.Settings, id int64) { s.DefaultSalesIncome = fill(s.DefaultSalesIncome, id) }},
	{"4900", "Other Income", accounts.AccountTypeIncome, nil},
	{"5000", "Cost of Goods Sold", accounts.AccountTypeExpense, func(s *settings.Settings, id int64) { s.DefaultCOGS = fill(s.DefaultCOGS, id) }},
	{"6000", "Operating Expenses", accounts.AccountTypeExpense, nil},
}

func fill(current *int64, id int64) *int64 {
	if current != nil && *current != 0 {
		return current
	}
	return settings.Account(id)
}

// Seeder installs a starter chart of accounts and points unset defaults at it.
// Existing accounts and configured defaults are left alone.
type Seeder struct {
	accounts AccountsPort
	settings SettingsPort
}

func NewSeeder(accounts AccountsPort, settings SettingsPort) *Seeder {
	return &Seeder{accounts: accounts, settings: settings}
}

func (s *Seeder) Seed(ctx context.Context, tenantID int64) (SeedResult, error) {
	res := SeedResult{TenantID: tenantID}
	existing, err := s.accounts.ListAccounts(ctx, tenantID)
	if err != nil {
		return res, err
	}
	byNumber := make(map[string]int64, len(existing))
	for _, a := range existing {
		byNumber[a.Number] = a.ID
	}
	cfg, err := s.settings.Get(ctx, tenantID)
	if err != nil {
		return res, err
	}
	cfg.TenantID = tenantID
	for _, sa := range starterChart {
		id, ok := byNumber[sa.number]
		if ok {
			res.Existing++
		} else {
			created, err := s.accounts.CreateAccount(ctx, tenantID, accounts.AccountInput{
				Number:   sa.number,
				Name:     sa.name,
				Type:     sa.kind,
				IsActive: true,
			})
			if err != nil {
				return res, err
			}
			id = created.ID
			res.Created++
		}
		if sa.assign != nil {
			sa.assign(&cfg, id)
		}
	}
	if _, err := s.settings.Upsert(ctx, cfg); err != nil {
		return res, err
	}
	return res, nil
}
