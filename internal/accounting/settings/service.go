package settings

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// Service reads and writes tenant configuration.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get never fails for a tenant without settings; rules report the missing accounts instead.
func (s *Service) Get(ctx context.Context, tenantID int64) (Settings, error) {
	if tenantID == 0 {
		return Settings{}, shared.ErrUnauthorized
	}
	return s.repo.Get(ctx, tenantID)
}

// Upsert stores the configuration after checking tax rates lie in [0, 1].
func (s *Service) Upsert(ctx context.Context, in Settings) (Settings, error) {
	if in.TenantID == 0 {
		return Settings{}, shared.ErrUnauthorized
	}
	one := decimal.NewFromInt(1)
	for i, rate := range in.TaxRates {
		if rate.IsNegative() || rate.GreaterThan(one) {
			return Settings{}, shared.Invalid("settings: tax rate %d must be a fraction between 0 and 1", i+1)
		}
	}
	in.BaseCurrency = strings.ToUpper(strings.TrimSpace(in.BaseCurrency))
	if in.BaseCurrency == "" {
		in.BaseCurrency = "USD"
	}
	return s.repo.Upsert(ctx, in)
}
