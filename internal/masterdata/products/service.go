package products

import (
	"context"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, tenantID, id int64) (Product, error) {
	if tenantID == 0 {
		return Product{}, shared.ErrUnauthorized
	}
	if id <= 0 {
		return Product{}, shared.Invalid("invalid product ID")
	}
	return s.repo.Get(ctx, tenantID, id)
}

func (s *Service) Create(ctx context.Context, product Product) (Product, error) {
	if product.TenantID == 0 {
		return Product{}, shared.ErrUnauthorized
	}
	if err := s.validate(product); err != nil {
		return Product{}, err
	}
	return s.repo.Create(ctx, product)
}

// TaxFlags resolves the applicable tax slots per product id.
func (s *Service) TaxFlags(ctx context.Context, tenantID int64, ids []int64) (map[int64][4]bool, error) {
	if tenantID == 0 {
		return nil, shared.ErrUnauthorized
	}
	return s.repo.TaxFlags(ctx, tenantID, ids)
}
