package accounts

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// Service manages the chart of accounts for a tenant.
type Service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService constructs the registry service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// CreateAccount registers a new account. Account numbers are unique per tenant.
func (s *Service) CreateAccount(ctx context.Context, tenantID int64, in AccountInput) (Account, error) {
	if tenantID == 0 {
		return Account{}, shared.ErrUnauthorized
	}
	in.Number = strings.TrimSpace(in.Number)
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return Account{}, shared.Invalid("account: %v", err)
	}
	t, ok := ParseAccountType(string(in.Type))
	if !ok {
		return Account{}, shared.Invalid("account: unknown type %q", in.Type)
	}
	in.Type = t
	return s.repo.Create(ctx, tenantID, in)
}

// GetAccount loads one account scoped to the tenant.
func (s *Service) GetAccount(ctx context.Context, tenantID, id int64) (Account, error) {
	if tenantID == 0 {
		return Account{}, shared.ErrUnauthorized
	}
	return s.repo.Get(ctx, tenantID, id)
}

// ListAccounts returns the tenant's chart ordered by number.
func (s *Service) ListAccounts(ctx context.Context, tenantID int64) ([]Account, error) {
	if tenantID == 0 {
		return nil, shared.ErrUnauthorized
	}
	return s.repo.List(ctx, tenantID)
}

// UpdateAccount changes descriptive fields; the type cannot change.
func (s *Service) UpdateAccount(ctx context.Context, tenantID, id int64, in AccountUpdate) (Account, error) {
	if tenantID == 0 {
		return Account{}, shared.ErrUnauthorized
	}
	in.Number = strings.TrimSpace(in.Number)
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return Account{}, shared.Invalid("account: %v", err)
	}
	return s.repo.Update(ctx, tenantID, id, in)
}

// DeleteAccount removes an account that no journal line references.
func (s *Service) DeleteAccount(ctx context.Context, tenantID, id int64) error {
	if tenantID == 0 {
		return shared.ErrUnauthorized
	}
	used, err := s.repo.HasLines(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if used {
		return shared.ErrAccountInUse
	}
	return s.repo.Delete(ctx, tenantID, id)
}
