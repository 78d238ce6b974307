package products

import (
	"strings"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

func (s *Service) validate(p Product) error {
	if strings.TrimSpace(p.Code) == "" {
		return shared.Invalid("product code is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return shared.Invalid("product name is required")
	}
	if p.Price.IsNegative() {
		return shared.Invalid("product price cannot be negative")
	}
	return nil
}
