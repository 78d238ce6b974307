package products

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

type stubRepo struct {
	products map[int64]Product
}

func (r *stubRepo) Get(_ context.Context, tenantID, id int64) (Product, error) {
	p, ok := r.products[id]
	if !ok || p.TenantID != tenantID {
		return Product{}, shared.NotFound("product", id)
	}
	return p, nil
}

func (r *stubRepo) Create(_ context.Context, p Product) (Product, error) {
	p.ID = int64(len(r.products) + 1)
	r.products[p.ID] = p
	return p, nil
}

func (r *stubRepo) TaxFlags(_ context.Context, tenantID int64, ids []int64) (map[int64][4]bool, error) {
	out := make(map[int64][4]bool)
	for _, id := range ids {
		if p, ok := r.products[id]; ok && p.TenantID == tenantID {
			out[id] = p.TaxFlags
		}
	}
	return out, nil
}

func TestCreateValidates(t *testing.T) {
	svc := NewService(&stubRepo{products: map[int64]Product{}})
	ctx := context.Background()

	_, err := svc.Create(ctx, Product{Code: "W-1", Name: "Widget"})
	require.ErrorIs(t, err, shared.ErrUnauthorized)

	_, err = svc.Create(ctx, Product{TenantID: 3, Name: "Widget"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, Product{TenantID: 3, Code: "W-1", Name: "Widget", Price: decimal.NewFromInt(-1)})
	require.ErrorIs(t, err, shared.ErrValidation)

	p, err := svc.Create(ctx, Product{TenantID: 3, Code: "W-1", Name: "Widget", Price: decimal.NewFromInt(5), TaxFlags: [4]bool{true}})
	require.NoError(t, err)
	require.Equal(t, int64(1), p.ID)
}

func TestTaxFlagsAreTenantScoped(t *testing.T) {
	repo := &stubRepo{products: map[int64]Product{
		1: {ID: 1, TenantID: 3, TaxFlags: [4]bool{true, false, true, false}},
		2: {ID: 2, TenantID: 4, TaxFlags: [4]bool{true}},
	}}
	svc := NewService(repo)

	flags, err := svc.TaxFlags(context.Background(), 3, []int64{1, 2})
	require.NoError(t, err)
	require.Equal(t, map[int64][4]bool{1: {true, false, true, false}}, flags)

	_, err = svc.TaxFlags(context.Background(), 0, []int64{1})
	require.ErrorIs(t, err, shared.ErrUnauthorized)

	_, err = svc.Get(context.Background(), 4, 1)
	require.ErrorIs(t, err, shared.ErrDocumentNotFound)
}
