package products

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

type Repository interface {
	Get(ctx context.Context, tenantID, id int64) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	TaxFlags(ctx context.Context, tenantID int64, ids []int64) (map[int64][4]bool, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context, tenantID, id int64) (Product, error) {
	var p Product
	err := r.db.QueryRow(ctx, `SELECT id, tenant_id, code, name, price, tax_1, tax_2, tax_3, tax_4, created_at
FROM products WHERE id=$1 AND tenant_id=$2`, id, tenantID).
		Scan(&p.ID, &p.TenantID, &p.Code, &p.Name, &p.Price, &p.TaxFlags[0], &p.TaxFlags[1], &p.TaxFlags[2], &p.TaxFlags[3], &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.NotFound("product", id)
	}
	return p, err
}

func (r *repository) Create(ctx context.Context, p Product) (Product, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO products (tenant_id, code, name, price, tax_1, tax_2, tax_3, tax_4)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id, created_at`,
		p.TenantID, p.Code, p.Name, p.Price, p.TaxFlags[0], p.TaxFlags[1], p.TaxFlags[2], p.TaxFlags[3]).Scan(&p.ID, &p.CreatedAt)
	if db.IsUniqueViolation(err, "uq_products_tenant_code") {
		return Product{}, shared.Invalid("product code %q already exists", p.Code)
	}
	return p, err
}

// TaxFlags returns the flags of the tenant's products among ids. Unknown ids are absent.
func (r *repository) TaxFlags(ctx context.Context, tenantID int64, ids []int64) (map[int64][4]bool, error) {
	out := make(map[int64][4]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx, `SELECT id, tax_1, tax_2, tax_3, tax_4 FROM products WHERE tenant_id=$1 AND id = ANY($2)`, tenantID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var flags [4]bool
		if err := rows.Scan(&id, &flags[0], &flags[1], &flags[2], &flags[3]); err != nil {
			return nil, err
		}
		out[id] = flags
	}
	return out, rows.Err()
}
