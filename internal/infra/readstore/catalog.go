package readstore

import (
	"context"

	"keymint/internal/infra"
	"keymint/internal/infra/db"
	"keymint/internal/pkg/pgconv"
	"keymint/internal/usecase/shared"

	"github.com/google/uuid"
)

type CatalogReadStore struct {
	db db.DBTX
}

func NewCatalogReadStore(db db.DBTX) *CatalogReadStore {
	return &CatalogReadStore{db: db}
}

const tierByIDSQL = `
SELECT t.id, t.product_id, p.name AS product_name, t.name, t.duration_days, t.unit_price_cents, t.stock_count
FROM pricing_tiers t
JOIN products p ON p.id = t.product_id
WHERE t.id = $1`

func (r *CatalogReadStore) TierByID(ctx context.Context, id uuid.UUID) (*shared.TierSnapshot, error) {
	var ts shared.TierSnapshot
	err := r.db.QueryRow(ctx, tierByIDSQL, id).Scan(
		&ts.ID, &ts.ProductID, &ts.ProductName, &ts.TierName,
		&ts.DurationDays, &ts.UnitPriceCents, &ts.StockCount,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("pricing tier not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find pricing tier", err)
	}
	return &ts, nil
}
