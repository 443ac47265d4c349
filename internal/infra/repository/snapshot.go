package repository

import (
	"context"

	"keymint/internal/domain/order"
	"keymint/internal/infra"
	"keymint/internal/infra/db"
	"keymint/internal/pkg/pgconv"

	"github.com/google/uuid"
)

type KeySnapshotRepository struct{}

func NewKeySnapshotRepository() *KeySnapshotRepository {
	return &KeySnapshotRepository{}
}

const createSnapshotSQL = `
INSERT INTO key_snapshots
    (id, order_id, product_key_id, product_name, tier_name, duration_days, unit_price_cents, secret, expires_at, void, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE, $10)`

func (r *KeySnapshotRepository) CreateBatch(ctx context.Context, tx db.DBTX, snapshots []*order.KeySnapshot) error {
	for _, s := range snapshots {
		_, err := tx.Exec(ctx, createSnapshotSQL,
			s.ID, s.OrderID, s.KeyID, s.ProductName,
			s.Pricing.TierName, s.Pricing.DurationDays, s.Pricing.UnitPriceCents,
			s.Secret, pgconv.TimePtrToPgtype(s.ExpiresAt), s.CreatedAt)
		if err != nil {
			return infra.WrapRepoErr("failed to create key snapshot", err)
		}
	}
	return nil
}

// Snapshots are never deleted; the compensation path marks them void so
// the order history still shows what was allocated and reversed.
const voidSnapshotsSQL = `
UPDATE key_snapshots SET void = TRUE WHERE order_id = $1`

func (r *KeySnapshotRepository) VoidByOrder(ctx context.Context, tx db.DBTX, orderID uuid.UUID) error {
	_, err := tx.Exec(ctx, voidSnapshotsSQL, orderID)
	if err != nil {
		return infra.WrapRepoErr("failed to void key snapshots", err)
	}
	return nil
}
