package repository

import (
	"context"
	"time"

	"keymint/internal/domain/key"
	"keymint/internal/infra"
	"keymint/internal/infra/db"
	"keymint/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type ProductKeyRepository struct{}

func NewProductKeyRepository() *ProductKeyRepository {
	return &ProductKeyRepository{}
}

// Candidates are locked with SKIP LOCKED so two concurrent checkouts
// sample disjoint keys instead of blocking or failing on the same rows.
// The exclusion list keeps a later cart line from re-claiming keys a
// previous line took in this transaction.
const reserveCandidatesSQL = `
SELECT id, product_id, pricing_tier_id, secret, reserved, owner_id, hardware_id, expires_at
FROM product_keys
WHERE pricing_tier_id = $1
  AND reserved = FALSE
  AND NOT (id = ANY($3))
ORDER BY created_at
LIMIT $2
FOR UPDATE SKIP LOCKED`

const markReservedSQL = `
UPDATE product_keys
SET reserved = TRUE, expires_at = $2, updated_at = now()
WHERE id = ANY($1)`

func (r *ProductKeyRepository) ReserveForTier(
	ctx context.Context,
	tx db.DBTX,
	tierID uuid.UUID,
	quantity int32,
	exclude []uuid.UUID,
	expiresAt *time.Time,
) ([]*key.ProductKey, error) {
	if exclude == nil {
		exclude = []uuid.UUID{}
	}

	rows, err := tx.Query(ctx, reserveCandidatesSQL, tierID, quantity, exclude)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to select reservation candidates", err)
	}
	keys, err := scanKeys(rows)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(keys))
	for _, k := range keys {
		if err := k.Reserve(expiresAt); err != nil {
			return nil, infra.WrapRepoErr("failed to reserve key", err, infra.KindConflict)
		}
		ids = append(ids, k.ID())
	}
	if len(ids) == 0 {
		return keys, nil
	}

	if _, err := tx.Exec(ctx, markReservedSQL, ids, pgconv.TimePtrToPgtype(expiresAt)); err != nil {
		return nil, infra.WrapRepoErr("failed to reserve keys", err)
	}
	return keys, nil
}

const findKeysForUpdateSQL = `
SELECT id, product_id, pricing_tier_id, secret, reserved, owner_id, hardware_id, expires_at
FROM product_keys
WHERE id = ANY($1)
FOR UPDATE`

func (r *ProductKeyRepository) FindForUpdate(ctx context.Context, tx db.DBTX, keyIDs []uuid.UUID) ([]*key.ProductKey, error) {
	rows, err := tx.Query(ctx, findKeysForUpdateSQL, keyIDs)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to lock keys", err)
	}
	return scanKeys(rows)
}

const assignOwnerSQL = `
UPDATE product_keys
SET owner_id = $2, updated_at = now()
WHERE id = ANY($1) AND reserved = TRUE AND owner_id IS NULL`

func (r *ProductKeyRepository) AssignOwner(ctx context.Context, tx db.DBTX, keyIDs []uuid.UUID, ownerID uuid.UUID) error {
	if _, err := tx.Exec(ctx, assignOwnerSQL, keyIDs, ownerID); err != nil {
		return infra.WrapRepoErr("failed to assign key owner", err)
	}
	return nil
}

// Sold keys never return to the pool; the owner guard restates the
// invariant the caller already enforced on the locked entities.
const releaseKeysSQL = `
UPDATE product_keys
SET reserved = FALSE, expires_at = NULL, updated_at = now()
WHERE id = ANY($1) AND owner_id IS NULL`

func (r *ProductKeyRepository) Release(ctx context.Context, tx db.DBTX, keyIDs []uuid.UUID) error {
	if _, err := tx.Exec(ctx, releaseKeysSQL, keyIDs); err != nil {
		return infra.WrapRepoErr("failed to release keys", err)
	}
	return nil
}

func scanKeys(rows pgx.Rows) ([]*key.ProductKey, error) {
	defer rows.Close()

	var keys []*key.ProductKey
	for rows.Next() {
		var (
			id        uuid.UUID
			productID uuid.UUID
			tierID    uuid.UUID
			secret    string
			reserved  bool
			ownerID   pgtype.UUID
			hwID      pgtype.Text
			expiresAt pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &productID, &tierID, &secret, &reserved, &ownerID, &hwID, &expiresAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan product key", err)
		}

		k, err := key.Reconstruct(
			id, productID, tierID, secret, reserved,
			pgconv.UUIDPtrFromPgtype(ownerID),
			pgconv.StringPtrFromPgtype(hwID),
			pgconv.TimePtrFromPgtype(expiresAt),
		)
		if err != nil {
			return nil, infra.WrapRepoErr("corrupt product key row", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read product keys", err)
	}
	return keys, nil
}
