package readstore

import (
	"context"

	"keymint/internal/infra"
	"keymint/internal/infra/db"
	"keymint/internal/pkg/pgconv"
	"keymint/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type OrderReadStore struct {
	db db.DBTX
}

func NewOrderReadStore(db db.DBTX) *OrderReadStore {
	return &OrderReadStore{db: db}
}

const orderByIDSQL = `
SELECT id, purchaser_id, invoice_link, status, created_at, updated_at
FROM orders
WHERE id = $1`

const snapshotsByOrderSQL = `
SELECT id, product_name, tier_name, duration_days, unit_price_cents, secret, expires_at, void
FROM key_snapshots
WHERE order_id = $1
ORDER BY created_at, id`

func (r *OrderReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.OrderView, error) {
	var (
		view      queries.OrderView
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	err := r.db.QueryRow(ctx, orderByIDSQL, id).Scan(
		&view.ID, &view.PurchaserID, &view.InvoiceLink, &view.Status, &createdAt, &updatedAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("order not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find order by ID", err)
	}
	view.CreatedAt = pgconv.TimeFromPgtype(createdAt)
	view.UpdatedAt = pgconv.TimeFromPgtype(updatedAt)

	rows, err := r.db.Query(ctx, snapshotsByOrderSQL, id)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find key snapshots", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			snap      queries.KeySnapshotView
			expiresAt pgtype.Timestamptz
		)
		if err := rows.Scan(&snap.ID, &snap.ProductName, &snap.TierName, &snap.DurationDays,
			&snap.UnitPriceCents, &snap.Secret, &expiresAt, &snap.Void); err != nil {
			return nil, infra.WrapRepoErr("failed to scan key snapshot", err)
		}
		snap.ExpiresAt = pgconv.TimePtrFromPgtype(expiresAt)
		view.Keys = append(view.Keys, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read key snapshots", err)
	}

	return &view, nil
}

const ordersByPurchaserSQL = `
SELECT o.id, o.invoice_link, o.status,
       count(s.id) FILTER (WHERE NOT s.void) AS key_count,
       coalesce(sum(s.unit_price_cents) FILTER (WHERE NOT s.void), 0) AS total_cents,
       o.created_at
FROM orders o
LEFT JOIN key_snapshots s ON s.order_id = o.id
WHERE o.purchaser_id = $1
GROUP BY o.id
ORDER BY o.created_at DESC, o.id DESC`

func (r *OrderReadStore) FindByPurchaser(ctx context.Context, purchaserID uuid.UUID) ([]*queries.OrderListItem, error) {
	rows, err := r.db.Query(ctx, ordersByPurchaserSQL, purchaserID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find orders by purchaser", err)
	}
	defer rows.Close()

	var result []*queries.OrderListItem
	for rows.Next() {
		var (
			item      queries.OrderListItem
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&item.ID, &item.InvoiceLink, &item.Status, &item.KeyCount, &item.TotalCents, &createdAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan order list item", err)
		}
		item.CreatedAt = pgconv.TimeFromPgtype(createdAt)
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read orders", err)
	}

	return result, nil
}
