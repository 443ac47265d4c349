package repository

import (
	"context"

	"keymint/internal/domain/order"
	"keymint/internal/infra"
	"keymint/internal/infra/db"
	"keymint/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type OrderRepository struct{}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{}
}

const createOrderSQL = `
INSERT INTO orders (id, purchaser_id, invoice_id, invoice_link, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

func (r *OrderRepository) Create(ctx context.Context, tx db.DBTX, o *order.Order) error {
	_, err := tx.Exec(ctx, createOrderSQL,
		o.ID(), o.PurchaserID(), o.InvoiceID(), o.InvoiceLink(), o.Status().String(), o.CreatedAt(), o.UpdatedAt())
	if err != nil {
		return infra.WrapRepoErr("failed to create order", err)
	}
	return nil
}

// The row lock serializes concurrent webhook deliveries on the same
// order: the loser blocks here, then observes the winner's terminal
// status and no-ops.
const findOrderForUpdateSQL = `
SELECT id, purchaser_id, invoice_id, invoice_link, status, created_at, updated_at
FROM orders
WHERE id = $1
FOR UPDATE`

func (r *OrderRepository) FindForUpdate(ctx context.Context, tx db.DBTX, id uuid.UUID) (*order.Order, error) {
	var (
		orderID     uuid.UUID
		purchaserID uuid.UUID
		invoiceID   string
		invoiceLink string
		rawStatus   string
		createdAt   pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
	)
	err := tx.QueryRow(ctx, findOrderForUpdateSQL, id).Scan(
		&orderID, &purchaserID, &invoiceID, &invoiceLink, &rawStatus, &createdAt, &updatedAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("order not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find order", err)
	}

	status := order.Status(rawStatus)
	if !status.IsValid() {
		return nil, infra.WrapRepoErr("invalid order status "+rawStatus, nil)
	}

	return order.Reconstruct(
		orderID, purchaserID,
		invoiceID, invoiceLink,
		status,
		pgconv.TimeFromPgtype(createdAt), pgconv.TimeFromPgtype(updatedAt),
	), nil
}

const updateOrderStatusSQL = `
UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`

func (r *OrderRepository) UpdateStatus(ctx context.Context, tx db.DBTX, o *order.Order) error {
	tag, err := tx.Exec(ctx, updateOrderStatusSQL, o.ID(), o.Status().String(), o.UpdatedAt())
	if err != nil {
		return infra.WrapRepoErr("failed to update order status", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("order not found", nil, infra.KindNotFound)
	}
	return nil
}

const setInvoiceSQL = `
UPDATE orders SET invoice_id = $2, invoice_link = $3, updated_at = now() WHERE id = $1`

func (r *OrderRepository) SetInvoice(ctx context.Context, tx db.DBTX, o *order.Order) error {
	tag, err := tx.Exec(ctx, setInvoiceSQL, o.ID(), o.InvoiceID(), o.InvoiceLink())
	if err != nil {
		return infra.WrapRepoErr("failed to set invoice", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("order not found", nil, infra.KindNotFound)
	}
	return nil
}
