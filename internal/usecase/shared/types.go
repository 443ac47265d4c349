package shared

import (
	"context"

	"github.com/google/uuid"
)

// TierSnapshot is the read model the checkout path resolves cart lines
// against. Stock here is advisory; the allocation transaction re-checks.
type TierSnapshot struct {
	ID             uuid.UUID
	ProductID      uuid.UUID
	ProductName    string
	TierName       string
	DurationDays   int32
	UnitPriceCents int64
	StockCount     int32
}

type CatalogReads interface {
	TierByID(ctx context.Context, id uuid.UUID) (*TierSnapshot, error)
}

// InvoiceRequest carries the exact allocated key ids so the webhook
// reconciler can act on precisely those rows later.
type InvoiceRequest struct {
	AmountCents int64
	Currency    string
	OrderID     uuid.UUID
	PurchaserID uuid.UUID
	KeyIDs      []uuid.UUID
}

type InvoiceResult struct {
	InvoiceID   string
	CheckoutURL string
}

// InvoiceGateway is the external payment-provider boundary.
type InvoiceGateway interface {
	CreateInvoice(ctx context.Context, req InvoiceRequest) (*InvoiceResult, error)
}
