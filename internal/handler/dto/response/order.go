package response

import (
	"time"

	"keymint/internal/usecase/queries"

	"github.com/google/uuid"
)

type KeySnapshotResponse struct {
	ID             uuid.UUID  `json:"id"`
	ProductName    string     `json:"productName"`
	TierName       string     `json:"tierName"`
	DurationDays   int32      `json:"durationDays"`
	UnitPriceCents int64      `json:"unitPriceCents"`
	Secret         string     `json:"secret"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
}

type OrderResponse struct {
	ID          uuid.UUID             `json:"id"`
	PurchaserID uuid.UUID             `json:"purchaserId"`
	InvoiceLink string                `json:"invoiceLink"`
	Status      string                `json:"status"`
	Keys        []KeySnapshotResponse `json:"keys"`
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt"`
}

type OrderListResponse struct {
	ID          uuid.UUID `json:"id"`
	InvoiceLink string    `json:"invoiceLink"`
	Status      string    `json:"status"`
	KeyCount    int64     `json:"keyCount"`
	TotalCents  int64     `json:"totalCents"`
	CreatedAt   time.Time `json:"createdAt"`
}

func FromOrderView(v *queries.OrderView) *OrderResponse {
	keys := make([]KeySnapshotResponse, 0, len(v.Keys))
	for _, k := range v.Keys {
		if k.Void {
			continue
		}
		keys = append(keys, KeySnapshotResponse{
			ID:             k.ID,
			ProductName:    k.ProductName,
			TierName:       k.TierName,
			DurationDays:   k.DurationDays,
			UnitPriceCents: k.UnitPriceCents,
			Secret:         k.Secret,
			ExpiresAt:      k.ExpiresAt,
		})
	}
	return &OrderResponse{
		ID:          v.ID,
		PurchaserID: v.PurchaserID,
		InvoiceLink: v.InvoiceLink,
		Status:      v.Status,
		Keys:        keys,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}

func FromOrderListItem(v *queries.OrderListItem) *OrderListResponse {
	return &OrderListResponse{
		ID:          v.ID,
		InvoiceLink: v.InvoiceLink,
		Status:      v.Status,
		KeyCount:    v.KeyCount,
		TotalCents:  v.TotalCents,
		CreatedAt:   v.CreatedAt,
	}
}
