package queries

import (
	"time"

	"github.com/google/uuid"
)

type KeySnapshotView struct {
	ID             uuid.UUID
	ProductName    string
	TierName       string
	DurationDays   int32
	UnitPriceCents int64
	Secret         string
	ExpiresAt      *time.Time
	Void           bool
}

type OrderView struct {
	ID          uuid.UUID
	PurchaserID uuid.UUID
	InvoiceLink string
	Status      string
	Keys        []KeySnapshotView
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type OrderListItem struct {
	ID          uuid.UUID
	InvoiceLink string
	Status      string
	KeyCount    int64
	TotalCents  int64
	CreatedAt   time.Time
}
