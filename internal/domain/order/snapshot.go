package order

import (
	"time"

	"github.com/google/uuid"
)

// Pricing is the tier pricing copied by value into a snapshot at
// allocation time, so later tier edits never rewrite order history.
type Pricing struct {
	TierName       string
	DurationDays   int32
	UnitPriceCents int64
}

// KeySnapshot is the immutable record of a sold key as of sale time.
// Rows are never deleted; the compensation path only flips Void.
type KeySnapshot struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	KeyID       uuid.UUID
	ProductName string
	Pricing     Pricing
	Secret      string
	ExpiresAt   *time.Time
	Void        bool
	CreatedAt   time.Time
}

func NewKeySnapshot(
	orderID, keyID uuid.UUID,
	productName string,
	pricing Pricing,
	secret string,
	expiresAt *time.Time,
	now time.Time,
) *KeySnapshot {
	return &KeySnapshot{
		ID:          uuid.New(),
		OrderID:     orderID,
		KeyID:       keyID,
		ProductName: productName,
		Pricing:     pricing,
		Secret:      secret,
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
	}
}
