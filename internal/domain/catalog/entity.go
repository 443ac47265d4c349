package catalog

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyProductName = errors.New("product name cannot be empty")
	ErrNegativePrice    = errors.New("unit price cannot be negative")
	ErrNegativeStock    = errors.New("stock count cannot be negative")
	ErrNegativeDuration = errors.New("duration cannot be negative")
)

type Product struct {
	id   uuid.UUID
	name string
}

func NewProduct(id uuid.UUID, name string) (*Product, error) {
	if name == "" {
		return nil, ErrEmptyProductName
	}
	return &Product{id: id, name: name}, nil
}

func (p *Product) ID() uuid.UUID { return p.id }
func (p *Product) Name() string  { return p.name }

// PricingTier is a duration-based price/stock bucket belonging to a product.
// DurationDays == 0 means a lifetime key.
type PricingTier struct {
	id             uuid.UUID
	productID      uuid.UUID
	name           string
	durationDays   int32
	unitPriceCents int64
	stockCount     int32
}

func NewPricingTier(id, productID uuid.UUID, name string, durationDays int32, unitPriceCents int64, stockCount int32) (*PricingTier, error) {
	if durationDays < 0 {
		return nil, ErrNegativeDuration
	}
	if unitPriceCents < 0 {
		return nil, ErrNegativePrice
	}
	if stockCount < 0 {
		return nil, ErrNegativeStock
	}
	return &PricingTier{
		id:             id,
		productID:      productID,
		name:           name,
		durationDays:   durationDays,
		unitPriceCents: unitPriceCents,
		stockCount:     stockCount,
	}, nil
}

func (t *PricingTier) ID() uuid.UUID         { return t.id }
func (t *PricingTier) ProductID() uuid.UUID  { return t.productID }
func (t *PricingTier) Name() string          { return t.name }
func (t *PricingTier) DurationDays() int32   { return t.durationDays }
func (t *PricingTier) UnitPriceCents() int64 { return t.unitPriceCents }
func (t *PricingTier) StockCount() int32     { return t.stockCount }

func (t *PricingTier) IsLifetime() bool {
	return t.durationDays == 0
}

// ExpiryFrom computes the key expiry for this tier relative to now.
// Lifetime tiers have no expiry.
func (t *PricingTier) ExpiryFrom(now time.Time) *time.Time {
	if t.IsLifetime() {
		return nil
	}
	expiry := now.Add(time.Duration(t.durationDays) * 24 * time.Hour)
	return &expiry
}

func (t *PricingTier) HasStock(quantity int32) bool {
	return t.stockCount >= quantity
}
