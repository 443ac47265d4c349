// Package cart holds the ephemeral shopping cart submitted at checkout.
// Nothing here is persisted; true stock enforcement happens in the
// allocation transaction.
package cart

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrEmptyCart          = errors.New("cart has no lines")
	ErrEmptyProductName   = errors.New("cart line product name cannot be empty")
	ErrInvalidQuantity    = errors.New("cart line quantity must be positive")
	ErrMissingPricingTier = errors.New("cart line pricing tier id required")
)

type Line struct {
	productName   string
	pricingTierID uuid.UUID
	quantity      int32
}

func NewLine(productName string, pricingTierID uuid.UUID, quantity int32) (Line, error) {
	if productName == "" {
		return Line{}, ErrEmptyProductName
	}
	if pricingTierID == uuid.Nil {
		return Line{}, ErrMissingPricingTier
	}
	if quantity <= 0 {
		return Line{}, ErrInvalidQuantity
	}
	return Line{
		productName:   productName,
		pricingTierID: pricingTierID,
		quantity:      quantity,
	}, nil
}

func (l Line) ProductName() string      { return l.productName }
func (l Line) PricingTierID() uuid.UUID { return l.pricingTierID }
func (l Line) Quantity() int32          { return l.quantity }

type Cart struct {
	lines []Line
}

// New validates the cart shape. Two lines may resolve to the same tier;
// the allocator excludes keys claimed by earlier lines in the same
// transaction so overlapping candidate sets never double-count.
func New(lines []Line) (Cart, error) {
	if len(lines) == 0 {
		return Cart{}, ErrEmptyCart
	}
	return Cart{lines: lines}, nil
}

// QuantityPerTier folds lines that target the same tier, which is what
// the advisory stock pre-check compares against current stock.
func (c Cart) QuantityPerTier() map[uuid.UUID]int32 {
	perTier := make(map[uuid.UUID]int32, len(c.lines))
	for _, l := range c.lines {
		perTier[l.pricingTierID] += l.quantity
	}
	return perTier
}

func (c Cart) Lines() []Line {
	return c.lines
}

func (c Cart) TotalQuantity() int32 {
	var total int32
	for _, l := range c.lines {
		total += l.quantity
	}
	return total
}
