package request

import (
	"keymint/internal/domain/cart"

	"github.com/google/uuid"
)

type CheckoutKeySelection struct {
	Quantity    int32     `json:"quantity" binding:"required"`
	PricingUUID uuid.UUID `json:"pricingUuid" binding:"required"`
}

type CheckoutCartItem struct {
	ProductName string                 `json:"productName" binding:"required"`
	Keys        []CheckoutKeySelection `json:"keys" binding:"required,min=1"`
}

type CheckoutRequest struct {
	Amount        int64              `json:"amount" binding:"required"`
	Cart          []CheckoutCartItem `json:"cart" binding:"required,min=1"`
	PurchaserUUID uuid.UUID          `json:"purchaserUuid" binding:"required"`
}

func (r CheckoutRequest) ToDomain() (cart.Cart, error) {
	var lines []cart.Line
	for _, item := range r.Cart {
		for _, sel := range item.Keys {
			line, err := cart.NewLine(item.ProductName, sel.PricingUUID, sel.Quantity)
			if err != nil {
				return cart.Cart{}, err
			}
			lines = append(lines, line)
		}
	}
	return cart.New(lines)
}
