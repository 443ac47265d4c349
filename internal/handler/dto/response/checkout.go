package response

import (
	"keymint/internal/usecase/commands"

	"github.com/google/uuid"
)

type CheckoutResponse struct {
	OrderID      uuid.UUID `json:"orderId"`
	CheckoutLink string    `json:"checkoutLink"`
}

type WebhookAckResponse struct {
	Transitioned bool  `json:"transitioned"`
	KeysAffected int64 `json:"keysAffected"`
}

func FromCheckoutResult(r *commands.CheckoutResult) *CheckoutResponse {
	return &CheckoutResponse{
		OrderID:      r.OrderID,
		CheckoutLink: r.CheckoutLink,
	}
}

func FromWebhookResult(r *commands.WebhookResult) *WebhookAckResponse {
	return &WebhookAckResponse{
		Transitioned: r.Transitioned,
		KeysAffected: r.KeysAffected,
	}
}
