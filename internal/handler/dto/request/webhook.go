package request

import (
	"keymint/internal/usecase/commands"

	"github.com/google/uuid"
)

type WebhookMetadata struct {
	UserUUID  uuid.UUID   `json:"user_uuid" binding:"required"`
	OrderUUID uuid.UUID   `json:"order_uuid" binding:"required"`
	Keys      []uuid.UUID `json:"keys" binding:"required"`
}

type PaymentWebhookRequest struct {
	Type     string          `json:"type" binding:"required"`
	Metadata WebhookMetadata `json:"metadata" binding:"required"`
}

func (r PaymentWebhookRequest) ToEvent() commands.WebhookEvent {
	return commands.WebhookEvent{
		Type:        commands.EventType(r.Type),
		OrderID:     r.Metadata.OrderUUID,
		PurchaserID: r.Metadata.UserUUID,
		KeyIDs:      r.Metadata.Keys,
	}
}
