package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	reqdto "keymint/internal/handler/dto/request"
	resdto "keymint/internal/handler/dto/response"
	"keymint/internal/handler/httperr"
	"keymint/internal/infra/gateway"
	"keymint/internal/pkg/config"
	"keymint/internal/usecase/commands"

	"github.com/gin-gonic/gin"
)

const signatureHeader = "BTCPay-Sig"

type WebhookHandler struct {
	cmds commands.WebhookCommands
	cfg  config.GatewayConfig
}

func NewWebhookHandler(cmds commands.WebhookCommands, cfg config.Config) *WebhookHandler {
	return &WebhookHandler{cmds: cmds, cfg: cfg.Gateway}
}

// @Summary Payment webhook
// @Description Receive settled/expired invoice events from the payment provider
// @Tags webhooks
// @Accept json
// @Produce json
// @Param BTCPay-Sig header string false "HMAC-SHA256 signature over the raw payload"
// @Param request body reqdto.PaymentWebhookRequest true "Webhook event"
// @Success 200 {object} resdto.WebhookAckResponse
// @Failure 400 {object} map[string]string
// @Router /webhooks/payment [post]
func (h *WebhookHandler) Handle(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Unreadable payload", nil)
		return
	}

	if !gateway.VerifyWebhookSignature(h.cfg.WebhookSecret, payload, c.GetHeader(signatureHeader)) {
		httperr.AbortWithError(c, http.StatusBadRequest, nil, "Invalid signature", nil)
		return
	}

	var req reqdto.PaymentWebhookRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid payload", nil)
		return
	}
	if req.Type == "" || len(req.Metadata.Keys) == 0 {
		httperr.AbortWithError(c, http.StatusBadRequest, nil, "Missing event fields", nil)
		return
	}

	result, err := h.cmds.Handle(c.Request.Context(), req.ToEvent())
	if err != nil {
		if errors.Is(err, commands.ErrUnknownEventType) {
			httperr.AbortWithError(c, http.StatusBadRequest, err, "Unknown event type", nil)
			return
		}
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}

	// Duplicates and out-of-order deliveries ack with 200 so the
	// provider stops retrying.
	c.JSON(http.StatusOK, resdto.FromWebhookResult(result))
}
