package api

import (
	"errors"
	"net/http"

	reqdto "keymint/internal/handler/dto/request"
	resdto "keymint/internal/handler/dto/response"
	"keymint/internal/handler/httperr"
	"keymint/internal/handler/middleware"
	"keymint/internal/usecase/commands"

	"github.com/gin-gonic/gin"
)

type CheckoutHandler struct {
	cmds commands.CheckoutCommands
}

func NewCheckoutHandler(cmds commands.CheckoutCommands) *CheckoutHandler {
	return &CheckoutHandler{cmds: cmds}
}

// @Summary Checkout
// @Description Allocate keys for the cart and create a payment invoice
// @Tags invoices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.CheckoutRequest true "Checkout request"
// @Success 200 {object} resdto.CheckoutResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /invoices [post]
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, nil, "Unauthorized", nil)
		return
	}

	var req reqdto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request", nil)
		return
	}

	if req.PurchaserUUID != user.ID {
		httperr.AbortWithError(c, http.StatusForbidden, nil, "Purchaser does not match authenticated user", nil)
		return
	}

	crt, err := req.ToDomain()
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid cart", nil)
		return
	}

	result, err := h.cmds.Checkout(c.Request.Context(), commands.CheckoutInput{
		PurchaserID: req.PurchaserUUID,
		AmountCents: req.Amount,
		Cart:        crt,
	})
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrInvalidProduct):
			httperr.AbortWithError(c, http.StatusBadRequest, err, "Unknown product or pricing tier", nil)
		case errors.Is(err, commands.ErrAmountMismatch):
			httperr.AbortWithError(c, http.StatusBadRequest, err, "Amount does not match cart total", nil)
		case errors.Is(err, commands.ErrInsufficientStock),
			errors.Is(err, commands.ErrInsufficientKeys):
			// A dried-up tier is a business rejection: the caller must
			// shrink the cart, retrying as-is cannot succeed.
			httperr.AbortWithError(c, http.StatusBadRequest, err, "Insufficient stock", nil)
		case errors.Is(err, commands.ErrAllocationConflict):
			httperr.AbortWithError(c, http.StatusConflict, err, "Allocation conflict, retry the request", nil)
		case errors.Is(err, commands.ErrGatewayFailure):
			httperr.AbortWithError(c, http.StatusBadGateway, err, "Payment provider unavailable", nil)
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		}
		return
	}

	c.JSON(http.StatusOK, resdto.FromCheckoutResult(result))
}
