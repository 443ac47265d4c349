// Package gateway talks to the external payment provider. The provider
// owns the invoice lifecycle; this side only creates invoices and later
// consumes the provider's webhooks.
package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"keymint/internal/infra"
	"keymint/internal/pkg/config"
	"keymint/internal/usecase/shared"

	"github.com/guonaihong/gout"
)

type InvoiceClient struct {
	cfg config.GatewayConfig
}

func NewInvoiceClient(cfg config.Config) *InvoiceClient {
	return &InvoiceClient{cfg: cfg.Gateway}
}

type invoiceMetadata struct {
	OrderID     string   `json:"order_uuid"`
	PurchaserID string   `json:"user_uuid"`
	KeyIDs      []string `json:"keys"`
}

type createInvoiceBody struct {
	Amount   int64           `json:"amount"`
	Currency string          `json:"currency"`
	Metadata invoiceMetadata `json:"metadata"`
}

type createInvoiceResponse struct {
	ID           string `json:"id"`
	CheckoutLink string `json:"checkoutLink"`
}

// CreateInvoice registers the invoice with the provider. The metadata
// carries the exact allocated key ids; the webhook reconciler acts on
// precisely those rows without re-querying.
func (c *InvoiceClient) CreateInvoice(ctx context.Context, req shared.InvoiceRequest) (*shared.InvoiceResult, error) {
	keyIDs := make([]string, len(req.KeyIDs))
	for i, id := range req.KeyIDs {
		keyIDs[i] = id.String()
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	body := createInvoiceBody{
		Amount:   req.AmountCents,
		Currency: currency,
		Metadata: invoiceMetadata{
			OrderID:     req.OrderID.String(),
			PurchaserID: req.PurchaserID.String(),
			KeyIDs:      keyIDs,
		},
	}

	var (
		resp createInvoiceResponse
		code int
	)
	url := fmt.Sprintf("%s/api/v1/stores/%s/invoices", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.StoreID)

	err := gout.POST(url).
		WithContext(ctx).
		SetTimeout(c.cfg.Timeout).
		SetHeader(gout.H{"Authorization": "token " + c.cfg.APIKey}).
		SetJSON(body).
		BindJSON(&resp).
		Code(&code).
		Do()
	if err != nil {
		return nil, infra.WrapRepoErr("invoice creation request failed", err)
	}
	if code != http.StatusOK && code != http.StatusCreated {
		return nil, infra.WrapRepoErr(fmt.Sprintf("invoice creation rejected with status %d", code), nil)
	}
	if resp.CheckoutLink == "" {
		return nil, infra.WrapRepoErr("invoice response missing checkout link", nil)
	}

	return &shared.InvoiceResult{
		InvoiceID:   resp.ID,
		CheckoutURL: resp.CheckoutLink,
	}, nil
}

// VerifyWebhookSignature checks the provider's HMAC-SHA256 signature over
// the raw payload. An empty configured secret disables verification.
func VerifyWebhookSignature(secret string, payload []byte, header string) bool {
	if secret == "" {
		return true
	}
	sig := strings.TrimPrefix(header, "sha256=")
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(sig))
}
