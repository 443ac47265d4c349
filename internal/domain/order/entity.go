package order

import (
	"time"

	"github.com/google/uuid"
)

type Order struct {
	id          uuid.UUID
	purchaserID uuid.UUID
	invoiceID   string
	invoiceLink string
	status      Status
	createdAt   time.Time
	updatedAt   time.Time
}

// NewOrder creates an order in its initial unpaid state, before the
// payment invoice exists.
func NewOrder(purchaserID uuid.UUID, now time.Time) *Order {
	return &Order{
		id:          uuid.New(),
		purchaserID: purchaserID,
		status:      StatusUnpaid,
		createdAt:   now,
		updatedAt:   now,
	}
}

func Reconstruct(
	id, purchaserID uuid.UUID,
	invoiceID, invoiceLink string,
	status Status,
	createdAt, updatedAt time.Time,
) *Order {
	return &Order{
		id:          id,
		purchaserID: purchaserID,
		invoiceID:   invoiceID,
		invoiceLink: invoiceLink,
		status:      status,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (o *Order) ID() uuid.UUID          { return o.id }
func (o *Order) PurchaserID() uuid.UUID { return o.purchaserID }
func (o *Order) InvoiceID() string      { return o.invoiceID }
func (o *Order) InvoiceLink() string    { return o.invoiceLink }
func (o *Order) Status() Status         { return o.status }
func (o *Order) CreatedAt() time.Time   { return o.createdAt }
func (o *Order) UpdatedAt() time.Time   { return o.updatedAt }

func (o *Order) AttachInvoice(invoiceID, link string) {
	o.invoiceID = invoiceID
	o.invoiceLink = link
}

// MarkPaid transitions unpaid -> paid. Returns false as a no-op when the
// order is already terminal; webhook delivery is at-least-once.
func (o *Order) MarkPaid(now time.Time) bool {
	return o.transition(StatusPaid, now)
}

// MarkExpired transitions unpaid -> expired with the same no-op semantics.
func (o *Order) MarkExpired(now time.Time) bool {
	return o.transition(StatusExpired, now)
}

func (o *Order) transition(target Status, now time.Time) bool {
	if !o.status.CanTransitionTo(target) {
		return false
	}
	o.status = target
	o.updatedAt = now
	return true
}
