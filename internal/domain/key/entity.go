package key

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAlreadyReserved          = errors.New("key is already reserved")
	ErrNotReserved              = errors.New("key is not reserved")
	ErrAlreadyOwned             = errors.New("key already has an owner")
	ErrOwnedKeyRelease          = errors.New("owned key cannot be released")
	ErrOwnerRequiresReservation = errors.New("owner requires an active reservation")
)

// ProductKey is a unique sellable license key. Invariant: an owner may only
// be set while the key is reserved; a reservation with no owner is a pending
// payment.
type ProductKey struct {
	id            uuid.UUID
	productID     uuid.UUID
	pricingTierID uuid.UUID
	secret        string
	reserved      bool
	ownerID       *uuid.UUID
	hardwareID    *string
	expiresAt     *time.Time
}

func Reconstruct(
	id, productID, pricingTierID uuid.UUID,
	secret string,
	reserved bool,
	ownerID *uuid.UUID,
	hardwareID *string,
	expiresAt *time.Time,
) (*ProductKey, error) {
	if ownerID != nil && !reserved {
		return nil, ErrOwnerRequiresReservation
	}
	return &ProductKey{
		id:            id,
		productID:     productID,
		pricingTierID: pricingTierID,
		secret:        secret,
		reserved:      reserved,
		ownerID:       ownerID,
		hardwareID:    hardwareID,
		expiresAt:     expiresAt,
	}, nil
}

func (k *ProductKey) ID() uuid.UUID            { return k.id }
func (k *ProductKey) ProductID() uuid.UUID     { return k.productID }
func (k *ProductKey) PricingTierID() uuid.UUID { return k.pricingTierID }
func (k *ProductKey) Secret() string           { return k.secret }
func (k *ProductKey) IsReserved() bool         { return k.reserved }
func (k *ProductKey) OwnerID() *uuid.UUID      { return k.ownerID }
func (k *ProductKey) HardwareID() *string      { return k.hardwareID }
func (k *ProductKey) ExpiresAt() *time.Time    { return k.expiresAt }

// Reserve claims the key for a pending order and fixes its expiry.
func (k *ProductKey) Reserve(expiresAt *time.Time) error {
	if k.reserved {
		return ErrAlreadyReserved
	}
	k.reserved = true
	k.expiresAt = expiresAt
	return nil
}

// Assign finalizes ownership after settlement. The reservation stands.
func (k *ProductKey) Assign(ownerID uuid.UUID) error {
	if !k.reserved {
		return ErrNotReserved
	}
	if k.ownerID != nil {
		return ErrAlreadyOwned
	}
	k.ownerID = &ownerID
	return nil
}

// Release returns the key to the unsold pool after an expired invoice.
// Keys with an owner are never released this way.
func (k *ProductKey) Release() error {
	if k.ownerID != nil {
		return ErrOwnedKeyRelease
	}
	k.reserved = false
	k.expiresAt = nil
	return nil
}
