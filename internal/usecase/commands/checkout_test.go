//go:build unit

package commands_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"keymint/internal/domain/cart"
	"keymint/internal/domain/order"
	"keymint/internal/pkg/clock"
	"keymint/internal/usecase/commands"
	"keymint/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkoutFixture struct {
	store   *memStore
	catalog *fakeCatalog
	gateway *fakeGateway
	clock   *clock.MockClock
	cmds    commands.CheckoutCommands

	lifetimeTier *shared.TierSnapshot
	yearlyTier   *shared.TierSnapshot
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	productID := uuid.New()
	lifetime := &shared.TierSnapshot{
		ID:             uuid.New(),
		ProductID:      productID,
		ProductName:    "hyper-visor-pro",
		TierName:       "lifetime",
		DurationDays:   0,
		UnitPriceCents: 9900,
		StockCount:     3,
	}
	yearly := &shared.TierSnapshot{
		ID:             uuid.New(),
		ProductID:      productID,
		ProductName:    "hyper-visor-pro",
		TierName:       "yearly",
		DurationDays:   365,
		UnitPriceCents: 4900,
		StockCount:     2,
	}

	store := newMemStore()
	store.addKeys(lifetime.ID, 3)
	store.addKeys(yearly.ID, 2)
	store.stock[lifetime.ID] = 3
	store.stock[yearly.ID] = 2

	catalog := &fakeCatalog{tiers: map[uuid.UUID]*shared.TierSnapshot{
		lifetime.ID: lifetime,
		yearly.ID:   yearly,
	}}
	gateway := &fakeGateway{result: shared.InvoiceResult{
		InvoiceID:   "inv_123",
		CheckoutURL: "https://pay.example.com/i/inv_123",
	}}
	mockClock := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	return &checkoutFixture{
		store:        store,
		catalog:      catalog,
		gateway:      gateway,
		clock:        mockClock,
		cmds:         commands.NewCheckoutCommands(store, catalog, gateway, mockClock),
		lifetimeTier: lifetime,
		yearlyTier:   yearly,
	}
}

func mustCart(t *testing.T, lines ...cart.Line) cart.Cart {
	t.Helper()
	crt, err := cart.New(lines)
	require.NoError(t, err)
	return crt
}

func mustLine(t *testing.T, productName string, tierID uuid.UUID, quantity int32) cart.Line {
	t.Helper()
	l, err := cart.NewLine(productName, tierID, quantity)
	require.NoError(t, err)
	return l
}

func TestCheckout_Success(t *testing.T) {
	f := newCheckoutFixture(t)
	purchaser := uuid.New()

	crt := mustCart(t,
		mustLine(t, "hyper-visor-pro", f.lifetimeTier.ID, 2),
		mustLine(t, "hyper-visor-pro", f.yearlyTier.ID, 1),
	)

	result, err := f.cmds.Checkout(context.Background(), commands.CheckoutInput{
		PurchaserID: purchaser,
		AmountCents: 2*9900 + 4900,
		Cart:        crt,
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "https://pay.example.com/i/inv_123", result.CheckoutLink)
	require.Len(t, result.Snapshots, 3)

	row := f.store.orders[result.OrderID]
	require.NotNil(t, row)
	assert.Equal(t, order.StatusUnpaid, row.status)
	assert.Equal(t, purchaser, row.purchaserID)
	assert.Equal(t, "inv_123", row.invoiceID)
	assert.Equal(t, "https://pay.example.com/i/inv_123", row.invoiceLink)

	assert.Equal(t, int32(1), f.store.stock[f.lifetimeTier.ID])
	assert.Equal(t, int32(1), f.store.stock[f.yearlyTier.ID])
	assert.Equal(t, 1, f.store.freeKeyCount(f.lifetimeTier.ID))
	assert.Equal(t, 1, f.store.freeKeyCount(f.yearlyTier.ID))

	require.Len(t, f.gateway.requests, 1)
	req := f.gateway.requests[0]
	assert.Equal(t, int64(2*9900+4900), req.AmountCents)
	assert.Equal(t, result.OrderID, req.OrderID)
	assert.Equal(t, purchaser, req.PurchaserID)
	assert.Len(t, req.KeyIDs, 3)

	// Snapshot pricing is copied by value; mutating the tier afterwards
	// must not change what was sold.
	f.lifetimeTier.UnitPriceCents = 19900
	for _, snap := range result.Snapshots {
		if snap.Pricing.TierName == "lifetime" {
			assert.Equal(t, int64(9900), snap.Pricing.UnitPriceCents)
			assert.Nil(t, snap.ExpiresAt)
		} else {
			assert.Equal(t, int64(4900), snap.Pricing.UnitPriceCents)
			require.NotNil(t, snap.ExpiresAt)
			assert.Equal(t, f.clock.Now().Add(365*24*time.Hour), *snap.ExpiresAt)
		}
		assert.Equal(t, "hyper-visor-pro", snap.ProductName)
		assert.NotEmpty(t, snap.Secret)
		assert.False(t, snap.Void)
	}
}

func TestCheckout_DuplicateTierLines(t *testing.T) {
	f := newCheckoutFixture(t)

	crt := mustCart(t,
		mustLine(t, "hyper-visor-pro", f.yearlyTier.ID, 1),
		mustLine(t, "hyper-visor-pro", f.yearlyTier.ID, 1),
	)

	result, err := f.cmds.Checkout(context.Background(), commands.CheckoutInput{
		PurchaserID: uuid.New(),
		AmountCents: 2 * 4900,
		Cart:        crt,
	})
	require.NoError(t, err)
	require.Len(t, result.Snapshots, 2)

	// Both lines resolve against the same tier yet claim distinct keys.
	assert.NotEqual(t, result.Snapshots[0].KeyID, result.Snapshots[1].KeyID)
	assert.Equal(t, int32(0), f.store.stock[f.yearlyTier.ID])
	assert.Equal(t, 0, f.store.freeKeyCount(f.yearlyTier.ID))
}

func TestCheckout_Validation(t *testing.T) {
	t.Run("unknown tier", func(t *testing.T) {
		f := newCheckoutFixture(t)
		crt := mustCart(t, mustLine(t, "hyper-visor-pro", uuid.New(), 1))

		_, err := f.cmds.Checkout(context.Background(), commands.CheckoutInput{
			PurchaserID: uuid.New(), AmountCents: 9900, Cart: crt,
		})
		require.ErrorIs(t, err, commands.ErrInvalidProduct)
	})

	t.Run("product name does not match tier", func(t *testing.T) {
		f := newCheckoutFixture(t)
		crt := mustCart(t, mustLine(t, "some-other-product", f.lifetimeTier.ID, 1))

		_, err := f.cmds.Checkout(context.Background(), commands.CheckoutInput{
			PurchaserID: uuid.New(), AmountCents: 9900, Cart: crt,
		})
		require.ErrorIs(t, err, commands.ErrInvalidProduct)
	})

	t.Run("tier with a corrupt negative price is rejected", func(t *testing.T) {
		f := newCheckoutFixture(t)
		f.lifetimeTier.UnitPriceCents = -1
		crt := mustCart(t, mustLine(t, "hyper-visor-pro", f.lifetimeTier.ID, 1))

		_, err := f.cmds.Checkout(context.Background(), commands.CheckoutInput{
			PurchaserID: uuid.New(), AmountCents: -1, Cart: crt,
		})
		require.ErrorIs(t, err, commands.ErrInvalidProduct)
	})

	t.Run("cart exceeds advertised stock", func(t *testing.T) {
		f := newCheckoutFixture(t)
		crt := mustCart(t, mustLine(t, "hyper-visor-pro", f.yearlyTier.ID, 3))

		_, err := f.cmds.Checkout(context.Background(), commands.CheckoutInput{
			PurchaserID: uuid.New(), AmountCents: 3 * 4900, Cart: crt,
		})
		require.ErrorIs(t, err, commands.ErrInsufficientStock)
	})

	t.Run("amount mismatch", func(t *testing.T) {
		f := newCheckoutFixture(t)
		crt := mustCart(t, mustLine(t, "hyper-visor-pro", f.lifetimeTier.ID, 1))

		_, err := f.cmds.Checkout(context.Background(), commands.CheckoutInput{
			PurchaserID: uuid.New(), AmountCents: 100, Cart: crt,
		})
		require.ErrorIs(t, err, commands.ErrAmountMismatch)

		// Validation failures leave no trace.
		assert.Empty(t, f.store.orders)
		assert.Empty(t, f.gateway.requests)
	})
}

func TestCheckout_KeyShortfallRollsBack(t *testing.T) {
	f := newCheckoutFixture(t)

	// The advertised counter says two keys, but only one row is actually
	// free: the second claim comes up short inside the transaction.
	f.store.keys[len(f.store.keys)-1].reserved = true

	crt := mustCart(t, mustLine(t, "hyper-visor-pro", f.yearlyTier.ID, 2))

	_, err := f.cmds.Checkout(context.Background(), commands.CheckoutInput{
		PurchaserID: uuid.New(), AmountCents: 2 * 4900, Cart: crt,
	})
	require.ErrorIs(t, err, commands.ErrInsufficientKeys)

	// All-or-nothing: no order, no partial reservation, untouched stock.
	assert.Empty(t, f.store.orders)
	assert.Equal(t, int32(2), f.store.stock[f.yearlyTier.ID])
	assert.Equal(t, 1, f.store.freeKeyCount(f.yearlyTier.ID))
	assert.Empty(t, f.gateway.requests)
}

func TestCheckout_GatewayFailureCompensates(t *testing.T) {
	f := newCheckoutFixture(t)
	f.gateway.err = errors.New("provider unreachable")

	crt := mustCart(t,
		mustLine(t, "hyper-visor-pro", f.lifetimeTier.ID, 1),
		mustLine(t, "hyper-visor-pro", f.yearlyTier.ID, 1),
	)

	_, err := f.cmds.Checkout(context.Background(), commands.CheckoutInput{
		PurchaserID: uuid.New(), AmountCents: 9900 + 4900, Cart: crt,
	})
	require.ErrorIs(t, err, commands.ErrGatewayFailure)

	// The committed allocation was reversed: keys back in the pool, stock
	// credited, snapshots voided, order expired.
	require.Len(t, f.store.orders, 1)
	for orderID, row := range f.store.orders {
		assert.Equal(t, order.StatusExpired, row.status)
		for _, snap := range f.store.snapshots[orderID] {
			assert.True(t, snap.void)
		}
	}
	assert.Equal(t, int32(3), f.store.stock[f.lifetimeTier.ID])
	assert.Equal(t, int32(2), f.store.stock[f.yearlyTier.ID])
	assert.Equal(t, 3, f.store.freeKeyCount(f.lifetimeTier.ID))
	assert.Equal(t, 2, f.store.freeKeyCount(f.yearlyTier.ID))
}

func TestCheckout_RetryExhaustion(t *testing.T) {
	f := newCheckoutFixture(t)
	cmds := commands.NewCheckoutCommands(conflictUoW{}, f.catalog, f.gateway, f.clock)

	crt := mustCart(t, mustLine(t, "hyper-visor-pro", f.lifetimeTier.ID, 1))

	_, err := cmds.Checkout(context.Background(), commands.CheckoutInput{
		PurchaserID: uuid.New(), AmountCents: 9900, Cart: crt,
	})
	require.ErrorIs(t, err, commands.ErrAllocationConflict)
	assert.Empty(t, f.gateway.requests)
}
