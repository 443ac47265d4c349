//go:build unit

package catalog_test

import (
	"testing"
	"time"

	"keymint/internal/domain/catalog"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProduct(t *testing.T) {
	t.Run("valid product", func(t *testing.T) {
		p, err := catalog.NewProduct(uuid.New(), "hyper-visor-pro")
		require.NoError(t, err)
		assert.Equal(t, "hyper-visor-pro", p.Name())
	})

	t.Run("empty name rejected", func(t *testing.T) {
		_, err := catalog.NewProduct(uuid.New(), "")
		require.ErrorIs(t, err, catalog.ErrEmptyProductName)
	})
}

func TestNewPricingTier(t *testing.T) {
	productID := uuid.New()

	cases := []struct {
		name     string
		duration int32
		price    int64
		stock    int32
		errIs    error
	}{
		{name: "lifetime tier", duration: 0, price: 9900, stock: 10},
		{name: "yearly tier", duration: 365, price: 4900, stock: 5},
		{name: "negative duration", duration: -1, price: 100, stock: 1, errIs: catalog.ErrNegativeDuration},
		{name: "negative price", duration: 30, price: -1, stock: 1, errIs: catalog.ErrNegativePrice},
		{name: "negative stock", duration: 30, price: 100, stock: -1, errIs: catalog.ErrNegativeStock},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			tier, err := catalog.NewPricingTier(uuid.New(), productID, c.name, c.duration, c.price, c.stock)
			if c.errIs != nil {
				require.ErrorIs(t, err, c.errIs)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, tier)
		})
	}
}

func TestExpiryFrom(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("lifetime tier has no expiry", func(t *testing.T) {
		tier, err := catalog.NewPricingTier(uuid.New(), uuid.New(), "lifetime", 0, 9900, 1)
		require.NoError(t, err)
		assert.True(t, tier.IsLifetime())
		assert.Nil(t, tier.ExpiryFrom(now))
	})

	t.Run("timed tier expires after duration", func(t *testing.T) {
		tier, err := catalog.NewPricingTier(uuid.New(), uuid.New(), "monthly", 30, 990, 1)
		require.NoError(t, err)
		assert.False(t, tier.IsLifetime())

		expiry := tier.ExpiryFrom(now)
		require.NotNil(t, expiry)
		assert.Equal(t, now.Add(30*24*time.Hour), *expiry)
	})
}

func TestHasStock(t *testing.T) {
	tier, err := catalog.NewPricingTier(uuid.New(), uuid.New(), "monthly", 30, 990, 3)
	require.NoError(t, err)

	assert.True(t, tier.HasStock(3))
	assert.True(t, tier.HasStock(1))
	assert.False(t, tier.HasStock(4))
}
