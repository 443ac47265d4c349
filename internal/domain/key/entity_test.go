//go:build unit

package key_test

import (
	"testing"
	"time"

	"keymint/internal/domain/key"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freshKey(t *testing.T) *key.ProductKey {
	t.Helper()
	k, err := key.Reconstruct(uuid.New(), uuid.New(), uuid.New(), "AAAA-BBBB", false, nil, nil, nil)
	require.NoError(t, err)
	return k
}

func TestReconstruct(t *testing.T) {
	t.Run("owner without reservation is rejected", func(t *testing.T) {
		owner := uuid.New()
		_, err := key.Reconstruct(uuid.New(), uuid.New(), uuid.New(), "AAAA-BBBB", false, &owner, nil, nil)
		require.ErrorIs(t, err, key.ErrOwnerRequiresReservation)
	})

	t.Run("owned reserved key is valid", func(t *testing.T) {
		owner := uuid.New()
		k, err := key.Reconstruct(uuid.New(), uuid.New(), uuid.New(), "AAAA-BBBB", true, &owner, nil, nil)
		require.NoError(t, err)
		assert.True(t, k.IsReserved())
		assert.Equal(t, owner, *k.OwnerID())
	})
}

func TestReserve(t *testing.T) {
	expiry := time.Now().Add(365 * 24 * time.Hour)

	t.Run("reserve free key", func(t *testing.T) {
		k := freshKey(t)
		require.NoError(t, k.Reserve(&expiry))
		assert.True(t, k.IsReserved())
		assert.Equal(t, expiry, *k.ExpiresAt())
	})

	t.Run("lifetime reservation has no expiry", func(t *testing.T) {
		k := freshKey(t)
		require.NoError(t, k.Reserve(nil))
		assert.Nil(t, k.ExpiresAt())
	})

	t.Run("double reservation fails", func(t *testing.T) {
		k := freshKey(t)
		require.NoError(t, k.Reserve(nil))
		require.ErrorIs(t, k.Reserve(nil), key.ErrAlreadyReserved)
	})
}

func TestAssign(t *testing.T) {
	owner := uuid.New()

	t.Run("assign reserved key", func(t *testing.T) {
		k := freshKey(t)
		require.NoError(t, k.Reserve(nil))
		require.NoError(t, k.Assign(owner))
		assert.Equal(t, owner, *k.OwnerID())
	})

	t.Run("assign unreserved key fails", func(t *testing.T) {
		k := freshKey(t)
		require.ErrorIs(t, k.Assign(owner), key.ErrNotReserved)
	})

	t.Run("reassignment fails", func(t *testing.T) {
		k := freshKey(t)
		require.NoError(t, k.Reserve(nil))
		require.NoError(t, k.Assign(owner))
		require.ErrorIs(t, k.Assign(uuid.New()), key.ErrAlreadyOwned)
	})
}

func TestRelease(t *testing.T) {
	t.Run("release pending reservation", func(t *testing.T) {
		expiry := time.Now().Add(24 * time.Hour)
		k := freshKey(t)
		require.NoError(t, k.Reserve(&expiry))

		require.NoError(t, k.Release())
		assert.False(t, k.IsReserved())
		assert.Nil(t, k.ExpiresAt())
	})

	t.Run("owned key is never released", func(t *testing.T) {
		k := freshKey(t)
		require.NoError(t, k.Reserve(nil))
		require.NoError(t, k.Assign(uuid.New()))

		require.ErrorIs(t, k.Release(), key.ErrOwnedKeyRelease)
		assert.True(t, k.IsReserved())
	})
}
