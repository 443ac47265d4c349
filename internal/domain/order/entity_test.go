//go:build unit

package order_test

import (
	"testing"
	"time"

	"keymint/internal/domain/order"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrder(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("new order starts unpaid", func(t *testing.T) {
		o := order.NewOrder(uuid.New(), now)
		require.NotNil(t, o)

		assert.NotEqual(t, uuid.Nil, o.ID())
		assert.Equal(t, order.StatusUnpaid, o.Status())
		assert.Equal(t, now, o.CreatedAt())
		assert.Equal(t, now, o.UpdatedAt())
		assert.Empty(t, o.InvoiceLink())
	})

	t.Run("mark paid from unpaid", func(t *testing.T) {
		o := order.NewOrder(uuid.New(), now)
		later := now.Add(time.Minute)

		assert.True(t, o.MarkPaid(later))
		assert.Equal(t, order.StatusPaid, o.Status())
		assert.Equal(t, later, o.UpdatedAt())
	})

	t.Run("mark expired from unpaid", func(t *testing.T) {
		o := order.NewOrder(uuid.New(), now)

		assert.True(t, o.MarkExpired(now))
		assert.Equal(t, order.StatusExpired, o.Status())
	})

	t.Run("terminal states are sticky", func(t *testing.T) {
		paid := order.NewOrder(uuid.New(), now)
		require.True(t, paid.MarkPaid(now))

		assert.False(t, paid.MarkExpired(now.Add(time.Hour)))
		assert.Equal(t, order.StatusPaid, paid.Status())
		assert.False(t, paid.MarkPaid(now.Add(time.Hour)))
		assert.Equal(t, now, paid.UpdatedAt())

		expired := order.NewOrder(uuid.New(), now)
		require.True(t, expired.MarkExpired(now))

		assert.False(t, expired.MarkPaid(now.Add(time.Hour)))
		assert.Equal(t, order.StatusExpired, expired.Status())
	})

	t.Run("attach invoice", func(t *testing.T) {
		o := order.NewOrder(uuid.New(), now)
		o.AttachInvoice("inv_abc", "https://pay.example.com/i/abc")
		assert.Equal(t, "inv_abc", o.InvoiceID())
		assert.Equal(t, "https://pay.example.com/i/abc", o.InvoiceLink())
	})
}

func TestStatus(t *testing.T) {
	cases := []struct {
		name   string
		from   order.Status
		to     order.Status
		expect bool
	}{
		{name: "unpaid to paid", from: order.StatusUnpaid, to: order.StatusPaid, expect: true},
		{name: "unpaid to expired", from: order.StatusUnpaid, to: order.StatusExpired, expect: true},
		{name: "unpaid to unpaid", from: order.StatusUnpaid, to: order.StatusUnpaid, expect: false},
		{name: "paid to expired", from: order.StatusPaid, to: order.StatusExpired, expect: false},
		{name: "paid to unpaid", from: order.StatusPaid, to: order.StatusUnpaid, expect: false},
		{name: "expired to paid", from: order.StatusExpired, to: order.StatusPaid, expect: false},
		{name: "expired to unpaid", from: order.StatusExpired, to: order.StatusUnpaid, expect: false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.expect, c.from.CanTransitionTo(c.to))
		})
	}

	t.Run("terminality", func(t *testing.T) {
		assert.False(t, order.StatusUnpaid.IsTerminal())
		assert.True(t, order.StatusPaid.IsTerminal())
		assert.True(t, order.StatusExpired.IsTerminal())
	})

	t.Run("validity", func(t *testing.T) {
		assert.True(t, order.StatusUnpaid.IsValid())
		assert.False(t, order.Status("cancelled").IsValid())
	})
}
