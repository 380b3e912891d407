package service

import (
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/stretchr/testify/require"
)

func TestDiscountAmount_Rounding(t *testing.T) {
	cases := []struct {
		name       string
		subtotal   int64
		percentage int32
		want       int64
	}{
		{"exact", 10000, 10, 1000},
		{"rounds half up", 1050, 10, 105},
		{"rounds up at half cent", 999, 15, 150}, // 149.85 -> 150
		{"rounds down below half", 1001, 10, 100},
		{"full discount", 500, 100, 500},
		{"zero subtotal", 0, 50, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, discountAmount(tc.subtotal, tc.percentage))
		})
	}
}

func TestNormalizeCode(t *testing.T) {
	require.Equal(t, "SAVE10", NormalizeCode("  save10 "))
	require.Equal(t, "", NormalizeCode("   "))
}

func TestValidateDiscount(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	minSub := int64(5000)
	maxUses := int32(2)
	before := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	base := func() *models.DiscountCode {
		return &models.DiscountCode{Code: "SAVE10", Percentage: 10, IsActive: true}
	}

	t.Run("valid", func(t *testing.T) {
		require.Empty(t, validateDiscount(base(), 10000, now))
	})
	t.Run("inactive", func(t *testing.T) {
		d := base()
		d.IsActive = false
		require.Equal(t, DiscountReasonInactive, validateDiscount(d, 10000, now))
	})
	t.Run("not started", func(t *testing.T) {
		d := base()
		d.StartsAt = &before
		require.Equal(t, DiscountReasonOutOfWindow, validateDiscount(d, 10000, now))
	})
	t.Run("expired", func(t *testing.T) {
		d := base()
		d.ExpiresAt = &past
		require.Equal(t, DiscountReasonOutOfWindow, validateDiscount(d, 10000, now))
	})
	t.Run("exhausted", func(t *testing.T) {
		d := base()
		d.MaxUses = &maxUses
		d.UsedCount = 2
		require.Equal(t, DiscountReasonExhausted, validateDiscount(d, 10000, now))
	})
	t.Run("below minimum", func(t *testing.T) {
		d := base()
		d.MinSubtotalCents = &minSub
		require.Equal(t, DiscountReasonBelowMinimum, validateDiscount(d, 4999, now))
	})
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to models.OrderStatus }{
		{models.OrderStatusPendingPayment, models.OrderStatusPaid},
		{models.OrderStatusPendingPayment, models.OrderStatusCancelled},
		{models.OrderStatusPaid, models.OrderStatusShipped},
		{models.OrderStatusShipped, models.OrderStatusDelivered},
	}
	for _, tc := range allowed {
		require.True(t, canTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	denied := []struct{ from, to models.OrderStatus }{
		{models.OrderStatusPendingPayment, models.OrderStatusShipped},
		{models.OrderStatusPaid, models.OrderStatusDelivered},
		{models.OrderStatusCancelled, models.OrderStatusPaid},
		{models.OrderStatusDelivered, models.OrderStatusShipped},
		{models.OrderStatusCancelled, models.OrderStatusCancelled},
	}
	for _, tc := range denied {
		require.False(t, canTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}
