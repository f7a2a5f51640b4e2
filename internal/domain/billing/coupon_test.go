package billing

import (
	"testing"
	"time"

	"github.com/fablab/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCoupon(t *testing.T) {
	t.Run("normalizes the code", func(t *testing.T) {
		coupon, err := NewPercentCoupon("  welcome10 ", decimal.NewFromInt(10))
		require.NoError(t, err)
		assert.Equal(t, "WELCOME10", coupon.Code)
		assert.True(t, coupon.Active)
	})

	t.Run("rejects empty code", func(t *testing.T) {
		_, err := NewPercentCoupon("", decimal.NewFromInt(10))
		assert.Error(t, err)
	})

	t.Run("rejects percentage out of range", func(t *testing.T) {
		_, err := NewPercentCoupon("BAD", decimal.Zero)
		assert.Error(t, err)
		_, err = NewPercentCoupon("BAD", decimal.NewFromInt(101))
		assert.Error(t, err)
	})

	t.Run("rejects non positive amount", func(t *testing.T) {
		_, err := NewAmountCoupon("BAD", valueobject.ZeroEUR())
		assert.Error(t, err)
	})
}

func TestCouponIsUsableAt(t *testing.T) {
	now := time.Now()

	coupon, err := NewPercentCoupon("WINDOW", decimal.NewFromInt(10))
	require.NoError(t, err)
	until := now.Add(24 * time.Hour)
	coupon.WithValidity(now.Add(-time.Hour), &until)

	assert.True(t, coupon.IsUsableAt(now))
	assert.False(t, coupon.IsUsableAt(now.Add(-2*time.Hour)))
	assert.False(t, coupon.IsUsableAt(now.Add(48*time.Hour)))

	coupon.Deactivate()
	assert.False(t, coupon.IsUsableAt(now))
}

func TestDiscountServiceApply(t *testing.T) {
	discount := NewDiscountService()
	profileID := uuid.New()

	t.Run("nil coupon leaves amount unchanged", func(t *testing.T) {
		amount := valueobject.NewMoneyEURFromCents(10000)
		result, err := discount.Apply(amount, nil, profileID)
		require.NoError(t, err)
		assert.True(t, result.Equals(amount))
	})

	t.Run("percent coupon rounds to cents", func(t *testing.T) {
		coupon, err := NewPercentCoupon("THIRD", decimal.NewFromInt(33))
		require.NoError(t, err)

		result, err := discount.Apply(valueobject.NewMoneyEURFromCents(9999), coupon, profileID)
		require.NoError(t, err)
		// 99.99 * 0.67 = 66.9933, rounded to 66.99
		assert.Equal(t, int64(6699), result.Cents())
	})

	t.Run("amount coupon clamps at zero", func(t *testing.T) {
		coupon, err := NewAmountCoupon("BIG", valueobject.NewMoneyEURFromCents(5000))
		require.NoError(t, err)

		result, err := discount.Apply(valueobject.NewMoneyEURFromCents(3000), coupon, profileID)
		require.NoError(t, err)
		assert.True(t, result.IsZero())
	})

	t.Run("expired coupon is rejected", func(t *testing.T) {
		coupon, err := NewPercentCoupon("OLD", decimal.NewFromInt(10))
		require.NoError(t, err)
		past := time.Now().Add(-time.Hour)
		coupon.WithValidity(past.Add(-time.Hour), &past)

		_, err = discount.Apply(valueobject.NewMoneyEURFromCents(1000), coupon, profileID)
		assert.Error(t, err)
	})
}
