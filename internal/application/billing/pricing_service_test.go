package billing

import (
	"context"
	"testing"
	"time"

	"github.com/fablab/backend/internal/domain/billing"
	"github.com/fablab/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPricingServicePrice(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()

	t.Run("prices an event reservation slot by slot", func(t *testing.T) {
		couponRepo := new(MockCouponRepository)
		service := NewPricingService(couponRepo, zap.NewNop())

		start := time.Date(2026, 9, 12, 9, 0, 0, 0, time.UTC)
		purchase := billing.EventPurchase{
			ReservationID: uuid.New(),
			EventTitle:    "Soldering workshop",
			Slots: []billing.EventSlot{
				{SlotID: uuid.New(), StartAt: start, EndAt: start.Add(3 * time.Hour), Price: valueobject.NewMoneyEURFromCents(2000)},
				{SlotID: uuid.New(), StartAt: start.AddDate(0, 0, 7), EndAt: start.AddDate(0, 0, 7).Add(3 * time.Hour), Price: valueobject.NewMoneyEURFromCents(2000)},
			},
		}

		priced, err := service.Price(ctx, purchase, "", customerID)
		require.NoError(t, err)
		assert.Equal(t, billing.PurchaseKindEvent, priced.Kind)
		require.Len(t, priced.Items, 2)
		assert.True(t, priced.Items[0].MainItem)
		assert.False(t, priced.Items[1].MainItem)
		assert.Equal(t, "Soldering workshop", priced.Items[0].Description)
		assert.Equal(t, int64(4000), priced.Total().Cents())
		assert.Nil(t, priced.Coupon)
	})

	t.Run("prices a machine reservation", func(t *testing.T) {
		couponRepo := new(MockCouponRepository)
		service := NewPricingService(couponRepo, zap.NewNop())

		start := time.Now()
		purchase := billing.SlotPurchase{
			ReservationID:  uuid.New(),
			ReservableName: "Laser cutter",
			Slots: []billing.ReservedSlot{
				{SlotID: uuid.New(), StartAt: start, EndAt: start.Add(time.Hour), Price: valueobject.NewMoneyEURFromCents(1500)},
			},
		}

		priced, err := service.Price(ctx, purchase, "", customerID)
		require.NoError(t, err)
		assert.Equal(t, billing.PurchaseKindSlot, priced.Kind)
		require.Len(t, priced.Items, 1)
		assert.Equal(t, "Laser cutter", priced.Items[0].Description)
		require.NotNil(t, priced.Items[0].SlotID)
	})

	t.Run("prices a plan subscription", func(t *testing.T) {
		couponRepo := new(MockCouponRepository)
		service := NewPricingService(couponRepo, zap.NewNop())

		plan, err := billing.NewPlan("Pro", valueobject.NewMoneyEURFromCents(12000), 12, "prod_pro")
		require.NoError(t, err)
		subscriptionID := uuid.New()

		priced, err := service.Price(ctx, billing.SubscriptionPurchase{SubscriptionID: subscriptionID, Plan: plan}, "", customerID)
		require.NoError(t, err)
		require.Len(t, priced.Items, 1)
		assert.Equal(t, "Pro subscription", priced.Items[0].Description)
		assert.Equal(t, int64(12000), priced.Items[0].Amount.Cents())
		require.NotNil(t, priced.Items[0].SubscriptionID)
		assert.Equal(t, subscriptionID, *priced.Items[0].SubscriptionID)
	})

	t.Run("resolves the coupon by normalized code", func(t *testing.T) {
		couponRepo := new(MockCouponRepository)
		service := NewPricingService(couponRepo, zap.NewNop())

		coupon, err := billing.NewPercentCoupon("WELCOME10", decimal.NewFromInt(10))
		require.NoError(t, err)
		couponRepo.On("FindByCode", mock.Anything, "WELCOME10").Return(coupon, nil)

		plan, err := billing.NewPlan("Pro", valueobject.NewMoneyEURFromCents(12000), 12, "prod_pro")
		require.NoError(t, err)

		priced, err := service.Price(ctx, billing.SubscriptionPurchase{SubscriptionID: uuid.New(), Plan: plan}, " welcome10 ", customerID)
		require.NoError(t, err)
		require.NotNil(t, priced.Coupon)
		assert.Equal(t, "WELCOME10", priced.Coupon.Code)
		couponRepo.AssertExpectations(t)
	})

	t.Run("rejects empty reservations", func(t *testing.T) {
		couponRepo := new(MockCouponRepository)
		service := NewPricingService(couponRepo, zap.NewNop())

		_, err := service.Price(ctx, billing.EventPurchase{ReservationID: uuid.New(), EventTitle: "Empty"}, "", customerID)
		assert.Error(t, err)
	})

	t.Run("rejects missing customer", func(t *testing.T) {
		couponRepo := new(MockCouponRepository)
		service := NewPricingService(couponRepo, zap.NewNop())

		_, err := service.Price(ctx, billing.SlotPurchase{ReservationID: uuid.New()}, "", uuid.Nil)
		assert.Error(t, err)
	})
}
