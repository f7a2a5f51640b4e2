package persistence

import (
	"context"
	"testing"

	"github.com/fablab/backend/internal/domain/billing"
	"github.com/fablab/backend/internal/domain/shared"
	"github.com/fablab/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanRepository(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormPlanRepository(db)
	ctx := context.Background()

	t.Run("round-trips a plan", func(t *testing.T) {
		plan, err := billing.NewPlan("Annual membership", valueobject.NewMoneyEUR(decimal.NewFromInt(240)), 12, "prod_annual")
		require.NoError(t, err)

		require.NoError(t, repo.Save(ctx, plan))

		found, err := repo.FindByID(ctx, plan.ID)
		require.NoError(t, err)
		assert.Equal(t, "Annual membership", found.Name)
		assert.True(t, found.Price.Equals(valueobject.NewMoneyEUR(decimal.NewFromInt(240))))
		assert.Equal(t, 12, found.DurationMonths)
		assert.True(t, found.MonthlyPayment)
		assert.Equal(t, "prod_annual", found.GatewayProductID)
	})

	t.Run("returns ErrNotFound for unknown plan", func(t *testing.T) {
		found, err := repo.FindByID(ctx, uuid.New())
		assert.Nil(t, found)
		assert.Equal(t, shared.ErrNotFound, err)
	})

	t.Run("lists plans filtered by installment eligibility", func(t *testing.T) {
		oneShot, err := billing.NewPlan("Day pass", valueobject.NewMoneyEUR(decimal.NewFromInt(15)), 1, "prod_day")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, oneShot))

		plans, err := repo.FindAll(ctx, shared.Filter{
			Filters: map[string]interface{}{"monthly_payment": true},
		})
		require.NoError(t, err)
		require.Len(t, plans, 1)
		assert.Equal(t, "Annual membership", plans[0].Name)
	})

	t.Run("searches by name", func(t *testing.T) {
		plans, err := repo.FindAll(ctx, shared.Filter{Search: "day"})
		require.NoError(t, err)
		require.Len(t, plans, 1)
		assert.Equal(t, "Day pass", plans[0].Name)
	})
}
