package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/postline-io/postline/internal/infrastructure/persistence/models"
)

func seedPlans(t *testing.T, db *gorm.DB) {
	t.Helper()
	plans := []models.PlanModel{
		{Name: "starter", MaxChannels: 1, MaxPostsPerMonth: 30, PriceMonthly: 0, PriceYearly: 0, Currency: "USD", IsActive: true},
		{Name: "pro", MaxChannels: 5, MaxPostsPerMonth: 500, PriceMonthly: 990, PriceYearly: 9900, Currency: "USD", IsActive: true},
		{Name: "legacy", MaxChannels: 3, MaxPostsPerMonth: 100, PriceMonthly: 490, PriceYearly: 4900, Currency: "USD", IsActive: false},
	}
	require.NoError(t, db.Create(&plans).Error)
}

func TestPlanRepository(t *testing.T) {
	db := setupTestDB(t)
	seedPlans(t, db)
	repo := NewPlanRepository(db)
	ctx := context.Background()

	t.Run("lists only active plans", func(t *testing.T) {
		plans, err := repo.ListActive(ctx)

		require.NoError(t, err)
		require.Len(t, plans, 2)
		for _, p := range plans {
			assert.True(t, p.IsActive())
			assert.NotEqual(t, "legacy", p.Name())
		}
	})

	t.Run("gets a plan by id, active or not", func(t *testing.T) {
		var legacy models.PlanModel
		require.NoError(t, db.Where("name = ?", "legacy").First(&legacy).Error)

		plan, err := repo.GetByID(ctx, legacy.ID)

		require.NoError(t, err)
		assert.Equal(t, "legacy", plan.Name())
		assert.False(t, plan.IsActive())
	})

	t.Run("missing plan is an error", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 9999)
		assert.Error(t, err)
	})
}
