package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postline-io/postline/internal/domain/payment"
	vo "github.com/postline-io/postline/internal/domain/payment/valueobjects"
)

func newTestMethod(t *testing.T, userID uint, providerMethodID string, isDefault bool) *payment.PaymentMethod {
	t.Helper()
	m, err := payment.NewPaymentMethod(userID, vo.ProviderStripe, "cus_1", providerMethodID,
		vo.MethodTypeCard, "4242", "visa", isDefault)
	require.NoError(t, err)
	return m
}

func TestPaymentMethodRepository(t *testing.T) {
	repo := NewPaymentMethodRepository(setupTestDB(t))
	ctx := context.Background()

	t.Run("round-trips a method", func(t *testing.T) {
		m := newTestMethod(t, 1, "pm_1", true)
		require.NoError(t, repo.Create(ctx, m))
		require.NotZero(t, m.ID())

		found, err := repo.GetByID(ctx, m.ID())

		require.NoError(t, err)
		assert.Equal(t, "pm_1", found.ProviderMethodID())
		assert.Equal(t, "4242", found.LastFour())
		assert.True(t, found.IsDefault())
	})

	t.Run("deactivated methods drop out of the active list", func(t *testing.T) {
		active := newTestMethod(t, 2, "pm_2", false)
		require.NoError(t, repo.Create(ctx, active))

		inactive := newTestMethod(t, 2, "pm_3", false)
		require.NoError(t, repo.Create(ctx, inactive))
		inactive.Deactivate()
		require.NoError(t, repo.Update(ctx, inactive))

		methods, err := repo.ListActiveByUserID(ctx, 2)

		require.NoError(t, err)
		require.Len(t, methods, 1)
		assert.Equal(t, active.ID(), methods[0].ID())
	})

	t.Run("clearing defaults affects only the given user", func(t *testing.T) {
		mine := newTestMethod(t, 3, "pm_4", true)
		require.NoError(t, repo.Create(ctx, mine))
		other := newTestMethod(t, 4, "pm_5", true)
		require.NoError(t, repo.Create(ctx, other))

		require.NoError(t, repo.ClearDefaultForUser(ctx, 3))

		found, err := repo.GetByID(ctx, mine.ID())
		require.NoError(t, err)
		assert.False(t, found.IsDefault())

		otherFound, err := repo.GetByID(ctx, other.ID())
		require.NoError(t, err)
		assert.True(t, otherFound.IsDefault())
	})
}
