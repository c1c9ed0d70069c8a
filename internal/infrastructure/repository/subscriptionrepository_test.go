package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	paymentVO "github.com/postline-io/postline/internal/domain/payment/valueobjects"
	"github.com/postline-io/postline/internal/domain/subscription"
	vo "github.com/postline-io/postline/internal/domain/subscription/valueobjects"
	"github.com/postline-io/postline/internal/shared/errors"
)

func newTestSubscription(t *testing.T, userID uint, providerSubID string) *subscription.Subscription {
	t.Helper()
	start := time.Now().UTC().Add(-time.Hour)
	sub, err := subscription.NewSubscription(userID, 1, 1, paymentVO.ProviderStripe, providerSubID,
		vo.CycleMonthly, paymentVO.NewMoney(990, "USD"), start, vo.CycleMonthly.NextPeriodEnd(start), nil)
	require.NoError(t, err)
	return sub
}

func TestSubscriptionRepositoryActiveMarker(t *testing.T) {
	repo := NewSubscriptionRepository(setupTestDB(t))
	ctx := context.Background()

	t.Run("one live subscription per user", func(t *testing.T) {
		first := newTestSubscription(t, 1, "sub_1")
		require.NoError(t, repo.Create(ctx, first))

		err := repo.Create(ctx, newTestSubscription(t, 1, "sub_2"))

		require.Error(t, err, "the unique active marker must reject a second live row")
		assert.True(t, errors.IsDuplicateError(err))
	})

	t.Run("canceling frees the marker for a replacement", func(t *testing.T) {
		live, err := repo.GetLiveByUserID(ctx, 1)
		require.NoError(t, err)

		require.NoError(t, live.Cancel("replaced_by_new_subscription"))
		require.NoError(t, repo.Update(ctx, live))

		replacement := newTestSubscription(t, 1, "sub_3")
		require.NoError(t, repo.Create(ctx, replacement))

		found, err := repo.GetLiveByUserID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, replacement.ID(), found.ID())
	})

	t.Run("markers of different users do not collide", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, newTestSubscription(t, 2, "sub_4")))
		require.NoError(t, repo.Create(ctx, newTestSubscription(t, 3, "sub_5")))
	})
}

func TestSubscriptionRepositoryLookups(t *testing.T) {
	repo := NewSubscriptionRepository(setupTestDB(t))
	ctx := context.Background()

	sub := newTestSubscription(t, 1, "sub_lookup")
	require.NoError(t, repo.Create(ctx, sub))

	t.Run("by id round-trips the aggregate", func(t *testing.T) {
		found, err := repo.GetByID(ctx, sub.ID())

		require.NoError(t, err)
		assert.Equal(t, vo.StatusActive, found.Status())
		assert.Equal(t, sub.ProviderSubscriptionID(), found.ProviderSubscriptionID())
		assert.Equal(t, int64(990), found.Amount().AmountInCents())
	})

	t.Run("by provider subscription id", func(t *testing.T) {
		found, err := repo.GetByProviderSubscriptionID(ctx, "stripe", "sub_lookup")

		require.NoError(t, err)
		assert.Equal(t, sub.ID(), found.ID())
	})

	t.Run("a scheduled period-end cancel stays live and round-trips", func(t *testing.T) {
		require.NoError(t, sub.ScheduleCancel("downgrade"))
		require.NoError(t, repo.Update(ctx, sub))

		found, err := repo.GetLiveByUserID(ctx, 1)
		require.NoError(t, err, "a scheduled cancel keeps the subscription live")
		assert.True(t, found.CancelAtPeriodEnd())
		require.NotNil(t, found.CancelReason())
		assert.Equal(t, "downgrade", *found.CancelReason())
	})

	t.Run("a canceled subscription is no longer live", func(t *testing.T) {
		require.NoError(t, sub.Cancel("user_requested"))
		require.NoError(t, repo.Update(ctx, sub))

		_, err := repo.GetLiveByUserID(ctx, 1)
		assert.Error(t, err)

		found, err := repo.GetByID(ctx, sub.ID())
		require.NoError(t, err)
		assert.Equal(t, vo.StatusCanceled, found.Status())
		require.NotNil(t, found.CancelReason())
		assert.Equal(t, "user_requested", *found.CancelReason())
	})
}

func TestSubscriptionRepositoryRenewPersists(t *testing.T) {
	repo := NewSubscriptionRepository(setupTestDB(t))
	ctx := context.Background()

	sub := newTestSubscription(t, 1, "sub_renew")
	require.NoError(t, repo.Create(ctx, sub))

	newStart := sub.CurrentPeriodEnd()
	require.NoError(t, sub.Renew(newStart, vo.CycleMonthly.NextPeriodEnd(newStart)))
	require.NoError(t, repo.Update(ctx, sub))

	found, err := repo.GetByID(ctx, sub.ID())
	require.NoError(t, err)
	assert.WithinDuration(t, newStart, found.CurrentPeriodStart(), time.Second)
	assert.Equal(t, sub.Version(), found.Version())
}
