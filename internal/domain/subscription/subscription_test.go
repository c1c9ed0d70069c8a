package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	paymentVO "github.com/postline-io/postline/internal/domain/payment/valueobjects"
	vo "github.com/postline-io/postline/internal/domain/subscription/valueobjects"
)

// --- helpers ---

func newActiveSubscription(t *testing.T) *Subscription {
	t.Helper()
	start := time.Now().UTC()
	end := vo.CycleMonthly.NextPeriodEnd(start)
	sub, err := NewSubscription(1, 2, 3, paymentVO.ProviderStripe, "sub_123",
		vo.CycleMonthly, paymentVO.NewMoney(990, "USD"), start, end, nil)
	require.NoError(t, err)
	require.Equal(t, vo.StatusActive, sub.Status())
	return sub
}

func TestNewSubscription(t *testing.T) {
	t.Run("starts trialing when trial end is in the future", func(t *testing.T) {
		start := time.Now().UTC()
		end := vo.CycleMonthly.NextPeriodEnd(start)
		trialEnd := start.Add(7 * 24 * time.Hour)

		sub, err := NewSubscription(1, 2, 3, paymentVO.ProviderStripe, "sub_123",
			vo.CycleMonthly, paymentVO.NewMoney(990, "USD"), start, end, &trialEnd)

		require.NoError(t, err)
		assert.Equal(t, vo.StatusTrialing, sub.Status())
		assert.True(t, sub.IsLive())
	})

	t.Run("rejects inverted period", func(t *testing.T) {
		start := time.Now().UTC()
		_, err := NewSubscription(1, 2, 3, paymentVO.ProviderStripe, "sub_123",
			vo.CycleMonthly, paymentVO.NewMoney(990, "USD"), start, start.Add(-time.Hour), nil)
		assert.Error(t, err)
	})
}

func TestSubscriptionCancel(t *testing.T) {
	t.Run("records reason and timestamp", func(t *testing.T) {
		sub := newActiveSubscription(t)

		require.NoError(t, sub.Cancel("user_requested"))

		assert.Equal(t, vo.StatusCanceled, sub.Status())
		assert.NotNil(t, sub.CanceledAt())
		require.NotNil(t, sub.CancelReason())
		assert.Equal(t, "user_requested", *sub.CancelReason())
		assert.False(t, sub.IsLive())
	})

	t.Run("is idempotent", func(t *testing.T) {
		sub := newActiveSubscription(t)
		require.NoError(t, sub.Cancel("user_requested"))
		firstCanceledAt := sub.CanceledAt()

		require.NoError(t, sub.Cancel("again"))

		assert.Equal(t, firstCanceledAt, sub.CanceledAt())
		assert.Equal(t, "user_requested", *sub.CancelReason())
	})

	t.Run("cancels past_due subscription", func(t *testing.T) {
		sub := newActiveSubscription(t)
		require.NoError(t, sub.MarkPastDue())

		assert.NoError(t, sub.Cancel("provider_canceled"))
	})
}

func TestSubscriptionScheduleCancel(t *testing.T) {
	t.Run("flags the subscription without ending it", func(t *testing.T) {
		sub := newActiveSubscription(t)

		require.NoError(t, sub.ScheduleCancel("downgrade"))

		assert.True(t, sub.CancelAtPeriodEnd())
		assert.True(t, sub.IsLive())
		assert.Nil(t, sub.CanceledAt())
		require.NotNil(t, sub.CancelReason())
		assert.Equal(t, "downgrade", *sub.CancelReason())
	})

	t.Run("re-scheduling keeps the first reason", func(t *testing.T) {
		sub := newActiveSubscription(t)
		require.NoError(t, sub.ScheduleCancel("downgrade"))

		require.NoError(t, sub.ScheduleCancel("changed_mind"))

		assert.Equal(t, "downgrade", *sub.CancelReason())
	})

	t.Run("rejected once canceled", func(t *testing.T) {
		sub := newActiveSubscription(t)
		require.NoError(t, sub.Cancel("user_requested"))

		assert.Error(t, sub.ScheduleCancel("too_late"))
	})
}

func TestSubscriptionMarkPastDue(t *testing.T) {
	sub := newActiveSubscription(t)

	require.NoError(t, sub.MarkPastDue())
	assert.Equal(t, vo.StatusPastDue, sub.Status())
	assert.False(t, sub.Status().IsTerminal(), "past_due is recoverable")

	t.Run("rejected once canceled", func(t *testing.T) {
		canceled := newActiveSubscription(t)
		require.NoError(t, canceled.Cancel(""))
		assert.Error(t, canceled.MarkPastDue())
	})
}

func TestSubscriptionRenew(t *testing.T) {
	t.Run("advances the billing period", func(t *testing.T) {
		sub := newActiveSubscription(t)
		newStart := sub.CurrentPeriodEnd()
		newEnd := vo.CycleMonthly.NextPeriodEnd(newStart)

		require.NoError(t, sub.Renew(newStart, newEnd))

		assert.Equal(t, newStart, sub.CurrentPeriodStart())
		assert.Equal(t, newEnd, sub.CurrentPeriodEnd())
		assert.Equal(t, vo.StatusActive, sub.Status())
	})

	t.Run("recovers past_due to active", func(t *testing.T) {
		sub := newActiveSubscription(t)
		require.NoError(t, sub.MarkPastDue())

		newStart := sub.CurrentPeriodEnd()
		require.NoError(t, sub.Renew(newStart, vo.CycleMonthly.NextPeriodEnd(newStart)))

		assert.Equal(t, vo.StatusActive, sub.Status())
	})

	t.Run("rejected once canceled", func(t *testing.T) {
		sub := newActiveSubscription(t)
		require.NoError(t, sub.Cancel(""))

		newStart := sub.CurrentPeriodEnd()
		assert.Error(t, sub.Renew(newStart, vo.CycleMonthly.NextPeriodEnd(newStart)))
	})
}

func TestSubscriptionInCurrentPeriod(t *testing.T) {
	sub := newActiveSubscription(t)

	assert.True(t, sub.InCurrentPeriod(sub.CurrentPeriodStart()))
	assert.True(t, sub.InCurrentPeriod(sub.CurrentPeriodEnd().Add(-time.Second)))
	assert.False(t, sub.InCurrentPeriod(sub.CurrentPeriodEnd()))
	assert.False(t, sub.InCurrentPeriod(sub.CurrentPeriodStart().Add(-time.Second)))
}
