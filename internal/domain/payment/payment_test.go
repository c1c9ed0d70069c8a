package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "github.com/postline-io/postline/internal/domain/payment/valueobjects"
)

// --- helpers ---

func newPendingPayment(t *testing.T) *Payment {
	t.Helper()
	p, err := NewPayment(1, 10, vo.ProviderStripe, vo.NewMoney(990, "USD"), "key-1", "pro plan", nil)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

func TestNewPayment(t *testing.T) {
	t.Run("creates pending payment with order number", func(t *testing.T) {
		p := newPendingPayment(t)

		assert.Equal(t, vo.PaymentStatusPending, p.Status())
		assert.NotEmpty(t, p.OrderNo())
		assert.Equal(t, "key-1", p.IdempotencyKey())
		assert.Nil(t, p.PaidAt())
		assert.Equal(t, 0, p.Version())
	})

	t.Run("rejects missing idempotency key", func(t *testing.T) {
		_, err := NewPayment(1, 10, vo.ProviderStripe, vo.NewMoney(990, "USD"), "", "", nil)
		assert.Error(t, err)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		_, err := NewPayment(1, 10, vo.ProviderStripe, vo.NewMoney(0, "USD"), "key", "", nil)
		assert.Error(t, err)
	})

	t.Run("rejects unknown provider", func(t *testing.T) {
		_, err := NewPayment(1, 10, vo.Provider("paypal"), vo.NewMoney(990, "USD"), "key", "", nil)
		assert.Error(t, err)
	})
}

func TestPaymentMarkAsSucceeded(t *testing.T) {
	t.Run("records provider id and paid time", func(t *testing.T) {
		p := newPendingPayment(t)

		require.NoError(t, p.MarkAsSucceeded("pi_123"))

		assert.Equal(t, vo.PaymentStatusSucceeded, p.Status())
		require.NotNil(t, p.ProviderPaymentID())
		assert.Equal(t, "pi_123", *p.ProviderPaymentID())
		assert.NotNil(t, p.PaidAt())
		assert.Equal(t, 1, p.Version())
	})

	t.Run("is idempotent", func(t *testing.T) {
		p := newPendingPayment(t)
		require.NoError(t, p.MarkAsSucceeded("pi_123"))

		require.NoError(t, p.MarkAsSucceeded("pi_456"))

		assert.Equal(t, "pi_123", *p.ProviderPaymentID())
		assert.Equal(t, 1, p.Version())
	})

	t.Run("rejects transition from failed", func(t *testing.T) {
		p := newPendingPayment(t)
		require.NoError(t, p.MarkAsFailed("card_declined", "declined"))

		assert.Error(t, p.MarkAsSucceeded("pi_123"))
	})
}

func TestPaymentMarkAsFailed(t *testing.T) {
	t.Run("records failure details", func(t *testing.T) {
		p := newPendingPayment(t)

		require.NoError(t, p.MarkAsFailed("card_declined", "insufficient funds"))

		assert.Equal(t, vo.PaymentStatusFailed, p.Status())
		require.NotNil(t, p.FailureCode())
		assert.Equal(t, "card_declined", *p.FailureCode())
		assert.Equal(t, "insufficient funds", *p.FailureMessage())
	})

	t.Run("rejects transition from succeeded", func(t *testing.T) {
		p := newPendingPayment(t)
		require.NoError(t, p.MarkAsSucceeded("pi_123"))

		assert.Error(t, p.MarkAsFailed("x", "y"))
	})
}

func TestPaymentMarkAsRefunded(t *testing.T) {
	t.Run("refunds succeeded payment", func(t *testing.T) {
		p := newPendingPayment(t)
		require.NoError(t, p.MarkAsSucceeded("pi_123"))

		require.NoError(t, p.MarkAsRefunded("re_123"))

		assert.Equal(t, vo.PaymentStatusRefunded, p.Status())
		require.NotNil(t, p.RefundID())
		assert.Equal(t, "re_123", *p.RefundID())
		assert.NotNil(t, p.RefundedAt())
	})

	t.Run("is idempotent", func(t *testing.T) {
		p := newPendingPayment(t)
		require.NoError(t, p.MarkAsSucceeded("pi_123"))
		require.NoError(t, p.MarkAsRefunded("re_123"))

		require.NoError(t, p.MarkAsRefunded("re_456"))
		assert.Equal(t, "re_123", *p.RefundID())
	})

	t.Run("rejects refund of pending payment", func(t *testing.T) {
		p := newPendingPayment(t)
		assert.Error(t, p.MarkAsRefunded("re_123"))
	})

	t.Run("rejects refund of failed payment", func(t *testing.T) {
		p := newPendingPayment(t)
		require.NoError(t, p.MarkAsFailed("card_declined", "declined"))
		assert.Error(t, p.MarkAsRefunded("re_123"))
	})
}

func TestPaymentMatchesRequest(t *testing.T) {
	p := newPendingPayment(t)

	assert.True(t, p.MatchesRequest(vo.NewMoney(990, "USD"), 10))
	assert.False(t, p.MatchesRequest(vo.NewMoney(1990, "USD"), 10), "different amount is a conflict")
	assert.False(t, p.MatchesRequest(vo.NewMoney(990, "USD"), 11), "different method is a conflict")
	assert.False(t, p.MatchesRequest(vo.NewMoney(990, "EUR"), 10), "different currency is a conflict")
}
