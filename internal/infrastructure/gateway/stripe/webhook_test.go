package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postline-io/postline/internal/application/payment/gateway"
	"github.com/postline-io/postline/internal/shared/config"
	"github.com/postline-io/postline/internal/shared/logger"
)

const testWebhookSecret = "whsec_test_secret"

// --- helpers ---

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	return NewGateway(config.StripeConfig{
		APIKey:        "sk_test_key",
		WebhookSecret: testWebhookSecret,
	}, 5*time.Minute, 15*time.Second, logger.NewLogger())
}

func signPayload(secret string, ts int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func signatureHeader(secret string, ts int64, payload []byte) string {
	return fmt.Sprintf("t=%d,v1=%s", ts, signPayload(secret, ts, payload))
}

func TestNewGatewayClientTimeout(t *testing.T) {
	t.Run("uses the configured timeout", func(t *testing.T) {
		g := NewGateway(config.StripeConfig{APIKey: "sk"}, 0, 7*time.Second, logger.NewLogger())
		assert.Equal(t, 7*time.Second, g.client.Timeout)
	})

	t.Run("falls back to a default so requests can never hang", func(t *testing.T) {
		g := NewGateway(config.StripeConfig{APIKey: "sk"}, 0, 0, logger.NewLogger())
		assert.Equal(t, 15*time.Second, g.client.Timeout)
	})
}

func TestVerifyWebhookSignature(t *testing.T) {
	g := newTestGateway(t)
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)

	t.Run("accepts valid signature", func(t *testing.T) {
		ts := time.Now().Unix()
		assert.NoError(t, g.VerifyWebhookSignature(payload, signatureHeader(testWebhookSecret, ts, payload)))
	})

	t.Run("accepts when any v1 candidate matches", func(t *testing.T) {
		ts := time.Now().Unix()
		header := fmt.Sprintf("t=%d,v1=%s,v1=%s",
			ts, "deadbeef", signPayload(testWebhookSecret, ts, payload))
		assert.NoError(t, g.VerifyWebhookSignature(payload, header))
	})

	t.Run("rejects tampered body", func(t *testing.T) {
		ts := time.Now().Unix()
		header := signatureHeader(testWebhookSecret, ts, payload)
		tampered := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","amount":1}`)
		assert.Error(t, g.VerifyWebhookSignature(tampered, header))
	})

	t.Run("rejects wrong secret", func(t *testing.T) {
		ts := time.Now().Unix()
		header := signatureHeader("whsec_other", ts, payload)
		assert.Error(t, g.VerifyWebhookSignature(payload, header))
	})

	t.Run("rejects stale timestamp", func(t *testing.T) {
		ts := time.Now().Add(-10 * time.Minute).Unix()
		header := signatureHeader(testWebhookSecret, ts, payload)
		assert.Error(t, g.VerifyWebhookSignature(payload, header))
	})

	t.Run("rejects future timestamp outside tolerance", func(t *testing.T) {
		ts := time.Now().Add(10 * time.Minute).Unix()
		header := signatureHeader(testWebhookSecret, ts, payload)
		assert.Error(t, g.VerifyWebhookSignature(payload, header))
	})

	t.Run("rejects missing header", func(t *testing.T) {
		assert.Error(t, g.VerifyWebhookSignature(payload, ""))
	})

	t.Run("rejects malformed header", func(t *testing.T) {
		assert.Error(t, g.VerifyWebhookSignature(payload, "v1=abc"))
		assert.Error(t, g.VerifyWebhookSignature(payload, "t=123"))
	})
}

func TestParseWebhookEvent(t *testing.T) {
	g := newTestGateway(t)

	t.Run("payment succeeded", func(t *testing.T) {
		payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","created":1700000000,
			"data":{"object":{"id":"pi_1","amount":990,"currency":"usd"}}}`)

		evt, err := g.ParseWebhookEvent(payload)

		require.NoError(t, err)
		assert.Equal(t, "evt_1", evt.ProviderEventID)
		assert.Equal(t, gateway.EventPaymentSucceeded, evt.Type)
		assert.Equal(t, "pi_1", evt.ObjectID)
		require.NotNil(t, evt.Amount)
		assert.Equal(t, int64(990), evt.Amount.AmountInCents())
		assert.Equal(t, "USD", evt.Amount.Currency())
	})

	t.Run("payment failed carries decline code", func(t *testing.T) {
		payload := []byte(`{"id":"evt_2","type":"payment_intent.payment_failed",
			"data":{"object":{"id":"pi_2","last_payment_error":{"code":"card_declined","decline_code":"insufficient_funds","message":"declined"}}}}`)

		evt, err := g.ParseWebhookEvent(payload)

		require.NoError(t, err)
		assert.Equal(t, gateway.EventPaymentFailed, evt.Type)
		assert.Equal(t, "insufficient_funds", evt.FailureCode)
		assert.Equal(t, "declined", evt.FailureMessage)
	})

	t.Run("refund resolves to the payment intent", func(t *testing.T) {
		payload := []byte(`{"id":"evt_3","type":"charge.refunded",
			"data":{"object":{"id":"ch_1","payment_intent":"pi_3"}}}`)

		evt, err := g.ParseWebhookEvent(payload)

		require.NoError(t, err)
		assert.Equal(t, gateway.EventPaymentRefunded, evt.Type)
		assert.Equal(t, "pi_3", evt.ObjectID)
	})

	t.Run("invoice paid maps to subscription renewal", func(t *testing.T) {
		payload := []byte(`{"id":"evt_4","type":"invoice.paid",
			"data":{"object":{"id":"in_1","subscription":"sub_1","amount_paid":990,"currency":"usd"}}}`)

		evt, err := g.ParseWebhookEvent(payload)

		require.NoError(t, err)
		assert.Equal(t, gateway.EventSubscriptionRenewed, evt.Type)
		assert.Equal(t, "sub_1", evt.ObjectID)
		require.NotNil(t, evt.Amount)
		assert.Equal(t, int64(990), evt.Amount.AmountInCents())
	})

	t.Run("invoice payment failed maps to past due", func(t *testing.T) {
		payload := []byte(`{"id":"evt_5","type":"invoice.payment_failed",
			"data":{"object":{"subscription":"sub_1"}}}`)

		evt, err := g.ParseWebhookEvent(payload)

		require.NoError(t, err)
		assert.Equal(t, gateway.EventSubscriptionPastDue, evt.Type)
	})

	t.Run("subscription deleted maps to canceled", func(t *testing.T) {
		payload := []byte(`{"id":"evt_6","type":"customer.subscription.deleted",
			"data":{"object":{"id":"sub_1"}}}`)

		evt, err := g.ParseWebhookEvent(payload)

		require.NoError(t, err)
		assert.Equal(t, gateway.EventSubscriptionCanceled, evt.Type)
		assert.Equal(t, "sub_1", evt.ObjectID)
	})

	t.Run("unknown type is ignored, not an error", func(t *testing.T) {
		payload := []byte(`{"id":"evt_7","type":"customer.created","data":{"object":{}}}`)

		evt, err := g.ParseWebhookEvent(payload)

		require.NoError(t, err)
		assert.Equal(t, gateway.EventIgnored, evt.Type)
	})

	t.Run("rejects payload without event id", func(t *testing.T) {
		_, err := g.ParseWebhookEvent([]byte(`{"type":"payment_intent.succeeded"}`))
		assert.Error(t, err)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		_, err := g.ParseWebhookEvent([]byte(`{`))
		assert.Error(t, err)
	})
}
