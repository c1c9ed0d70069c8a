package payme

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postline-io/postline/internal/application/payment/gateway"
	"github.com/postline-io/postline/internal/shared/config"
	"github.com/postline-io/postline/internal/shared/logger"
)

const testAPIKey = "wallet_merchant_key"

func newTestGateway(t *testing.T, authMode string) *Gateway {
	t.Helper()
	return NewGateway(config.PaymeConfig{
		MerchantID: "m1",
		APIKey:     testAPIKey,
		AuthMode:   authMode,
	}, 15*time.Second, logger.NewLogger())
}

func hmacDigest(key string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func md5Digest(key string, payload []byte) string {
	sum := md5.Sum(append(append([]byte{}, payload...), []byte(key)...))
	return hex.EncodeToString(sum[:])
}

func TestNewGatewayClientTimeout(t *testing.T) {
	g := NewGateway(config.PaymeConfig{MerchantID: "m1"}, 7*time.Second, logger.NewLogger())
	assert.Equal(t, 7*time.Second, g.client.Timeout)

	g = NewGateway(config.PaymeConfig{MerchantID: "m1"}, 0, logger.NewLogger())
	assert.Equal(t, 15*time.Second, g.client.Timeout)
}

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"method":"PerformTransaction","params":{"id":"tx1"}}`)

	t.Run("hmac mode accepts matching digest", func(t *testing.T) {
		g := newTestGateway(t, "hmac")
		assert.NoError(t, g.VerifyWebhookSignature(payload, hmacDigest(testAPIKey, payload)))
	})

	t.Run("hmac mode rejects md5 digest", func(t *testing.T) {
		g := newTestGateway(t, "hmac")
		assert.Error(t, g.VerifyWebhookSignature(payload, md5Digest(testAPIKey, payload)))
	})

	t.Run("md5 mode accepts matching digest", func(t *testing.T) {
		g := newTestGateway(t, "md5")
		assert.NoError(t, g.VerifyWebhookSignature(payload, md5Digest(testAPIKey, payload)))
	})

	t.Run("rejects wrong key", func(t *testing.T) {
		g := newTestGateway(t, "hmac")
		assert.Error(t, g.VerifyWebhookSignature(payload, hmacDigest("other_key", payload)))
	})

	t.Run("rejects tampered body", func(t *testing.T) {
		g := newTestGateway(t, "hmac")
		digest := hmacDigest(testAPIKey, payload)
		assert.Error(t, g.VerifyWebhookSignature([]byte(`{"method":"CancelTransaction"}`), digest))
	})

	t.Run("rejects empty credential", func(t *testing.T) {
		g := newTestGateway(t, "hmac")
		assert.Error(t, g.VerifyWebhookSignature(payload, ""))
	})
}

func TestParseWebhookEvent(t *testing.T) {
	g := newTestGateway(t, "hmac")

	t.Run("perform maps to payment succeeded", func(t *testing.T) {
		payload := []byte(`{"method":"PerformTransaction","params":{"id":"tx1","amount":99000,"perform_time":1700000000000,"account":{"order_no":"PAY123"}}}`)

		evt, err := g.ParseWebhookEvent(payload)

		require.NoError(t, err)
		assert.Equal(t, "tx1:PerformTransaction", evt.ProviderEventID)
		assert.Equal(t, gateway.EventPaymentSucceeded, evt.Type)
		assert.Equal(t, "tx1", evt.ObjectID)
		require.NotNil(t, evt.Amount)
		assert.Equal(t, int64(99000), evt.Amount.AmountInCents())
	})

	t.Run("cancel maps to refund with reason code", func(t *testing.T) {
		payload := []byte(`{"method":"CancelTransaction","params":{"id":"tx1","reason":5}}`)

		evt, err := g.ParseWebhookEvent(payload)

		require.NoError(t, err)
		assert.Equal(t, "tx1:CancelTransaction", evt.ProviderEventID)
		assert.Equal(t, gateway.EventPaymentRefunded, evt.Type)
		assert.Equal(t, "cancel_reason_5", evt.FailureCode)
	})

	t.Run("check and create are ignored", func(t *testing.T) {
		for _, method := range []string{"CheckPerformTransaction", "CreateTransaction", "CheckTransaction"} {
			payload := []byte(`{"method":"` + method + `","params":{"id":"tx1"}}`)

			evt, err := g.ParseWebhookEvent(payload)

			require.NoError(t, err)
			assert.Equal(t, gateway.EventIgnored, evt.Type, method)
		}
	})

	t.Run("replayed perform produces the same event id", func(t *testing.T) {
		payload := []byte(`{"method":"PerformTransaction","params":{"id":"tx1"}}`)

		first, err := g.ParseWebhookEvent(payload)
		require.NoError(t, err)
		second, err := g.ParseWebhookEvent(payload)
		require.NoError(t, err)

		assert.Equal(t, first.ProviderEventID, second.ProviderEventID)
	})

	t.Run("rejects callback without transaction id", func(t *testing.T) {
		_, err := g.ParseWebhookEvent([]byte(`{"method":"PerformTransaction","params":{}}`))
		assert.Error(t, err)
	})
}
