package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/postline-io/postline/internal/application/payment/gateway"
	vo "github.com/postline-io/postline/internal/domain/payment/valueobjects"
	"github.com/postline-io/postline/internal/shared/biztime"
	"github.com/postline-io/postline/internal/shared/errors"
)

// VerifyWebhookSignature checks a `t=<unix_ts>,v1=<hex>` signature header.
// The signed string is "<ts>.<raw_body>". A header may carry several v1
// candidates after secret rotation; any single match accepts. Timestamps
// outside the tolerance window are rejected before any HMAC work.
func (g *Gateway) VerifyWebhookSignature(payload []byte, signature string) error {
	timestamp, candidates, err := parseSignatureHeader(signature)
	if err != nil {
		return err
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return errors.NewSignatureError("invalid signature timestamp")
	}
	age := biztime.NowUTC().Sub(time.Unix(ts, 0))
	if age > g.tolerance || age < -g.tolerance {
		return errors.NewSignatureError("signature timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, candidate := range candidates {
		decoded, err := hex.DecodeString(candidate)
		if err != nil {
			continue
		}
		if hmac.Equal(expected, decoded) {
			return nil
		}
	}
	return errors.NewSignatureError("no signature candidate matched")
}

func parseSignatureHeader(header string) (timestamp string, candidates []string, err error) {
	if header == "" {
		return "", nil, errors.NewSignatureError("missing signature header")
	}
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			candidates = append(candidates, kv[1])
		}
	}
	if timestamp == "" || len(candidates) == 0 {
		return "", nil, errors.NewSignatureError("malformed signature header")
	}
	return timestamp, candidates, nil
}

type webhookEnvelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object map[string]interface{} `json:"object"`
	} `json:"data"`
}

// ParseWebhookEvent normalizes a verified card-network event. Unhandled event
// types come back as EventIgnored, never an error.
func (g *Gateway) ParseWebhookEvent(payload []byte) (*gateway.NormalizedEvent, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, errors.NewValidationError("malformed webhook payload", err.Error())
	}
	if env.ID == "" {
		return nil, errors.NewValidationError("webhook payload missing event id")
	}

	event := &gateway.NormalizedEvent{
		ProviderEventID: env.ID,
		OccurredAt:      time.Unix(env.Created, 0).UTC(),
		Raw:             env.Data.Object,
	}

	obj := env.Data.Object
	switch env.Type {
	case "payment_intent.succeeded":
		event.Type = gateway.EventPaymentSucceeded
		event.ObjectID = stringField(obj, "id")
		event.Amount = amountField(obj, "amount", "currency")
	case "payment_intent.payment_failed":
		event.Type = gateway.EventPaymentFailed
		event.ObjectID = stringField(obj, "id")
		if lastErr, ok := obj["last_payment_error"].(map[string]interface{}); ok {
			event.FailureCode = stringField(lastErr, "decline_code")
			if event.FailureCode == "" {
				event.FailureCode = stringField(lastErr, "code")
			}
			event.FailureMessage = stringField(lastErr, "message")
		}
	case "charge.refunded":
		event.Type = gateway.EventPaymentRefunded
		event.ObjectID = stringField(obj, "payment_intent")
	case "invoice.paid":
		event.Type = gateway.EventSubscriptionRenewed
		event.ObjectID = stringField(obj, "subscription")
		event.Amount = amountField(obj, "amount_paid", "currency")
	case "invoice.payment_failed":
		event.Type = gateway.EventSubscriptionPastDue
		event.ObjectID = stringField(obj, "subscription")
	case "customer.subscription.deleted":
		event.Type = gateway.EventSubscriptionCanceled
		event.ObjectID = stringField(obj, "id")
	default:
		event.Type = gateway.EventIgnored
	}

	return event, nil
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func amountField(m map[string]interface{}, amountKey, currencyKey string) *vo.Money {
	raw, ok := m[amountKey].(float64)
	if !ok {
		return nil
	}
	money := vo.NewMoney(int64(raw), strings.ToUpper(stringField(m, currencyKey)))
	return &money
}
