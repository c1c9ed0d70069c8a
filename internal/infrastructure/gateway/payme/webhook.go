package payme

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/postline-io/postline/internal/application/payment/gateway"
	vo "github.com/postline-io/postline/internal/domain/payment/valueobjects"
	"github.com/postline-io/postline/internal/shared/biztime"
	"github.com/postline-io/postline/internal/shared/errors"
)

// VerifyWebhookSignature validates the pre-shared credential the wallet sends
// with each callback. The digest scheme depends on deployment config: "hmac"
// signs the raw body with the merchant key, "md5" hashes body plus key.
// Either way the comparison is constant-time.
func (g *Gateway) VerifyWebhookSignature(payload []byte, signature string) error {
	if signature == "" {
		return errors.NewSignatureError("missing wallet credential header")
	}

	var expected string
	switch g.authMode {
	case "md5":
		sum := md5.Sum(append(append([]byte{}, payload...), []byte(g.apiKey)...))
		expected = hex.EncodeToString(sum[:])
	default:
		mac := hmac.New(sha256.New, []byte(g.apiKey))
		mac.Write(payload)
		expected = hex.EncodeToString(mac.Sum(nil))
	}

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return errors.NewSignatureError("wallet credential mismatch")
	}
	return nil
}

type rpcRequest struct {
	Method string `json:"method"`
	Params struct {
		ID          string                 `json:"id"`
		Amount      int64                  `json:"amount"`
		Reason      int                    `json:"reason"`
		PerformTime int64                  `json:"perform_time"`
		Account     map[string]interface{} `json:"account"`
	} `json:"params"`
}

// ParseWebhookEvent normalizes wallet JSON-RPC callbacks. The wallet has no
// event ids, so the dedup key is method-scoped per transaction: replaying a
// PerformTransaction callback hits the same synthetic id.
func (g *Gateway) ParseWebhookEvent(payload []byte) (*gateway.NormalizedEvent, error) {
	var req rpcRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, errors.NewValidationError("malformed wallet callback", err.Error())
	}
	if req.Params.ID == "" {
		return nil, errors.NewValidationError("wallet callback missing transaction id")
	}

	event := &gateway.NormalizedEvent{
		ProviderEventID: fmt.Sprintf("%s:%s", req.Params.ID, req.Method),
		ObjectID:        req.Params.ID,
		OccurredAt:      biztime.NowUTC(),
		Raw:             map[string]interface{}{"method": req.Method, "account": req.Params.Account},
	}
	if req.Params.PerformTime > 0 {
		event.OccurredAt = time.UnixMilli(req.Params.PerformTime).UTC()
	}
	if req.Params.Amount > 0 {
		money := vo.NewMoney(req.Params.Amount, "")
		event.Amount = &money
	}

	switch req.Method {
	case "PerformTransaction":
		event.Type = gateway.EventPaymentSucceeded
	case "CancelTransaction":
		event.Type = gateway.EventPaymentRefunded
		event.FailureCode = fmt.Sprintf("cancel_reason_%d", req.Params.Reason)
	default:
		// CheckPerformTransaction, CreateTransaction and status polls carry
		// no state change.
		event.Type = gateway.EventIgnored
	}

	return event, nil
}
