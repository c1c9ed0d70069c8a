package click

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/postline-io/postline/internal/application/payment/gateway"
	vo "github.com/postline-io/postline/internal/domain/payment/valueobjects"
	"github.com/postline-io/postline/internal/shared/biztime"
	"github.com/postline-io/postline/internal/shared/errors"
)

// VerifyWebhookSignature checks the MD5 digest on an inbound prepare or
// complete callback. The payload is the raw form body; the digest covers the
// action-tagged field sequence plus the shared secret.
func (g *Gateway) VerifyWebhookSignature(payload []byte, signature string) error {
	if signature == "" {
		return errors.NewSignatureError("missing sign_string")
	}

	values, err := url.ParseQuery(string(payload))
	if err != nil {
		return errors.NewSignatureError("unparseable callback body")
	}

	action, err := strconv.Atoi(values.Get("action"))
	if err != nil {
		return errors.NewSignatureError("missing or invalid action")
	}

	fields := values.Get("click_trans_id") +
		values.Get("service_id") +
		g.secretKey +
		values.Get("merchant_trans_id")
	if action == actionComplete {
		fields += values.Get("merchant_prepare_id")
	}
	fields += values.Get("amount") +
		strconv.Itoa(action) +
		values.Get("sign_time")

	sum := md5.Sum([]byte(fields))
	expected := hex.EncodeToString(sum[:])
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return errors.NewSignatureError("sign_string mismatch")
	}
	return nil
}

// ParseWebhookEvent normalizes prepare/complete callbacks. Prepare carries no
// state change; a complete with error=0 is a success, anything else a failure.
// The dedup key is transaction-plus-action so a prepare replay and the later
// complete are distinct events.
func (g *Gateway) ParseWebhookEvent(payload []byte) (*gateway.NormalizedEvent, error) {
	values, err := url.ParseQuery(string(payload))
	if err != nil {
		return nil, errors.NewValidationError("unparseable callback body", err.Error())
	}

	clickTransID := values.Get("click_trans_id")
	if clickTransID == "" {
		return nil, errors.NewValidationError("callback missing click_trans_id")
	}
	action, err := strconv.Atoi(values.Get("action"))
	if err != nil {
		return nil, errors.NewValidationError("callback missing action")
	}

	event := &gateway.NormalizedEvent{
		ProviderEventID: fmt.Sprintf("%s:%d", clickTransID, action),
		ObjectID:        clickTransID,
		OccurredAt:      biztime.NowUTC(),
		Raw: map[string]interface{}{
			"merchant_trans_id": values.Get("merchant_trans_id"),
			"action":            action,
		},
	}
	if t, err := time.Parse("2006-01-02 15:04:05", values.Get("sign_time")); err == nil {
		event.OccurredAt = t.UTC()
	}
	if amount, err := strconv.ParseFloat(values.Get("amount"), 64); err == nil {
		money := vo.NewMoney(int64(amount*100), "")
		event.Amount = &money
	}

	errCode := values.Get("error")
	switch {
	case action == actionPrepare:
		event.Type = gateway.EventIgnored
	case action == actionComplete && (errCode == "" || errCode == "0"):
		event.Type = gateway.EventPaymentSucceeded
	case action == actionComplete:
		event.Type = gateway.EventPaymentFailed
		event.FailureCode = errCode
		event.FailureMessage = values.Get("error_note")
	default:
		event.Type = gateway.EventIgnored
	}

	return event, nil
}
