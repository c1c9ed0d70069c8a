// Package click implements the two-phase gateway. Funds move only after an
// explicit prepare (action=0) followed by a complete (action=1), both signed
// with an MD5 digest over the request fields plus the shared secret.
package click

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/postline-io/postline/internal/application/payment/gateway"
	vo "github.com/postline-io/postline/internal/domain/payment/valueobjects"
	"github.com/postline-io/postline/internal/shared/biztime"
	"github.com/postline-io/postline/internal/shared/config"
	"github.com/postline-io/postline/internal/shared/errors"
	"github.com/postline-io/postline/internal/shared/logger"
)

const (
	actionPrepare  = 0
	actionComplete = 1
)

type Gateway struct {
	serviceID  string
	merchantID string
	secretKey  string
	baseURL    string
	client     *http.Client
	log        logger.Interface
}

func NewGateway(cfg config.ClickConfig, timeout time.Duration, log logger.Interface) *Gateway {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Gateway{
		serviceID:  cfg.ServiceID,
		merchantID: cfg.MerchantID,
		secretKey:  cfg.SecretKey,
		baseURL:    strings.TrimRight(cfg.APIBaseURL, "/"),
		client:     &http.Client{Timeout: timeout},
		log:        log,
	}
}

func (g *Gateway) Name() vo.Provider {
	return vo.ProviderClick
}

// CreateCustomer is a local identity mapping; the two-phase network keys
// everything off the merchant transaction id.
func (g *Gateway) CreateCustomer(ctx context.Context, params gateway.CreateCustomerParams) (string, error) {
	return fmt.Sprintf("twophase:%d", params.UserID), nil
}

func (g *Gateway) CreatePaymentMethod(ctx context.Context, params gateway.CreatePaymentMethodParams) (*gateway.PaymentMethodResult, error) {
	form := url.Values{}
	form.Set("service_id", g.serviceID)
	form.Set("card_token", params.Token)

	var resp struct {
		CardToken  string `json:"card_token"`
		CardNumber string `json:"card_number"`
		Error      int    `json:"error"`
		ErrorNote  string `json:"error_note"`
	}
	if err := g.post(ctx, "/card_token/request", form, &resp); err != nil {
		return nil, err
	}
	if resp.Error != 0 {
		return nil, g.translateError(resp.Error, resp.ErrorNote)
	}

	lastFour := resp.CardNumber
	if len(lastFour) > 4 {
		lastFour = lastFour[len(lastFour)-4:]
	}
	return &gateway.PaymentMethodResult{
		ProviderMethodID: resp.CardToken,
		MethodType:       vo.MethodTypeCard,
		LastFour:         lastFour,
		Brand:            "click",
	}, nil
}

// Charge runs prepare then complete. Retrying prepare with the same merchant
// transaction id returns the provider's original reservation, so a retried
// charge never double-reserves.
func (g *Gateway) Charge(ctx context.Context, params gateway.ChargeParams) (*gateway.ChargeResult, error) {
	signTime := biztime.NowUTC().Format("2006-01-02 15:04:05")
	amount := fmt.Sprintf("%.2f", params.Amount.AmountInUnits())

	prepareID, err := g.prepare(ctx, params.OrderNo, amount, signTime)
	if err != nil {
		return nil, err
	}

	result, err := g.complete(ctx, params.OrderNo, prepareID, amount, signTime)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (g *Gateway) prepare(ctx context.Context, orderNo, amount, signTime string) (string, error) {
	form := url.Values{}
	form.Set("service_id", g.serviceID)
	form.Set("merchant_id", g.merchantID)
	form.Set("merchant_trans_id", orderNo)
	form.Set("amount", amount)
	form.Set("action", strconv.Itoa(actionPrepare))
	form.Set("sign_time", signTime)
	form.Set("sign_string", g.sign(orderNo, amount, actionPrepare, signTime))

	var resp struct {
		MerchantPrepareID string `json:"merchant_prepare_id"`
		Error             int    `json:"error"`
		ErrorNote         string `json:"error_note"`
	}
	if err := g.post(ctx, "/prepare", form, &resp); err != nil {
		return "", err
	}
	if resp.Error != 0 {
		return "", g.translateError(resp.Error, resp.ErrorNote)
	}
	return resp.MerchantPrepareID, nil
}

func (g *Gateway) complete(ctx context.Context, orderNo, prepareID, amount, signTime string) (*gateway.ChargeResult, error) {
	form := url.Values{}
	form.Set("service_id", g.serviceID)
	form.Set("merchant_id", g.merchantID)
	form.Set("merchant_trans_id", orderNo)
	form.Set("merchant_prepare_id", prepareID)
	form.Set("amount", amount)
	form.Set("action", strconv.Itoa(actionComplete))
	form.Set("sign_time", signTime)
	form.Set("sign_string", g.sign(orderNo, amount, actionComplete, signTime))

	var resp struct {
		ClickTransID int64  `json:"click_trans_id"`
		Error        int    `json:"error"`
		ErrorNote    string `json:"error_note"`
	}
	if err := g.post(ctx, "/complete", form, &resp); err != nil {
		return nil, err
	}
	if resp.Error != 0 {
		return nil, g.translateError(resp.Error, resp.ErrorNote)
	}

	paidAt := biztime.NowUTC()
	return &gateway.ChargeResult{
		ProviderPaymentID: strconv.FormatInt(resp.ClickTransID, 10),
		Status:            "succeeded",
		PaidAt:            &paidAt,
	}, nil
}

// CreateSubscription charges the first period and mints a local handle;
// renewals are independent two-phase charges driven by the engine.
func (g *Gateway) CreateSubscription(ctx context.Context, params gateway.CreateSubscriptionParams) (*gateway.SubscriptionResult, error) {
	start := biztime.NowUTC()
	if params.TrialDays <= 0 {
		_, err := g.Charge(ctx, gateway.ChargeParams{
			CustomerID:       params.CustomerID,
			ProviderMethodID: params.ProviderMethodID,
			Amount:           params.Amount,
			OrderNo:          "sub-" + uuid.NewString(),
			Description:      params.PlanName,
		})
		if err != nil {
			return nil, err
		}
	}

	return &gateway.SubscriptionResult{
		ProviderSubscriptionID: "csub_" + uuid.NewString(),
		PeriodStart:            start,
		PeriodEnd:              start.AddDate(0, 0, params.IntervalDays),
	}, nil
}

// CancelSubscription is a no-op in both modes: renewals are engine-driven
// charges, so there is no provider-side agreement to end.
func (g *Gateway) CancelSubscription(ctx context.Context, providerSubscriptionID string, immediate bool) error {
	return nil
}

func (g *Gateway) Refund(ctx context.Context, params gateway.RefundParams) (*gateway.RefundResult, error) {
	form := url.Values{}
	form.Set("service_id", g.serviceID)
	form.Set("merchant_id", g.merchantID)
	form.Set("payment_id", params.ProviderPaymentID)
	form.Set("amount", fmt.Sprintf("%.2f", params.Amount.AmountInUnits()))

	var resp struct {
		ReversalID int64  `json:"reversal_id"`
		Error      int    `json:"error"`
		ErrorNote  string `json:"error_note"`
	}
	if err := g.post(ctx, "/payment/reversal", form, &resp); err != nil {
		return nil, err
	}
	if resp.Error != 0 {
		return nil, g.translateError(resp.Error, resp.ErrorNote)
	}

	return &gateway.RefundResult{
		RefundID:   strconv.FormatInt(resp.ReversalID, 10),
		RefundedAt: biztime.NowUTC(),
	}, nil
}

// GetChargeStatus queries the payment state by the merchant transaction id,
// which the network keys everything off, so even a charge that died before
// the provider id arrived can be re-queried. payment_status 2 means paid;
// negative values are terminal refusals.
func (g *Gateway) GetChargeStatus(ctx context.Context, params gateway.ChargeStatusParams) (*gateway.ChargeResult, error) {
	form := url.Values{}
	form.Set("service_id", g.serviceID)
	form.Set("merchant_id", g.merchantID)
	form.Set("merchant_trans_id", params.OrderNo)

	var resp struct {
		ClickTransID  int64  `json:"click_trans_id"`
		PaymentStatus int    `json:"payment_status"`
		Error         int    `json:"error"`
		ErrorNote     string `json:"error_note"`
	}
	if err := g.post(ctx, "/payment/status", form, &resp); err != nil {
		return nil, err
	}
	if resp.Error != 0 {
		return nil, g.translateError(resp.Error, resp.ErrorNote)
	}

	providerID := strconv.FormatInt(resp.ClickTransID, 10)
	switch {
	case resp.PaymentStatus == 2:
		paidAt := biztime.NowUTC()
		return &gateway.ChargeResult{ProviderPaymentID: providerID, Status: "succeeded", PaidAt: &paidAt}, nil
	case resp.PaymentStatus < 0:
		return &gateway.ChargeResult{ProviderPaymentID: providerID, Status: "failed"}, nil
	default:
		return &gateway.ChargeResult{ProviderPaymentID: providerID, Status: "pending"}, nil
	}
}

func (g *Gateway) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/status", nil)
	if err != nil {
		return errors.NewInternalError("failed to build status request", err.Error())
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return errors.NewProviderTemporaryError("two-phase network unreachable", err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return errors.NewProviderTemporaryError(fmt.Sprintf("two-phase network returned status %d", resp.StatusCode))
	}
	return nil
}

// sign digests the action-tagged request fields plus the shared secret.
func (g *Gateway) sign(merchantTransID, amount string, action int, signTime string) string {
	payload := fmt.Sprintf("%s%s%s%s%d%s",
		g.serviceID, merchantTransID, amount, signTime, action, "")
	sum := md5.Sum([]byte(payload + g.secretKey))
	return hex.EncodeToString(sum[:])
}

func (g *Gateway) post(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.NewInternalError("failed to build two-phase request", err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return errors.NewProviderTemporaryError("two-phase network unreachable", err.Error())
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewProviderTemporaryError("failed to read two-phase response", err.Error())
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return errors.NewProviderTemporaryError(fmt.Sprintf("two-phase network returned status %d", resp.StatusCode))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.NewInternalError("malformed two-phase response", err.Error())
	}
	return nil
}

// translateError maps the provider's numeric error codes. Negative codes are
// business refusals; the provider retries nothing on its own.
func (g *Gateway) translateError(code int, note string) error {
	g.log.Warnw("two-phase network rejected request", "code", code, "note", note)
	if note == "" {
		note = "two-phase network rejected the request"
	}
	return errors.NewProviderRejectedError(note, strconv.Itoa(code))
}
