// Package stripe implements the card-network gateway. Charges are created as
// payment intents against stored methods; final state arrives asynchronously
// through HMAC-signed webhooks.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/postline-io/postline/internal/application/payment/gateway"
	vo "github.com/postline-io/postline/internal/domain/payment/valueobjects"
	"github.com/postline-io/postline/internal/shared/biztime"
	"github.com/postline-io/postline/internal/shared/config"
	"github.com/postline-io/postline/internal/shared/errors"
	"github.com/postline-io/postline/internal/shared/logger"
)

const defaultAPIBaseURL = "https://api.stripe.com"

type Gateway struct {
	apiKey        string
	baseURL       string
	webhookSecret string
	tolerance     time.Duration
	client        *http.Client
	log           logger.Interface
}

func NewGateway(cfg config.StripeConfig, tolerance, timeout time.Duration, log logger.Interface) *Gateway {
	baseURL := cfg.APIBaseURL
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	if tolerance <= 0 {
		tolerance = 5 * time.Minute
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Gateway{
		apiKey:        cfg.APIKey,
		baseURL:       strings.TrimRight(baseURL, "/"),
		webhookSecret: cfg.WebhookSecret,
		tolerance:     tolerance,
		client:        &http.Client{Timeout: timeout},
		log:           log,
	}
}

func (g *Gateway) Name() vo.Provider {
	return vo.ProviderStripe
}

func (g *Gateway) CreateCustomer(ctx context.Context, params gateway.CreateCustomerParams) (string, error) {
	form := url.Values{}
	form.Set("email", params.Email)
	form.Set("name", params.Name)
	form.Set("metadata[user_id]", strconv.FormatUint(uint64(params.UserID), 10))

	var resp struct {
		ID string `json:"id"`
	}
	if err := g.post(ctx, "/v1/customers", form, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (g *Gateway) CreatePaymentMethod(ctx context.Context, params gateway.CreatePaymentMethodParams) (*gateway.PaymentMethodResult, error) {
	form := url.Values{}
	form.Set("customer", params.CustomerID)

	var resp struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Card struct {
			Last4 string `json:"last4"`
			Brand string `json:"brand"`
		} `json:"card"`
	}
	path := "/v1/payment_methods/" + url.PathEscape(params.Token) + "/attach"
	if err := g.post(ctx, path, form, &resp); err != nil {
		return nil, err
	}

	return &gateway.PaymentMethodResult{
		ProviderMethodID: resp.ID,
		MethodType:       vo.MethodTypeCard,
		LastFour:         resp.Card.Last4,
		Brand:            resp.Card.Brand,
	}, nil
}

func (g *Gateway) Charge(ctx context.Context, params gateway.ChargeParams) (*gateway.ChargeResult, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(params.Amount.AmountInCents(), 10))
	form.Set("currency", strings.ToLower(params.Amount.Currency()))
	form.Set("customer", params.CustomerID)
	form.Set("payment_method", params.ProviderMethodID)
	form.Set("description", params.Description)
	form.Set("metadata[order_no]", params.OrderNo)
	form.Set("confirm", "true")
	form.Set("off_session", "true")

	var resp struct {
		ID      string `json:"id"`
		Status  string `json:"status"`
		Created int64  `json:"created"`
	}
	if err := g.post(ctx, "/v1/payment_intents", form, &resp); err != nil {
		return nil, err
	}

	result := &gateway.ChargeResult{
		ProviderPaymentID: resp.ID,
		Status:            resp.Status,
	}
	if resp.Status == "succeeded" {
		paidAt := time.Unix(resp.Created, 0).UTC()
		result.PaidAt = &paidAt
	}
	return result, nil
}

func (g *Gateway) CreateSubscription(ctx context.Context, params gateway.CreateSubscriptionParams) (*gateway.SubscriptionResult, error) {
	form := url.Values{}
	form.Set("customer", params.CustomerID)
	form.Set("default_payment_method", params.ProviderMethodID)
	form.Set("items[0][price_data][currency]", strings.ToLower(params.Amount.Currency()))
	form.Set("items[0][price_data][unit_amount]", strconv.FormatInt(params.Amount.AmountInCents(), 10))
	form.Set("items[0][price_data][product_data][name]", params.PlanName)
	form.Set("items[0][price_data][recurring][interval]", "day")
	form.Set("items[0][price_data][recurring][interval_count]", strconv.Itoa(params.IntervalDays))
	if params.TrialDays > 0 {
		form.Set("trial_period_days", strconv.Itoa(params.TrialDays))
	}

	var resp struct {
		ID                 string `json:"id"`
		CurrentPeriodStart int64  `json:"current_period_start"`
		CurrentPeriodEnd   int64  `json:"current_period_end"`
	}
	if err := g.post(ctx, "/v1/subscriptions", form, &resp); err != nil {
		return nil, err
	}

	return &gateway.SubscriptionResult{
		ProviderSubscriptionID: resp.ID,
		PeriodStart:            time.Unix(resp.CurrentPeriodStart, 0).UTC(),
		PeriodEnd:              time.Unix(resp.CurrentPeriodEnd, 0).UTC(),
	}, nil
}

// CancelSubscription deletes the subscription immediately or flags it to stop
// renewing at the period boundary, matching the two cancel modes the network
// offers.
func (g *Gateway) CancelSubscription(ctx context.Context, providerSubscriptionID string, immediate bool) error {
	path := "/v1/subscriptions/" + url.PathEscape(providerSubscriptionID)
	if immediate {
		return g.do(ctx, http.MethodDelete, path, nil, nil)
	}

	form := url.Values{}
	form.Set("cancel_at_period_end", "true")
	return g.post(ctx, path, form, nil)
}

func (g *Gateway) Refund(ctx context.Context, params gateway.RefundParams) (*gateway.RefundResult, error) {
	form := url.Values{}
	form.Set("payment_intent", params.ProviderPaymentID)
	form.Set("amount", strconv.FormatInt(params.Amount.AmountInCents(), 10))
	if params.Reason != "" {
		form.Set("metadata[reason]", params.Reason)
	}

	var resp struct {
		ID      string `json:"id"`
		Created int64  `json:"created"`
	}
	if err := g.post(ctx, "/v1/refunds", form, &resp); err != nil {
		return nil, err
	}

	refundedAt := biztime.NowUTC()
	if resp.Created > 0 {
		refundedAt = time.Unix(resp.Created, 0).UTC()
	}
	return &gateway.RefundResult{RefundID: resp.ID, RefundedAt: refundedAt}, nil
}

// GetChargeStatus re-reads a payment intent. When the intent id is unknown
// (the charge timed out before it was stored) the intent is searched by the
// order number echoed in its metadata.
func (g *Gateway) GetChargeStatus(ctx context.Context, params gateway.ChargeStatusParams) (*gateway.ChargeResult, error) {
	var resp struct {
		ID      string `json:"id"`
		Status  string `json:"status"`
		Created int64  `json:"created"`
	}

	if params.ProviderPaymentID != "" {
		path := "/v1/payment_intents/" + url.PathEscape(params.ProviderPaymentID)
		if err := g.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
			return nil, err
		}
		return intentToChargeResult(resp.ID, resp.Status, resp.Created), nil
	}

	query := url.Values{}
	query.Set("query", fmt.Sprintf("metadata['order_no']:'%s'", params.OrderNo))
	var search struct {
		Data []struct {
			ID      string `json:"id"`
			Status  string `json:"status"`
			Created int64  `json:"created"`
		} `json:"data"`
	}
	if err := g.do(ctx, http.MethodGet, "/v1/payment_intents/search?"+query.Encode(), nil, &search); err != nil {
		return nil, err
	}
	if len(search.Data) == 0 {
		return nil, errors.NewNotFoundError("no charge found for order " + params.OrderNo)
	}
	first := search.Data[0]
	return intentToChargeResult(first.ID, first.Status, first.Created), nil
}

func intentToChargeResult(id, status string, created int64) *gateway.ChargeResult {
	result := &gateway.ChargeResult{ProviderPaymentID: id, Status: status}
	if status == "succeeded" {
		paidAt := time.Unix(created, 0).UTC()
		result.PaidAt = &paidAt
	}
	return result
}

func (g *Gateway) HealthCheck(ctx context.Context) error {
	return g.do(ctx, http.MethodGet, "/v1/balance", nil, nil)
}

func (g *Gateway) post(ctx context.Context, path string, form url.Values, out interface{}) error {
	return g.do(ctx, http.MethodPost, path, form, out)
}

func (g *Gateway) do(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return errors.NewInternalError("failed to build card network request", err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		// Timeouts and transport failures are transient: the provider may
		// have received the request, so the caller keeps the payment pending.
		return errors.NewProviderTemporaryError("card network unreachable", err.Error())
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewProviderTemporaryError("failed to read card network response", err.Error())
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return errors.NewInternalError("malformed card network response", err.Error())
		}
		return nil
	}

	return g.translateError(resp.StatusCode, data)
}

// translateError maps provider HTTP failures into the billing error taxonomy.
// 4xx card errors are terminal rejections carrying the provider's decline
// code; 429 and 5xx are transient.
func (g *Gateway) translateError(status int, data []byte) error {
	if status == http.StatusTooManyRequests || status >= 500 {
		return errors.NewProviderTemporaryError(fmt.Sprintf("card network returned status %d", status))
	}

	var errResp struct {
		Error struct {
			Type        string `json:"type"`
			Code        string `json:"code"`
			DeclineCode string `json:"decline_code"`
			Message     string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &errResp); err != nil {
		return errors.NewProviderRejectedError("card network rejected the request", strconv.Itoa(status))
	}

	code := errResp.Error.DeclineCode
	if code == "" {
		code = errResp.Error.Code
	}
	g.log.Warnw("card network rejected request", "status", status, "type", errResp.Error.Type, "code", code)
	return errors.NewProviderRejectedError(errResp.Error.Message, code)
}
