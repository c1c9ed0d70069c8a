// Package payme implements the wallet JSON-RPC gateway. The provider has no
// first-class subscriptions: each charge runs the three-step transaction
// machine (check, create, perform) and recurring billing is driven locally.
package payme

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
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

// Wallet transaction states. Negative states are cancellations.
const (
	stateCreated   = 1
	statePerformed = 2
)

type Gateway struct {
	merchantID string
	apiKey     string
	baseURL    string
	authMode   string
	client     *http.Client
	log        logger.Interface
}

func NewGateway(cfg config.PaymeConfig, timeout time.Duration, log logger.Interface) *Gateway {
	authMode := cfg.AuthMode
	if authMode == "" {
		authMode = "hmac"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Gateway{
		merchantID: cfg.MerchantID,
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.APIBaseURL, "/"),
		authMode:   authMode,
		client:     &http.Client{Timeout: timeout},
		log:        log,
	}
}

func (g *Gateway) Name() vo.Provider {
	return vo.ProviderPayme
}

// CreateCustomer is a local identity mapping: the wallet network addresses
// accounts by order fields, not by customer objects.
func (g *Gateway) CreateCustomer(ctx context.Context, params gateway.CreateCustomerParams) (string, error) {
	return fmt.Sprintf("wallet:%d", params.UserID), nil
}

func (g *Gateway) CreatePaymentMethod(ctx context.Context, params gateway.CreatePaymentMethodParams) (*gateway.PaymentMethodResult, error) {
	var result struct {
		Card struct {
			Token  string `json:"token"`
			Number string `json:"number"`
		} `json:"card"`
	}
	err := g.call(ctx, "cards.create", map[string]interface{}{
		"card": map[string]interface{}{"token": params.Token},
		"save": true,
	}, &result)
	if err != nil {
		return nil, err
	}

	lastFour := result.Card.Number
	if len(lastFour) > 4 {
		lastFour = lastFour[len(lastFour)-4:]
	}
	return &gateway.PaymentMethodResult{
		ProviderMethodID: result.Card.Token,
		MethodType:       vo.MethodTypeWallet,
		LastFour:         lastFour,
		Brand:            "wallet",
	}, nil
}

// Charge runs the full transaction machine. CheckPerformTransaction must
// succeed before CreateTransaction; skipping it is treated provider-side as a
// rejection, so the sequence here fails closed on the first refusal.
func (g *Gateway) Charge(ctx context.Context, params gateway.ChargeParams) (*gateway.ChargeResult, error) {
	account := map[string]interface{}{"order_no": params.OrderNo}
	amount := params.Amount.AmountInCents()

	var check struct {
		Allow bool `json:"allow"`
	}
	err := g.call(ctx, "CheckPerformTransaction", map[string]interface{}{
		"amount":  amount,
		"account": account,
	}, &check)
	if err != nil {
		return nil, err
	}
	if !check.Allow {
		return nil, errors.NewProviderRejectedError("wallet refused the transaction", "not_allowed")
	}

	txID := uuid.NewString()
	var created struct {
		Transaction string `json:"transaction"`
		State       int    `json:"state"`
		CreateTime  int64  `json:"create_time"`
	}
	err = g.call(ctx, "CreateTransaction", map[string]interface{}{
		"id":      txID,
		"time":    biztime.NowUTC().UnixMilli(),
		"amount":  amount,
		"account": account,
	}, &created)
	if err != nil {
		return nil, err
	}
	if created.State != stateCreated {
		return nil, errors.NewProviderRejectedError(
			fmt.Sprintf("unexpected transaction state %d after create", created.State), "bad_state")
	}

	var performed struct {
		Transaction string `json:"transaction"`
		State       int    `json:"state"`
		PerformTime int64  `json:"perform_time"`
	}
	err = g.call(ctx, "PerformTransaction", map[string]interface{}{"id": txID}, &performed)
	if err != nil {
		return nil, err
	}
	if performed.State != statePerformed {
		return nil, errors.NewProviderRejectedError(
			fmt.Sprintf("unexpected transaction state %d after perform", performed.State), "bad_state")
	}

	paidAt := time.UnixMilli(performed.PerformTime).UTC()
	return &gateway.ChargeResult{
		ProviderPaymentID: performed.Transaction,
		Status:            "succeeded",
		PaidAt:            &paidAt,
	}, nil
}

// CreateSubscription charges the first period and returns a locally minted
// subscription handle. Renewals are independent charges driven by the engine.
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
		ProviderSubscriptionID: "wsub_" + uuid.NewString(),
		PeriodStart:            start,
		PeriodEnd:              start.AddDate(0, 0, params.IntervalDays),
	}, nil
}

// CancelSubscription has nothing to tear down provider-side; the local
// subscription record is the only agreement, so both cancel modes are a no-op
// here.
func (g *Gateway) CancelSubscription(ctx context.Context, providerSubscriptionID string, immediate bool) error {
	return nil
}

func (g *Gateway) Refund(ctx context.Context, params gateway.RefundParams) (*gateway.RefundResult, error) {
	var result struct {
		Transaction string `json:"transaction"`
		CancelTime  int64  `json:"cancel_time"`
	}
	err := g.call(ctx, "CancelTransaction", map[string]interface{}{
		"id":     params.ProviderPaymentID,
		"reason": 5,
	}, &result)
	if err != nil {
		return nil, err
	}

	refundedAt := biztime.NowUTC()
	if result.CancelTime > 0 {
		refundedAt = time.UnixMilli(result.CancelTime).UTC()
	}
	return &gateway.RefundResult{RefundID: result.Transaction, RefundedAt: refundedAt}, nil
}

// GetChargeStatus re-checks a transaction on the wallet. The wallet addresses
// transactions only by id, so a charge that died before the id was stored
// stays unknown until a callback arrives.
func (g *Gateway) GetChargeStatus(ctx context.Context, params gateway.ChargeStatusParams) (*gateway.ChargeResult, error) {
	if params.ProviderPaymentID == "" {
		return nil, errors.NewNotFoundError("wallet transaction id unknown")
	}

	var result struct {
		Transaction string `json:"transaction"`
		State       int    `json:"state"`
		PerformTime int64  `json:"perform_time"`
	}
	err := g.call(ctx, "CheckTransaction", map[string]interface{}{"id": params.ProviderPaymentID}, &result)
	if err != nil {
		return nil, err
	}

	switch {
	case result.State == statePerformed:
		paidAt := time.UnixMilli(result.PerformTime).UTC()
		return &gateway.ChargeResult{
			ProviderPaymentID: result.Transaction,
			Status:            "succeeded",
			PaidAt:            &paidAt,
		}, nil
	case result.State < 0:
		return &gateway.ChargeResult{ProviderPaymentID: result.Transaction, Status: "canceled"}, nil
	default:
		return &gateway.ChargeResult{ProviderPaymentID: result.Transaction, Status: "pending"}, nil
	}
}

func (g *Gateway) HealthCheck(ctx context.Context) error {
	var check struct {
		Allow bool `json:"allow"`
	}
	err := g.call(ctx, "CheckPerformTransaction", map[string]interface{}{
		"amount":  100,
		"account": map[string]interface{}{"order_no": "healthcheck"},
	}, &check)
	if err != nil && !errors.IsProviderRejectedError(err) {
		return err
	}
	return nil
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// call issues a JSON-RPC request. Business refusals arrive as error codes in
// the -31000 range and map to terminal rejections; everything else transport
// related is transient.
func (g *Gateway) call(ctx context.Context, method string, params map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      uuid.NewString(),
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return errors.NewInternalError("failed to encode wallet request", err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(body))
	if err != nil {
		return errors.NewInternalError("failed to build wallet request", err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Auth", g.merchantID+":"+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return errors.NewProviderTemporaryError("wallet network unreachable", err.Error())
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewProviderTemporaryError("failed to read wallet response", err.Error())
	}
	if resp.StatusCode >= 500 {
		return errors.NewProviderTemporaryError(fmt.Sprintf("wallet returned status %d", resp.StatusCode))
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return errors.NewInternalError("malformed wallet response", err.Error())
	}
	if envelope.Error != nil {
		g.log.Warnw("wallet rejected request", "method", method, "code", envelope.Error.Code, "message", envelope.Error.Message)
		return errors.NewProviderRejectedError(envelope.Error.Message, fmt.Sprintf("%d", envelope.Error.Code))
	}
	if out != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return errors.NewInternalError("malformed wallet result", err.Error())
		}
	}
	return nil
}
