package gateway

import (
	"context"

	vo "github.com/postline-io/postline/internal/domain/payment/valueobjects"
)

// MockGateway is a hand-written test double. Each operation delegates to an
// optional function field; unset fields return zero values.
type MockGateway struct {
	Provider vo.Provider

	CreateCustomerFunc         func(ctx context.Context, params CreateCustomerParams) (string, error)
	CreatePaymentMethodFunc    func(ctx context.Context, params CreatePaymentMethodParams) (*PaymentMethodResult, error)
	ChargeFunc                 func(ctx context.Context, params ChargeParams) (*ChargeResult, error)
	CreateSubscriptionFunc     func(ctx context.Context, params CreateSubscriptionParams) (*SubscriptionResult, error)
	CancelSubscriptionFunc     func(ctx context.Context, providerSubscriptionID string, immediate bool) error
	RefundFunc                 func(ctx context.Context, params RefundParams) (*RefundResult, error)
	GetChargeStatusFunc        func(ctx context.Context, params ChargeStatusParams) (*ChargeResult, error)
	VerifyWebhookSignatureFunc func(payload []byte, signature string) error
	ParseWebhookEventFunc      func(payload []byte) (*NormalizedEvent, error)
	HealthCheckFunc            func(ctx context.Context) error

	ChargeCalls int
}

func (m *MockGateway) Name() vo.Provider {
	if m.Provider == "" {
		return vo.ProviderStripe
	}
	return m.Provider
}

func (m *MockGateway) CreateCustomer(ctx context.Context, params CreateCustomerParams) (string, error) {
	if m.CreateCustomerFunc != nil {
		return m.CreateCustomerFunc(ctx, params)
	}
	return "cus_mock", nil
}

func (m *MockGateway) CreatePaymentMethod(ctx context.Context, params CreatePaymentMethodParams) (*PaymentMethodResult, error) {
	if m.CreatePaymentMethodFunc != nil {
		return m.CreatePaymentMethodFunc(ctx, params)
	}
	return &PaymentMethodResult{ProviderMethodID: "pm_mock", MethodType: vo.MethodTypeCard}, nil
}

func (m *MockGateway) Charge(ctx context.Context, params ChargeParams) (*ChargeResult, error) {
	m.ChargeCalls++
	if m.ChargeFunc != nil {
		return m.ChargeFunc(ctx, params)
	}
	return &ChargeResult{ProviderPaymentID: "pi_mock", Status: "succeeded"}, nil
}

func (m *MockGateway) CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*SubscriptionResult, error) {
	if m.CreateSubscriptionFunc != nil {
		return m.CreateSubscriptionFunc(ctx, params)
	}
	return &SubscriptionResult{ProviderSubscriptionID: "sub_mock"}, nil
}

func (m *MockGateway) CancelSubscription(ctx context.Context, providerSubscriptionID string, immediate bool) error {
	if m.CancelSubscriptionFunc != nil {
		return m.CancelSubscriptionFunc(ctx, providerSubscriptionID, immediate)
	}
	return nil
}

func (m *MockGateway) Refund(ctx context.Context, params RefundParams) (*RefundResult, error) {
	if m.RefundFunc != nil {
		return m.RefundFunc(ctx, params)
	}
	return &RefundResult{RefundID: "re_mock"}, nil
}

func (m *MockGateway) GetChargeStatus(ctx context.Context, params ChargeStatusParams) (*ChargeResult, error) {
	if m.GetChargeStatusFunc != nil {
		return m.GetChargeStatusFunc(ctx, params)
	}
	return &ChargeResult{Status: "pending"}, nil
}

func (m *MockGateway) VerifyWebhookSignature(payload []byte, signature string) error {
	if m.VerifyWebhookSignatureFunc != nil {
		return m.VerifyWebhookSignatureFunc(payload, signature)
	}
	return nil
}

func (m *MockGateway) ParseWebhookEvent(payload []byte) (*NormalizedEvent, error) {
	if m.ParseWebhookEventFunc != nil {
		return m.ParseWebhookEventFunc(payload)
	}
	return &NormalizedEvent{Type: EventIgnored}, nil
}

func (m *MockGateway) HealthCheck(ctx context.Context) error {
	if m.HealthCheckFunc != nil {
		return m.HealthCheckFunc(ctx)
	}
	return nil
}
