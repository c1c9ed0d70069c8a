package gateway

import (
	"context"
	"time"

	vo "github.com/postline-io/postline/internal/domain/payment/valueobjects"
)

// CreateCustomerParams identifies the user on the provider side.
type CreateCustomerParams struct {
	UserID uint
	Email  string
	Name   string
}

// CreatePaymentMethodParams attaches a tokenized instrument to a customer.
// Token is the provider-issued token from the client-side capture flow; raw
// card numbers never reach this engine.
type CreatePaymentMethodParams struct {
	CustomerID string
	Token      string
}

// PaymentMethodResult is the provider's view of a stored instrument.
type PaymentMethodResult struct {
	ProviderMethodID string
	MethodType       vo.MethodType
	LastFour         string
	Brand            string
}

// ChargeParams is a one-off debit against a stored method.
type ChargeParams struct {
	CustomerID       string
	ProviderMethodID string
	Amount           vo.Money
	OrderNo          string
	Description      string
}

// ChargeResult reports the provider-side outcome of a charge.
type ChargeResult struct {
	ProviderPaymentID string
	Status            string
	PaidAt            *time.Time
}

// CreateSubscriptionParams starts a recurring billing agreement on the
// provider side.
type CreateSubscriptionParams struct {
	CustomerID       string
	ProviderMethodID string
	PlanName         string
	Amount           vo.Money
	IntervalDays     int
	TrialDays        int
}

// SubscriptionResult reports the provider-side subscription.
type SubscriptionResult struct {
	ProviderSubscriptionID string
	PeriodStart            time.Time
	PeriodEnd              time.Time
}

// ChargeStatusParams identifies a charge for a status re-query.
// ProviderPaymentID may be empty when the original call timed out before the
// provider id was stored; OrderNo always identifies the charge locally and is
// echoed back by providers that key transactions off the merchant order.
type ChargeStatusParams struct {
	ProviderPaymentID string
	OrderNo           string
}

// RefundParams reverses a previously succeeded charge in full.
type RefundParams struct {
	ProviderPaymentID string
	Amount            vo.Money
	Reason            string
}

// RefundResult reports the provider-side refund.
type RefundResult struct {
	RefundID   string
	RefundedAt time.Time
}

// NormalizedEvent is a provider notification translated into engine terms.
// ObjectID carries the provider-side payment or subscription identifier the
// event refers to.
type NormalizedEvent struct {
	ProviderEventID string
	Type            EventType
	ObjectID        string
	Amount          *vo.Money
	FailureCode     string
	FailureMessage  string
	OccurredAt      time.Time
	// Raw keeps provider fields the engine does not model, for audit.
	Raw map[string]interface{}
}

// EventType is the provider-agnostic classification of a webhook event.
type EventType string

const (
	EventPaymentSucceeded     EventType = "payment.succeeded"
	EventPaymentFailed        EventType = "payment.failed"
	EventPaymentRefunded      EventType = "payment.refunded"
	EventSubscriptionRenewed  EventType = "subscription.renewed"
	EventSubscriptionPastDue  EventType = "subscription.past_due"
	EventSubscriptionCanceled EventType = "subscription.canceled"
	EventIgnored              EventType = "ignored"
)

// PaymentGateway is the contract every provider adapter implements. All
// blocking calls take a context; the engine bounds them with the configured
// gateway timeout. A context deadline error must surface as-is so the caller
// can leave the payment pending instead of failing it.
type PaymentGateway interface {
	Name() vo.Provider

	CreateCustomer(ctx context.Context, params CreateCustomerParams) (customerID string, err error)
	CreatePaymentMethod(ctx context.Context, params CreatePaymentMethodParams) (*PaymentMethodResult, error)
	Charge(ctx context.Context, params ChargeParams) (*ChargeResult, error)
	CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*SubscriptionResult, error)
	// CancelSubscription ends the provider-side agreement. With immediate the
	// agreement is torn down now; otherwise the provider stops renewing and
	// the subscription runs out at the period boundary.
	CancelSubscription(ctx context.Context, providerSubscriptionID string, immediate bool) error
	Refund(ctx context.Context, params RefundParams) (*RefundResult, error)
	// GetChargeStatus re-queries the provider for the current state of a
	// charge whose outcome never arrived. Status is the provider's view
	// ("succeeded", "failed", "canceled", or still in flight).
	GetChargeStatus(ctx context.Context, params ChargeStatusParams) (*ChargeResult, error)

	// VerifyWebhookSignature authenticates a raw notification. It never
	// parses business fields; verification failures map to a signature
	// error, not a validation error.
	VerifyWebhookSignature(payload []byte, signature string) error
	// ParseWebhookEvent translates a verified payload into a NormalizedEvent.
	ParseWebhookEvent(payload []byte) (*NormalizedEvent, error)

	HealthCheck(ctx context.Context) error
}
