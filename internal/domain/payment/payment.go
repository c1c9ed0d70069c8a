package payment

import (
	"fmt"
	"time"

	vo "github.com/postline-io/postline/internal/domain/payment/valueobjects"
	"github.com/postline-io/postline/internal/domain/shared/services"
	"github.com/postline-io/postline/internal/shared/biztime"
)

// Payment is a single charge attempt. It is created pending, transitions to
// succeeded or failed exactly once, and stays immutable afterwards except for
// refunds and late provider corrections applied through verified webhooks.
type Payment struct {
	id             uint
	orderNo        string
	userID         uint
	subscriptionID *uint
	methodID       uint
	provider       vo.Provider
	idempotencyKey string
	amount         vo.Money
	description    string
	status         vo.PaymentStatus

	providerPaymentID *string
	failureCode       *string
	failureMessage    *string

	refundID   *string
	refundedAt *time.Time
	paidAt     *time.Time

	metadata map[string]interface{}

	version   int
	createdAt time.Time
	updatedAt time.Time
}

func NewPayment(userID, methodID uint, provider vo.Provider, amount vo.Money, idempotencyKey, description string, subscriptionID *uint) (*Payment, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if methodID == 0 {
		return nil, fmt.Errorf("payment method ID is required")
	}
	if !provider.IsValid() {
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive")
	}
	if idempotencyKey == "" {
		return nil, fmt.Errorf("idempotency key is required")
	}

	now := biztime.NowUTC()
	return &Payment{
		orderNo:        services.NewOrderNumberGenerator().Generate("PAY"),
		userID:         userID,
		subscriptionID: subscriptionID,
		methodID:       methodID,
		provider:       provider,
		idempotencyKey: idempotencyKey,
		amount:         amount,
		description:    description,
		status:         vo.PaymentStatusPending,
		metadata:       make(map[string]interface{}),
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// MarkAsSucceeded records the provider's payment id and finalizes the charge.
// Marking an already succeeded payment is a no-op so that webhook replays
// stay idempotent.
func (p *Payment) MarkAsSucceeded(providerPaymentID string) error {
	if p.status == vo.PaymentStatusSucceeded {
		return nil
	}
	if p.status != vo.PaymentStatusPending {
		return fmt.Errorf("cannot mark payment as succeeded with status %s", p.status)
	}

	now := biztime.NowUTC()
	p.status = vo.PaymentStatusSucceeded
	p.providerPaymentID = &providerPaymentID
	p.paidAt = &now
	p.updatedAt = now
	p.version++

	return nil
}

func (p *Payment) MarkAsFailed(code, message string) error {
	if p.status == vo.PaymentStatusFailed {
		return nil
	}
	if p.status.IsFinal() {
		return fmt.Errorf("cannot mark payment as failed with final status %s", p.status)
	}

	p.status = vo.PaymentStatusFailed
	p.failureCode = &code
	p.failureMessage = &message
	p.updatedAt = biztime.NowUTC()
	p.version++

	return nil
}

// MarkAsRefunded finalizes a refund. Only succeeded payments can be refunded.
func (p *Payment) MarkAsRefunded(refundID string) error {
	if p.status == vo.PaymentStatusRefunded {
		return nil
	}
	if p.status != vo.PaymentStatusSucceeded {
		return fmt.Errorf("cannot refund payment with status %s", p.status)
	}

	now := biztime.NowUTC()
	p.status = vo.PaymentStatusRefunded
	p.refundID = &refundID
	p.refundedAt = &now
	p.updatedAt = now
	p.version++

	return nil
}

// MatchesRequest reports whether a repeated idempotency key carries the same
// parameters as the stored payment. A mismatch is a conflict, not a replay.
func (p *Payment) MatchesRequest(amount vo.Money, methodID uint) bool {
	return p.amount.Equals(amount) && p.methodID == methodID
}

func (p *Payment) SetProviderPaymentID(id string) {
	p.providerPaymentID = &id
	p.updatedAt = biztime.NowUTC()
}

// SetMetadata sets a metadata key-value pair
func (p *Payment) SetMetadata(key string, value interface{}) {
	if p.metadata == nil {
		p.metadata = make(map[string]interface{})
	}
	p.metadata[key] = value
	p.updatedAt = biztime.NowUTC()
}

// SetID sets the payment ID after persistence (used by repository after Create)
func (p *Payment) SetID(id uint) {
	p.id = id
}

func (p *Payment) ID() uint                    { return p.id }
func (p *Payment) OrderNo() string             { return p.orderNo }
func (p *Payment) UserID() uint                { return p.userID }
func (p *Payment) SubscriptionID() *uint       { return p.subscriptionID }
func (p *Payment) MethodID() uint              { return p.methodID }
func (p *Payment) Provider() vo.Provider       { return p.provider }
func (p *Payment) IdempotencyKey() string      { return p.idempotencyKey }
func (p *Payment) Amount() vo.Money            { return p.amount }
func (p *Payment) Description() string         { return p.description }
func (p *Payment) Status() vo.PaymentStatus    { return p.status }
func (p *Payment) ProviderPaymentID() *string  { return p.providerPaymentID }
func (p *Payment) FailureCode() *string        { return p.failureCode }
func (p *Payment) FailureMessage() *string     { return p.failureMessage }
func (p *Payment) RefundID() *string           { return p.refundID }
func (p *Payment) RefundedAt() *time.Time      { return p.refundedAt }
func (p *Payment) PaidAt() *time.Time          { return p.paidAt }
func (p *Payment) Metadata() map[string]interface{} { return p.metadata }
func (p *Payment) Version() int                { return p.version }
func (p *Payment) CreatedAt() time.Time        { return p.createdAt }
func (p *Payment) UpdatedAt() time.Time        { return p.updatedAt }

// PaymentReconstructParams carries persisted state back into the aggregate.
type PaymentReconstructParams struct {
	ID                uint
	OrderNo           string
	UserID            uint
	SubscriptionID    *uint
	MethodID          uint
	Provider          vo.Provider
	IdempotencyKey    string
	Amount            vo.Money
	Description       string
	Status            vo.PaymentStatus
	ProviderPaymentID *string
	FailureCode       *string
	FailureMessage    *string
	RefundID          *string
	RefundedAt        *time.Time
	PaidAt            *time.Time
	Metadata          map[string]interface{}
	Version           int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func ReconstructPayment(params PaymentReconstructParams) *Payment {
	metadata := params.Metadata
	if metadata == nil {
		metadata = make(map[string]interface{})
	}
	return &Payment{
		id:                params.ID,
		orderNo:           params.OrderNo,
		userID:            params.UserID,
		subscriptionID:    params.SubscriptionID,
		methodID:          params.MethodID,
		provider:          params.Provider,
		idempotencyKey:    params.IdempotencyKey,
		amount:            params.Amount,
		description:       params.Description,
		status:            params.Status,
		providerPaymentID: params.ProviderPaymentID,
		failureCode:       params.FailureCode,
		failureMessage:    params.FailureMessage,
		refundID:          params.RefundID,
		refundedAt:        params.RefundedAt,
		paidAt:            params.PaidAt,
		metadata:          metadata,
		version:           params.Version,
		createdAt:         params.CreatedAt,
		updatedAt:         params.UpdatedAt,
	}
}
