package subscription

import (
	"fmt"
	"time"

	paymentVO "github.com/postline-io/postline/internal/domain/payment/valueobjects"
	vo "github.com/postline-io/postline/internal/domain/subscription/valueobjects"
	"github.com/postline-io/postline/internal/shared/biztime"
)

// Subscription is the recurring billing aggregate. A user holds at most one
// live subscription at a time; creating a new one cancels the prior.
type Subscription struct {
	id                     uint
	userID                 uint
	planID                 uint
	paymentMethodID        uint
	provider               paymentVO.Provider
	providerSubscriptionID string
	status                 vo.SubscriptionStatus
	billingCycle           vo.BillingCycle
	amount                 paymentVO.Money
	currentPeriodStart     time.Time
	currentPeriodEnd       time.Time
	trialEndsAt            *time.Time
	cancelAtPeriodEnd      bool
	canceledAt             *time.Time
	cancelReason           *string
	metadata               map[string]interface{}
	version                int
	createdAt              time.Time
	updatedAt              time.Time
}

// NewSubscription creates a subscription that is already live: trialing when
// trialEndsAt is set, active otherwise. Creation failures at the gateway are
// surfaced by never persisting the aggregate, not by a limbo status.
func NewSubscription(
	userID, planID, paymentMethodID uint,
	provider paymentVO.Provider,
	providerSubscriptionID string,
	cycle vo.BillingCycle,
	amount paymentVO.Money,
	periodStart, periodEnd time.Time,
	trialEndsAt *time.Time,
) (*Subscription, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if planID == 0 {
		return nil, fmt.Errorf("plan ID is required")
	}
	if paymentMethodID == 0 {
		return nil, fmt.Errorf("payment method ID is required")
	}
	if periodEnd.Before(periodStart) {
		return nil, fmt.Errorf("period end must be after period start")
	}

	status := vo.StatusActive
	if trialEndsAt != nil && trialEndsAt.After(biztime.NowUTC()) {
		status = vo.StatusTrialing
	}

	now := biztime.NowUTC()
	return &Subscription{
		userID:                 userID,
		planID:                 planID,
		paymentMethodID:        paymentMethodID,
		provider:               provider,
		providerSubscriptionID: providerSubscriptionID,
		status:                 status,
		billingCycle:           cycle,
		amount:                 amount,
		currentPeriodStart:     periodStart,
		currentPeriodEnd:       periodEnd,
		trialEndsAt:            trialEndsAt,
		metadata:               make(map[string]interface{}),
		version:                1,
		createdAt:              now,
		updatedAt:              now,
	}, nil
}

// Cancel transitions the subscription to canceled. Canceling an already
// canceled subscription is an idempotent no-op.
func (s *Subscription) Cancel(reason string) error {
	if s.status == vo.StatusCanceled {
		return nil
	}
	if !s.status.CanTransitionTo(vo.StatusCanceled) {
		return fmt.Errorf("cannot cancel subscription with status %s", s.status)
	}

	now := biztime.NowUTC()
	s.status = vo.StatusCanceled
	s.canceledAt = &now
	if reason != "" {
		s.cancelReason = &reason
	}
	s.updatedAt = now
	s.version++

	return nil
}

// ScheduleCancel flags the subscription to end at the current period boundary
// instead of immediately. It stays live until the provider reports the final
// cancellation. Scheduling an already scheduled subscription is a no-op.
func (s *Subscription) ScheduleCancel(reason string) error {
	if s.status == vo.StatusCanceled {
		return fmt.Errorf("subscription is already canceled")
	}
	if s.cancelAtPeriodEnd {
		return nil
	}

	s.cancelAtPeriodEnd = true
	if reason != "" {
		s.cancelReason = &reason
	}
	s.updatedAt = biztime.NowUTC()
	s.version++

	return nil
}

// MarkPastDue records a failed renewal reported by the provider.
func (s *Subscription) MarkPastDue() error {
	if s.status == vo.StatusPastDue {
		return nil
	}
	if !s.status.CanTransitionTo(vo.StatusPastDue) {
		return fmt.Errorf("cannot mark subscription past due with status %s", s.status)
	}

	s.status = vo.StatusPastDue
	s.updatedAt = biztime.NowUTC()
	s.version++

	return nil
}

// Renew advances the period boundaries after a paid renewal. A past_due
// subscription recovers to active.
func (s *Subscription) Renew(periodStart, periodEnd time.Time) error {
	if s.status == vo.StatusCanceled {
		return fmt.Errorf("cannot renew canceled subscription")
	}
	if periodEnd.Before(periodStart) {
		return fmt.Errorf("period end must be after period start")
	}

	s.currentPeriodStart = periodStart
	s.currentPeriodEnd = periodEnd
	if s.status != vo.StatusActive {
		s.status = vo.StatusActive
	}
	s.updatedAt = biztime.NowUTC()
	s.version++

	return nil
}

// InCurrentPeriod reports whether t falls inside the current billing period.
func (s *Subscription) InCurrentPeriod(t time.Time) bool {
	return !t.Before(s.currentPeriodStart) && t.Before(s.currentPeriodEnd)
}

func (s *Subscription) IsLive() bool {
	return s.status.IsLive()
}

// SetID sets the subscription ID (only for persistence layer use)
func (s *Subscription) SetID(id uint) error {
	if s.id != 0 {
		return fmt.Errorf("subscription ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("subscription ID cannot be zero")
	}
	s.id = id
	return nil
}

func (s *Subscription) ID() uint                          { return s.id }
func (s *Subscription) UserID() uint                      { return s.userID }
func (s *Subscription) PlanID() uint                      { return s.planID }
func (s *Subscription) PaymentMethodID() uint             { return s.paymentMethodID }
func (s *Subscription) Provider() paymentVO.Provider      { return s.provider }
func (s *Subscription) ProviderSubscriptionID() string    { return s.providerSubscriptionID }
func (s *Subscription) Status() vo.SubscriptionStatus     { return s.status }
func (s *Subscription) BillingCycle() vo.BillingCycle     { return s.billingCycle }
func (s *Subscription) Amount() paymentVO.Money           { return s.amount }
func (s *Subscription) CurrentPeriodStart() time.Time     { return s.currentPeriodStart }
func (s *Subscription) CurrentPeriodEnd() time.Time       { return s.currentPeriodEnd }
func (s *Subscription) TrialEndsAt() *time.Time           { return s.trialEndsAt }
func (s *Subscription) CancelAtPeriodEnd() bool           { return s.cancelAtPeriodEnd }
func (s *Subscription) CanceledAt() *time.Time            { return s.canceledAt }
func (s *Subscription) CancelReason() *string             { return s.cancelReason }
func (s *Subscription) Metadata() map[string]interface{}  { return s.metadata }
func (s *Subscription) Version() int                      { return s.version }
func (s *Subscription) CreatedAt() time.Time              { return s.createdAt }
func (s *Subscription) UpdatedAt() time.Time              { return s.updatedAt }

// SubscriptionReconstructParams carries persisted state back into the aggregate.
type SubscriptionReconstructParams struct {
	ID                     uint
	UserID                 uint
	PlanID                 uint
	PaymentMethodID        uint
	Provider               paymentVO.Provider
	ProviderSubscriptionID string
	Status                 vo.SubscriptionStatus
	BillingCycle           vo.BillingCycle
	Amount                 paymentVO.Money
	CurrentPeriodStart     time.Time
	CurrentPeriodEnd       time.Time
	TrialEndsAt            *time.Time
	CancelAtPeriodEnd      bool
	CanceledAt             *time.Time
	CancelReason           *string
	Metadata               map[string]interface{}
	Version                int
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func ReconstructSubscription(params SubscriptionReconstructParams) (*Subscription, error) {
	if params.ID == 0 {
		return nil, fmt.Errorf("subscription ID cannot be zero")
	}
	if params.UserID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if !vo.ValidStatuses[params.Status] {
		return nil, fmt.Errorf("invalid subscription status: %s", params.Status)
	}

	metadata := params.Metadata
	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	return &Subscription{
		id:                     params.ID,
		userID:                 params.UserID,
		planID:                 params.PlanID,
		paymentMethodID:        params.PaymentMethodID,
		provider:               params.Provider,
		providerSubscriptionID: params.ProviderSubscriptionID,
		status:                 params.Status,
		billingCycle:           params.BillingCycle,
		amount:                 params.Amount,
		currentPeriodStart:     params.CurrentPeriodStart,
		currentPeriodEnd:       params.CurrentPeriodEnd,
		trialEndsAt:            params.TrialEndsAt,
		cancelAtPeriodEnd:      params.CancelAtPeriodEnd,
		canceledAt:             params.CanceledAt,
		cancelReason:           params.CancelReason,
		metadata:               metadata,
		version:                params.Version,
		createdAt:              params.CreatedAt,
		updatedAt:              params.UpdatedAt,
	}, nil
}
