package usecases

import (
	"context"
	"time"

	"github.com/postline-io/postline/internal/application/payment/gateway"
	"github.com/postline-io/postline/internal/domain/payment"
	paymentVO "github.com/postline-io/postline/internal/domain/payment/valueobjects"
	"github.com/postline-io/postline/internal/domain/subscription"
	vo "github.com/postline-io/postline/internal/domain/subscription/valueobjects"
	"github.com/postline-io/postline/internal/shared/biztime"
	"github.com/postline-io/postline/internal/shared/db"
	"github.com/postline-io/postline/internal/shared/errors"
	"github.com/postline-io/postline/internal/shared/logger"
)

type CreateSubscriptionCommand struct {
	UserID       uint
	PlanID       uint
	MethodID     uint
	BillingCycle string
	TrialDays    int
}

type CreateSubscriptionResult struct {
	Subscription *subscription.Subscription
	// ReplacedSubscriptionID is set when a prior live subscription was
	// canceled to make room for this one.
	ReplacedSubscriptionID *uint
}

type CreateSubscriptionUseCase struct {
	subRepo    subscription.SubscriptionRepository
	planRepo   subscription.PlanRepository
	methodRepo payment.PaymentMethodRepository
	registry   *gateway.Registry
	txManager  db.Transactor
	logger     logger.Interface
}

func NewCreateSubscriptionUseCase(
	subRepo subscription.SubscriptionRepository,
	planRepo subscription.PlanRepository,
	methodRepo payment.PaymentMethodRepository,
	registry *gateway.Registry,
	txManager db.Transactor,
	logger logger.Interface,
) *CreateSubscriptionUseCase {
	return &CreateSubscriptionUseCase{
		subRepo:    subRepo,
		planRepo:   planRepo,
		methodRepo: methodRepo,
		registry:   registry,
		txManager:  txManager,
		logger:     logger,
	}
}

// Execute activates a subscription for the user. Any prior live subscription
// is canceled inside the same transaction that creates the new one, so at no
// point do two live rows exist; the unique active marker backs this up at the
// database level. The provider call happens before the transaction, never
// inside it, so no row lock spans the network.
func (uc *CreateSubscriptionUseCase) Execute(ctx context.Context, cmd CreateSubscriptionCommand) (*CreateSubscriptionResult, error) {
	cycle, err := vo.ParseBillingCycle(cmd.BillingCycle)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	plan, err := uc.planRepo.GetByID(ctx, cmd.PlanID)
	if err != nil {
		return nil, errors.NewNotFoundError("plan not found")
	}
	if !plan.IsActive() {
		return nil, errors.NewValidationError("plan is no longer available")
	}

	method, err := uc.methodRepo.GetByID(ctx, cmd.MethodID)
	if err != nil {
		return nil, errors.NewNotFoundError("payment method not found")
	}
	if method.UserID() != cmd.UserID {
		return nil, errors.NewNotFoundError("payment method not found")
	}
	if !method.IsActive() {
		return nil, errors.NewValidationError("payment method is no longer active")
	}

	gw, err := uc.registry.Get(method.Provider())
	if err != nil {
		return nil, err
	}

	amount := paymentVO.NewMoney(plan.PriceFor(cycle), plan.Currency())
	providerSub, err := gw.CreateSubscription(ctx, gateway.CreateSubscriptionParams{
		CustomerID:       method.ProviderCustomerID(),
		ProviderMethodID: method.ProviderMethodID(),
		PlanName:         plan.Name(),
		Amount:           amount,
		IntervalDays:     cycle.PeriodDays(),
		TrialDays:        cmd.TrialDays,
	})
	if err != nil {
		// Nothing was persisted: a gateway failure is a creation failure,
		// never a subscription stuck half-made.
		uc.logger.Errorw("provider subscription creation failed",
			"error", err, "user_id", cmd.UserID, "plan_id", cmd.PlanID)
		return nil, err
	}

	var trialEndsAt *time.Time
	if cmd.TrialDays > 0 {
		t := biztime.NowUTC().AddDate(0, 0, cmd.TrialDays)
		trialEndsAt = &t
	}

	sub, err := subscription.NewSubscription(
		cmd.UserID, cmd.PlanID, cmd.MethodID,
		method.Provider(), providerSub.ProviderSubscriptionID,
		cycle, amount,
		providerSub.PeriodStart, providerSub.PeriodEnd,
		trialEndsAt,
	)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	var replaced *subscription.Subscription
	err = uc.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		prior, lookupErr := uc.subRepo.GetLiveByUserID(txCtx, cmd.UserID)
		if lookupErr == nil && prior != nil {
			if cancelErr := prior.Cancel("replaced_by_new_subscription"); cancelErr != nil {
				return cancelErr
			}
			if updateErr := uc.subRepo.Update(txCtx, prior); updateErr != nil {
				return updateErr
			}
			replaced = prior
		}
		return uc.subRepo.Create(txCtx, sub)
	})
	if err != nil {
		if errors.IsDuplicateError(err) {
			return nil, errors.NewConflictError("another subscription was activated concurrently")
		}
		uc.logger.Errorw("failed to persist subscription", "error", err, "user_id", cmd.UserID)
		return nil, errors.NewInternalError("failed to create subscription")
	}

	var replacedID *uint
	if replaced != nil {
		id := replaced.ID()
		replacedID = &id
		if replaced.ProviderSubscriptionID() != "" {
			if priorGW, gwErr := uc.registry.Get(replaced.Provider()); gwErr == nil {
				if cancelErr := priorGW.CancelSubscription(ctx, replaced.ProviderSubscriptionID(), true); cancelErr != nil {
					uc.logger.Warnw("provider cancel of replaced subscription failed",
						"error", cancelErr, "subscription_id", replaced.ID())
				}
			}
		}
	}

	uc.logger.Infow("subscription created",
		"subscription_id", sub.ID(),
		"user_id", cmd.UserID,
		"plan_id", cmd.PlanID,
		"billing_cycle", cycle,
		"replaced", replacedID != nil)

	return &CreateSubscriptionResult{Subscription: sub, ReplacedSubscriptionID: replacedID}, nil
}
