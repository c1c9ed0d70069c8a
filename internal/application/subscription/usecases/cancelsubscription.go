package usecases

import (
	"context"

	"github.com/postline-io/postline/internal/application/payment/gateway"
	"github.com/postline-io/postline/internal/domain/subscription"
	vo "github.com/postline-io/postline/internal/domain/subscription/valueobjects"
	"github.com/postline-io/postline/internal/shared/errors"
	"github.com/postline-io/postline/internal/shared/logger"
)

type CancelSubscriptionCommand struct {
	UserID uint
	// SubscriptionID is optional; zero targets the user's live subscription.
	SubscriptionID uint
	Reason         string
	// AtPeriodEnd keeps the subscription live until the current period runs
	// out instead of canceling immediately.
	AtPeriodEnd bool
}

type CancelSubscriptionResult struct {
	Subscription *subscription.Subscription
	// AlreadyCanceled is true when the call was an idempotent no-op.
	AlreadyCanceled bool
	// ScheduledForPeriodEnd is true when the subscription stays live and will
	// end at the period boundary.
	ScheduledForPeriodEnd bool
}

type CancelSubscriptionUseCase struct {
	subRepo  subscription.SubscriptionRepository
	registry *gateway.Registry
	logger   logger.Interface
}

func NewCancelSubscriptionUseCase(
	subRepo subscription.SubscriptionRepository,
	registry *gateway.Registry,
	logger logger.Interface,
) *CancelSubscriptionUseCase {
	return &CancelSubscriptionUseCase{subRepo: subRepo, registry: registry, logger: logger}
}

// Execute cancels the subscription, immediately or at the period boundary.
// Canceling an already canceled subscription returns its current state
// without touching the provider, as does re-scheduling a period-end cancel.
func (uc *CancelSubscriptionUseCase) Execute(ctx context.Context, cmd CancelSubscriptionCommand) (*CancelSubscriptionResult, error) {
	sub, err := uc.lookup(ctx, cmd)
	if err != nil {
		return nil, err
	}

	if sub.Status() == vo.StatusCanceled {
		return &CancelSubscriptionResult{Subscription: sub, AlreadyCanceled: true}, nil
	}
	if cmd.AtPeriodEnd && sub.CancelAtPeriodEnd() {
		return &CancelSubscriptionResult{Subscription: sub, ScheduledForPeriodEnd: true}, nil
	}

	gw, err := uc.registry.Get(sub.Provider())
	if err != nil {
		return nil, err
	}
	if sub.ProviderSubscriptionID() != "" {
		if err := gw.CancelSubscription(ctx, sub.ProviderSubscriptionID(), !cmd.AtPeriodEnd); err != nil {
			uc.logger.Errorw("provider subscription cancel failed",
				"error", err, "subscription_id", sub.ID())
			return nil, err
		}
	}

	reason := cmd.Reason
	if reason == "" {
		reason = "user_requested"
	}

	if cmd.AtPeriodEnd {
		if err := sub.ScheduleCancel(reason); err != nil {
			return nil, errors.NewValidationError(err.Error())
		}
	} else if err := sub.Cancel(reason); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	if err := uc.subRepo.Update(ctx, sub); err != nil {
		uc.logger.Errorw("failed to persist canceled subscription", "error", err, "subscription_id", sub.ID())
		return nil, errors.NewInternalError("failed to cancel subscription")
	}

	uc.logger.Infow("subscription canceled",
		"subscription_id", sub.ID(), "user_id", cmd.UserID, "reason", reason, "at_period_end", cmd.AtPeriodEnd)
	return &CancelSubscriptionResult{Subscription: sub, ScheduledForPeriodEnd: cmd.AtPeriodEnd}, nil
}

func (uc *CancelSubscriptionUseCase) lookup(ctx context.Context, cmd CancelSubscriptionCommand) (*subscription.Subscription, error) {
	if cmd.SubscriptionID != 0 {
		sub, err := uc.subRepo.GetByID(ctx, cmd.SubscriptionID)
		if err != nil || sub.UserID() != cmd.UserID {
			return nil, errors.NewNotFoundError("subscription not found")
		}
		return sub, nil
	}

	sub, err := uc.subRepo.GetLiveByUserID(ctx, cmd.UserID)
	if err != nil || sub == nil {
		return nil, errors.NewNotFoundError("no active subscription")
	}
	return sub, nil
}
