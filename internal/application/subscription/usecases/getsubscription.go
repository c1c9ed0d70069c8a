package usecases

import (
	"context"

	"github.com/postline-io/postline/internal/domain/subscription"
	"github.com/postline-io/postline/internal/shared/errors"
	"github.com/postline-io/postline/internal/shared/logger"
)

type GetSubscriptionCommand struct {
	UserID uint
}

type GetSubscriptionResult struct {
	Subscription *subscription.Subscription
	Plan         *subscription.Plan
}

type GetSubscriptionUseCase struct {
	subRepo  subscription.SubscriptionRepository
	planRepo subscription.PlanRepository
	logger   logger.Interface
}

func NewGetSubscriptionUseCase(
	subRepo subscription.SubscriptionRepository,
	planRepo subscription.PlanRepository,
	logger logger.Interface,
) *GetSubscriptionUseCase {
	return &GetSubscriptionUseCase{subRepo: subRepo, planRepo: planRepo, logger: logger}
}

func (uc *GetSubscriptionUseCase) Execute(ctx context.Context, cmd GetSubscriptionCommand) (*GetSubscriptionResult, error) {
	sub, err := uc.subRepo.GetLiveByUserID(ctx, cmd.UserID)
	if err != nil || sub == nil {
		return nil, errors.NewNotFoundError("no active subscription")
	}

	plan, err := uc.planRepo.GetByID(ctx, sub.PlanID())
	if err != nil {
		uc.logger.Errorw("plan missing for live subscription", "plan_id", sub.PlanID(), "subscription_id", sub.ID())
		return nil, errors.NewInternalError("failed to load subscription plan")
	}

	return &GetSubscriptionResult{Subscription: sub, Plan: plan}, nil
}
