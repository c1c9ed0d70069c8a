package usecases

import (
	"context"

	"github.com/postline-io/postline/internal/domain/subscription"
	"github.com/postline-io/postline/internal/shared/errors"
	"github.com/postline-io/postline/internal/shared/logger"
)

// PlanInfo is the wire-friendly plan projection with the computed yearly
// savings baked in.
type PlanInfo struct {
	ID               uint   `json:"id"`
	Name             string `json:"name"`
	MaxChannels      int    `json:"max_channels"`
	MaxPostsPerMonth int    `json:"max_posts_per_month"`
	PriceMonthly     int64  `json:"price_monthly"`
	PriceYearly      int64  `json:"price_yearly"`
	YearlySavings    int64  `json:"yearly_savings"`
	Currency         string `json:"currency"`
}

// PlanCache is a read-through cache over the active plan list. Plans are
// admin-managed and change rarely, so a short TTL is safe.
type PlanCache interface {
	Get(ctx context.Context) ([]PlanInfo, bool)
	Set(ctx context.Context, plans []PlanInfo)
}

type ListPlansUseCase struct {
	planRepo subscription.PlanRepository
	cache    PlanCache
	logger   logger.Interface
}

func NewListPlansUseCase(planRepo subscription.PlanRepository, cache PlanCache, logger logger.Interface) *ListPlansUseCase {
	return &ListPlansUseCase{planRepo: planRepo, cache: cache, logger: logger}
}

func (uc *ListPlansUseCase) Execute(ctx context.Context) ([]PlanInfo, error) {
	if uc.cache != nil {
		if plans, ok := uc.cache.Get(ctx); ok {
			return plans, nil
		}
	}

	plans, err := uc.planRepo.ListActive(ctx)
	if err != nil {
		uc.logger.Errorw("failed to list plans", "error", err)
		return nil, errors.NewInternalError("failed to list plans")
	}

	infos := make([]PlanInfo, 0, len(plans))
	for _, p := range plans {
		infos = append(infos, PlanInfo{
			ID:               p.ID(),
			Name:             p.Name(),
			MaxChannels:      p.MaxChannels(),
			MaxPostsPerMonth: p.MaxPostsPerMonth(),
			PriceMonthly:     p.PriceMonthly(),
			PriceYearly:      p.PriceYearly(),
			YearlySavings:    p.YearlySavings(),
			Currency:         p.Currency(),
		})
	}

	if uc.cache != nil {
		uc.cache.Set(ctx, infos)
	}
	return infos, nil
}
