package subscription

import "context"

// SubscriptionRepository is the persistence port for subscriptions. The
// one-active-per-user invariant is enforced by a database unique index, not
// by in-memory locks; Create surfaces the duplicate as an error the use case
// resolves after the fact.
type SubscriptionRepository interface {
	Create(ctx context.Context, s *Subscription) error
	Update(ctx context.Context, s *Subscription) error
	GetByID(ctx context.Context, id uint) (*Subscription, error)
	GetLiveByUserID(ctx context.Context, userID uint) (*Subscription, error)
	GetByProviderSubscriptionID(ctx context.Context, provider, providerSubscriptionID string) (*Subscription, error)
}

// PlanRepository is the read port over admin-managed plans.
type PlanRepository interface {
	GetByID(ctx context.Context, id uint) (*Plan, error)
	ListActive(ctx context.Context) ([]*Plan, error)
}
