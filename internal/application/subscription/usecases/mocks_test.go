package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/postline-io/postline/internal/domain/payment"
	"github.com/postline-io/postline/internal/domain/subscription"
)

// In-memory fakes for the subscription use case tests.

var errNotFound = fmt.Errorf("record not found")

type fakeSubRepo struct {
	subs   map[uint]*subscription.Subscription
	nextID uint
	// createErr forces Create to fail, simulating the unique active marker
	// rejecting a concurrent activation.
	createErr error
}

func newFakeSubRepo() *fakeSubRepo {
	return &fakeSubRepo{subs: make(map[uint]*subscription.Subscription)}
}

func (r *fakeSubRepo) Create(_ context.Context, s *subscription.Subscription) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	if err := s.SetID(r.nextID); err != nil {
		return err
	}
	r.subs[s.ID()] = s
	return nil
}

func (r *fakeSubRepo) Update(_ context.Context, s *subscription.Subscription) error {
	if _, ok := r.subs[s.ID()]; !ok {
		return errNotFound
	}
	r.subs[s.ID()] = s
	return nil
}

func (r *fakeSubRepo) GetByID(_ context.Context, id uint) (*subscription.Subscription, error) {
	s, ok := r.subs[id]
	if !ok {
		return nil, errNotFound
	}
	return s, nil
}

// GetLiveByUserID matches the repository's liveness set, which includes
// past_due alongside active and trialing.
func (r *fakeSubRepo) GetLiveByUserID(_ context.Context, userID uint) (*subscription.Subscription, error) {
	for _, s := range r.subs {
		if s.UserID() == userID && !s.Status().IsTerminal() {
			return s, nil
		}
	}
	return nil, errNotFound
}

func (r *fakeSubRepo) GetByProviderSubscriptionID(_ context.Context, provider, providerSubscriptionID string) (*subscription.Subscription, error) {
	for _, s := range r.subs {
		if s.Provider().String() == provider && s.ProviderSubscriptionID() == providerSubscriptionID {
			return s, nil
		}
	}
	return nil, errNotFound
}

type fakePlanRepo struct {
	plans map[uint]*subscription.Plan
}

func newFakePlanRepo() *fakePlanRepo {
	return &fakePlanRepo{plans: make(map[uint]*subscription.Plan)}
}

func (r *fakePlanRepo) GetByID(_ context.Context, id uint) (*subscription.Plan, error) {
	p, ok := r.plans[id]
	if !ok {
		return nil, errNotFound
	}
	return p, nil
}

func (r *fakePlanRepo) ListActive(_ context.Context) ([]*subscription.Plan, error) {
	var out []*subscription.Plan
	for _, p := range r.plans {
		if p.IsActive() {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeMethodRepo struct {
	methods map[uint]*payment.PaymentMethod
	nextID  uint
}

func newFakeMethodRepo() *fakeMethodRepo {
	return &fakeMethodRepo{methods: make(map[uint]*payment.PaymentMethod)}
}

func (r *fakeMethodRepo) Create(_ context.Context, m *payment.PaymentMethod) error {
	r.nextID++
	m.SetID(r.nextID)
	r.methods[m.ID()] = m
	return nil
}

func (r *fakeMethodRepo) Update(_ context.Context, m *payment.PaymentMethod) error {
	if _, ok := r.methods[m.ID()]; !ok {
		return errNotFound
	}
	return nil
}

func (r *fakeMethodRepo) GetByID(_ context.Context, id uint) (*payment.PaymentMethod, error) {
	m, ok := r.methods[id]
	if !ok {
		return nil, errNotFound
	}
	return m, nil
}

func (r *fakeMethodRepo) ListActiveByUserID(_ context.Context, userID uint) ([]*payment.PaymentMethod, error) {
	var out []*payment.PaymentMethod
	for _, m := range r.methods {
		if m.UserID() == userID && m.IsActive() {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMethodRepo) ClearDefaultForUser(_ context.Context, userID uint) error {
	for _, m := range r.methods {
		if m.UserID() == userID {
			m.ClearDefault()
		}
	}
	return nil
}

type fakePlanCache struct {
	plans []PlanInfo
	hit   bool
	sets  int
}

func (c *fakePlanCache) Get(_ context.Context) ([]PlanInfo, bool) {
	if !c.hit {
		return nil, false
	}
	return c.plans, true
}

func (c *fakePlanCache) Set(_ context.Context, plans []PlanInfo) {
	c.plans = plans
	c.hit = true
	c.sets++
}

type stubTx struct{}

func (stubTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func testPlan(id uint, name string, active bool) *subscription.Plan {
	now := time.Now().UTC()
	p, err := subscription.ReconstructPlan(id, name, 5, 100, 990, 9900, "USD", active, now, now)
	if err != nil {
		panic(err)
	}
	return p
}
