package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/postline-io/postline/internal/domain/payment"
	"github.com/postline-io/postline/internal/domain/subscription"
	"github.com/postline-io/postline/internal/domain/webhook"
)

// In-memory fakes for the webhook use case tests.

var errNotFound = fmt.Errorf("record not found")

type fakeEventRepo struct {
	events  []*webhook.Event
	nextID  uint
	updates int
}

func (r *fakeEventRepo) Create(_ context.Context, e *webhook.Event) error {
	for _, existing := range r.events {
		if existing.Provider() == e.Provider() && existing.ProviderEventID() == e.ProviderEventID() {
			return fmt.Errorf("Error 1062 (23000): Duplicate entry for key 'uk_webhook_events_provider_event'")
		}
	}
	r.nextID++
	e.SetID(r.nextID)
	r.events = append(r.events, e)
	return nil
}

func (r *fakeEventRepo) Update(_ context.Context, e *webhook.Event) error {
	for _, existing := range r.events {
		if existing.ID() == e.ID() {
			r.updates++
			return nil
		}
	}
	return errNotFound
}

func (r *fakeEventRepo) GetByProviderEventID(_ context.Context, provider, providerEventID string) (*webhook.Event, error) {
	for _, e := range r.events {
		if e.Provider().String() == provider && e.ProviderEventID() == providerEventID {
			return e, nil
		}
	}
	return nil, errNotFound
}

func (r *fakeEventRepo) ListRetryable(_ context.Context, maxRetries, limit int) ([]*webhook.Event, error) {
	var out []*webhook.Event
	for _, e := range r.events {
		if !e.Processed() && e.RetryCount() > 0 && e.RetryCount() < maxRetries {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakePaymentRepo struct {
	payments []*payment.Payment
	nextID   uint
}

func (r *fakePaymentRepo) Create(_ context.Context, p *payment.Payment) error {
	for _, existing := range r.payments {
		if existing.IdempotencyKey() == p.IdempotencyKey() {
			return fmt.Errorf("Error 1062 (23000): Duplicate entry '%s' for key 'uk_payments_idempotency_key'", p.IdempotencyKey())
		}
	}
	r.nextID++
	p.SetID(r.nextID)
	r.payments = append(r.payments, p)
	return nil
}

func (r *fakePaymentRepo) Update(_ context.Context, p *payment.Payment) error {
	for _, existing := range r.payments {
		if existing.ID() == p.ID() {
			return nil
		}
	}
	return errNotFound
}

func (r *fakePaymentRepo) GetByID(_ context.Context, id uint) (*payment.Payment, error) {
	for _, p := range r.payments {
		if p.ID() == id {
			return p, nil
		}
	}
	return nil, errNotFound
}

func (r *fakePaymentRepo) GetByIdempotencyKey(_ context.Context, key string) (*payment.Payment, error) {
	for _, p := range r.payments {
		if p.IdempotencyKey() == key {
			return p, nil
		}
	}
	return nil, errNotFound
}

func (r *fakePaymentRepo) GetByProviderPaymentID(_ context.Context, provider, providerPaymentID string) (*payment.Payment, error) {
	for _, p := range r.payments {
		if p.Provider().String() == provider && p.ProviderPaymentID() != nil && *p.ProviderPaymentID() == providerPaymentID {
			return p, nil
		}
	}
	return nil, errNotFound
}

func (r *fakePaymentRepo) GetByOrderNo(_ context.Context, orderNo string) (*payment.Payment, error) {
	for _, p := range r.payments {
		if p.OrderNo() == orderNo {
			return p, nil
		}
	}
	return nil, errNotFound
}

func (r *fakePaymentRepo) ListByUserID(_ context.Context, userID uint, page, pageSize int) ([]*payment.Payment, int64, error) {
	var out []*payment.Payment
	for _, p := range r.payments {
		if p.UserID() == userID {
			out = append(out, p)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakePaymentRepo) GetLatestSucceededBySubscriptionID(_ context.Context, subscriptionID uint) (*payment.Payment, error) {
	var latest *payment.Payment
	for _, p := range r.payments {
		if p.SubscriptionID() != nil && *p.SubscriptionID() == subscriptionID && p.PaidAt() != nil {
			if latest == nil || p.ID() > latest.ID() {
				latest = p
			}
		}
	}
	if latest == nil {
		return nil, errNotFound
	}
	return latest, nil
}

func (r *fakePaymentRepo) ListStuckPending(_ context.Context, olderThan time.Time) ([]*payment.Payment, error) {
	var out []*payment.Payment
	for _, p := range r.payments {
		if !p.Status().IsFinal() && p.CreatedAt().Before(olderThan) {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeSubRepo struct {
	subs   map[uint]*subscription.Subscription
	nextID uint
}

func newFakeSubRepo() *fakeSubRepo {
	return &fakeSubRepo{subs: make(map[uint]*subscription.Subscription)}
}

func (r *fakeSubRepo) Create(_ context.Context, s *subscription.Subscription) error {
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

// fakeDedup is an in-memory stand-in for the redis-backed processed cache.
type fakeDedup struct {
	seen map[string]bool
}

func newFakeDedup() *fakeDedup {
	return &fakeDedup{seen: make(map[string]bool)}
}

func (c *fakeDedup) IsProcessed(_ context.Context, provider, providerEventID string) bool {
	return c.seen[provider+":"+providerEventID]
}

func (c *fakeDedup) MarkProcessed(_ context.Context, provider, providerEventID string) {
	c.seen[provider+":"+providerEventID] = true
}

type fakeNotifier struct {
	notified []*payment.Payment
}

func (n *fakeNotifier) NotifyPaymentSucceeded(p *payment.Payment) {
	n.notified = append(n.notified, p)
}

type stubTx struct{}

func (stubTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
