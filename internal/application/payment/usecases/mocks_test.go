package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/postline-io/postline/internal/domain/payment"
	"github.com/postline-io/postline/internal/domain/subscription"
)

// In-memory fakes shared by the use case tests in this package. They model
// just enough of the persistence contract to exercise the use case logic,
// including the duplicate key error shape the real database produces.

var errNotFound = fmt.Errorf("record not found")

func duplicateKeyError(key string) error {
	return fmt.Errorf("Error 1062 (23000): Duplicate entry '%s' for key 'uk_payments_idempotency_key'", key)
}

type fakePaymentRepo struct {
	payments []*payment.Payment
	nextID   uint

	createErr error
	updateErr error
	// raceWinner simulates a concurrent request that won the insert race: key
	// lookups miss until Create has been attempted, then hit this payment.
	raceWinner *payment.Payment
	sawCreate  bool
}

func (r *fakePaymentRepo) Create(_ context.Context, p *payment.Payment) error {
	r.sawCreate = true
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.payments {
		if existing.IdempotencyKey() == p.IdempotencyKey() {
			return duplicateKeyError(p.IdempotencyKey())
		}
	}
	r.nextID++
	p.SetID(r.nextID)
	r.payments = append(r.payments, p)
	return nil
}

func (r *fakePaymentRepo) Update(_ context.Context, p *payment.Payment) error {
	if r.updateErr != nil {
		return r.updateErr
	}
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
	if r.sawCreate && r.raceWinner != nil && r.raceWinner.IdempotencyKey() == key {
		return r.raceWinner, nil
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
	var matched []*payment.Payment
	for _, p := range r.payments {
		if p.UserID() == userID {
			matched = append(matched, p)
		}
	}
	total := int64(len(matched))
	start := (page - 1) * pageSize
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *fakePaymentRepo) GetLatestSucceededBySubscriptionID(_ context.Context, subscriptionID uint) (*payment.Payment, error) {
	var latest *payment.Payment
	for _, p := range r.payments {
		if p.SubscriptionID() == nil || *p.SubscriptionID() != subscriptionID {
			continue
		}
		if p.PaidAt() == nil {
			continue
		}
		if latest == nil || p.ID() > latest.ID() {
			latest = p
		}
	}
	if latest == nil {
		return nil, errNotFound
	}
	return latest, nil
}

func (r *fakePaymentRepo) ListStuckPending(_ context.Context, olderThan time.Time) ([]*payment.Payment, error) {
	var stuck []*payment.Payment
	for _, p := range r.payments {
		if !p.Status().IsFinal() && p.CreatedAt().Before(olderThan) {
			stuck = append(stuck, p)
		}
	}
	return stuck, nil
}

type fakeMethodRepo struct {
	methods           map[uint]*payment.PaymentMethod
	nextID            uint
	clearDefaultCalls int
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
	r.methods[m.ID()] = m
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
	r.clearDefaultCalls++
	for _, m := range r.methods {
		if m.UserID() == userID {
			m.ClearDefault()
		}
	}
	return nil
}

type fakeSubscriptionRepo struct {
	subs    map[uint]*subscription.Subscription
	nextID  uint
	updates int
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subs: make(map[uint]*subscription.Subscription)}
}

func (r *fakeSubscriptionRepo) Create(_ context.Context, s *subscription.Subscription) error {
	for _, existing := range r.subs {
		if existing.UserID() == s.UserID() && existing.IsLive() {
			return duplicateKeyError("active_marker")
		}
	}
	r.nextID++
	if err := s.SetID(r.nextID); err != nil {
		return err
	}
	r.subs[s.ID()] = s
	return nil
}

func (r *fakeSubscriptionRepo) Update(_ context.Context, s *subscription.Subscription) error {
	if _, ok := r.subs[s.ID()]; !ok {
		return errNotFound
	}
	r.subs[s.ID()] = s
	r.updates++
	return nil
}

func (r *fakeSubscriptionRepo) GetByID(_ context.Context, id uint) (*subscription.Subscription, error) {
	s, ok := r.subs[id]
	if !ok {
		return nil, errNotFound
	}
	return s, nil
}

func (r *fakeSubscriptionRepo) GetLiveByUserID(_ context.Context, userID uint) (*subscription.Subscription, error) {
	for _, s := range r.subs {
		if s.UserID() == userID && s.IsLive() {
			return s, nil
		}
	}
	return nil, errNotFound
}

func (r *fakeSubscriptionRepo) GetByProviderSubscriptionID(_ context.Context, provider, providerSubscriptionID string) (*subscription.Subscription, error) {
	for _, s := range r.subs {
		if s.Provider().String() == provider && s.ProviderSubscriptionID() == providerSubscriptionID {
			return s, nil
		}
	}
	return nil, errNotFound
}

// stubTx runs the function directly; the fakes have no transaction semantics.
type stubTx struct{}

func (stubTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
