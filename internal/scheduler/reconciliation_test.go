package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postline-io/postline/internal/application/payment/gateway"
	"github.com/postline-io/postline/internal/domain/payment"
	vo "github.com/postline-io/postline/internal/domain/payment/valueobjects"
	"github.com/postline-io/postline/internal/shared/logger"
)

// --- helpers ---

var errNotFound = fmt.Errorf("record not found")

// stuckPaymentRepo serves every non-final payment as stuck regardless of age,
// so tests do not have to backdate created_at.
type stuckPaymentRepo struct {
	payments []*payment.Payment
	nextID   uint
	updates  int
}

func (r *stuckPaymentRepo) Create(_ context.Context, p *payment.Payment) error {
	r.nextID++
	p.SetID(r.nextID)
	r.payments = append(r.payments, p)
	return nil
}

func (r *stuckPaymentRepo) Update(_ context.Context, p *payment.Payment) error {
	for _, existing := range r.payments {
		if existing.ID() == p.ID() {
			r.updates++
			return nil
		}
	}
	return errNotFound
}

func (r *stuckPaymentRepo) GetByID(_ context.Context, id uint) (*payment.Payment, error) {
	for _, p := range r.payments {
		if p.ID() == id {
			return p, nil
		}
	}
	return nil, errNotFound
}

func (r *stuckPaymentRepo) GetByIdempotencyKey(_ context.Context, key string) (*payment.Payment, error) {
	for _, p := range r.payments {
		if p.IdempotencyKey() == key {
			return p, nil
		}
	}
	return nil, errNotFound
}

func (r *stuckPaymentRepo) GetByProviderPaymentID(_ context.Context, provider, providerPaymentID string) (*payment.Payment, error) {
	for _, p := range r.payments {
		if p.Provider().String() == provider && p.ProviderPaymentID() != nil && *p.ProviderPaymentID() == providerPaymentID {
			return p, nil
		}
	}
	return nil, errNotFound
}

func (r *stuckPaymentRepo) GetByOrderNo(_ context.Context, orderNo string) (*payment.Payment, error) {
	for _, p := range r.payments {
		if p.OrderNo() == orderNo {
			return p, nil
		}
	}
	return nil, errNotFound
}

func (r *stuckPaymentRepo) ListByUserID(_ context.Context, userID uint, page, pageSize int) ([]*payment.Payment, int64, error) {
	var out []*payment.Payment
	for _, p := range r.payments {
		if p.UserID() == userID {
			out = append(out, p)
		}
	}
	return out, int64(len(out)), nil
}

func (r *stuckPaymentRepo) GetLatestSucceededBySubscriptionID(_ context.Context, subscriptionID uint) (*payment.Payment, error) {
	return nil, errNotFound
}

func (r *stuckPaymentRepo) ListStuckPending(_ context.Context, _ time.Time) ([]*payment.Payment, error) {
	var out []*payment.Payment
	for _, p := range r.payments {
		if !p.Status().IsFinal() {
			out = append(out, p)
		}
	}
	return out, nil
}

func newReconcileEnv(t *testing.T) (*ReconciliationScheduler, *stuckPaymentRepo, *gateway.MockGateway) {
	t.Helper()
	repo := &stuckPaymentRepo{}
	gw := &gateway.MockGateway{}
	s := NewReconciliationScheduler(repo, gateway.NewRegistry(gw), time.Minute, 30*time.Minute, logger.NewLogger())
	return s, repo, gw
}

func seedPendingPayment(t *testing.T, repo *stuckPaymentRepo) *payment.Payment {
	t.Helper()
	p, err := payment.NewPayment(1, 1, vo.ProviderStripe, vo.NewMoney(990, "USD"), "idem_stuck", "", nil)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestReconciliation(t *testing.T) {
	t.Run("provider-confirmed charge settles as succeeded", func(t *testing.T) {
		s, repo, gw := newReconcileEnv(t)
		p := seedPendingPayment(t, repo)

		var queried gateway.ChargeStatusParams
		gw.GetChargeStatusFunc = func(ctx context.Context, params gateway.ChargeStatusParams) (*gateway.ChargeResult, error) {
			queried = params
			return &gateway.ChargeResult{ProviderPaymentID: "pi_late", Status: "succeeded"}, nil
		}

		s.reconcile()

		assert.Equal(t, p.OrderNo(), queried.OrderNo, "a payment without a provider id is looked up by order number")
		assert.Equal(t, vo.PaymentStatusSucceeded, p.Status())
		require.NotNil(t, p.ProviderPaymentID())
		assert.Equal(t, "pi_late", *p.ProviderPaymentID())
		assert.Equal(t, 1, repo.updates)
	})

	t.Run("provider-reported failure settles as failed", func(t *testing.T) {
		s, repo, gw := newReconcileEnv(t)
		p := seedPendingPayment(t, repo)

		gw.GetChargeStatusFunc = func(ctx context.Context, params gateway.ChargeStatusParams) (*gateway.ChargeResult, error) {
			return &gateway.ChargeResult{Status: "failed"}, nil
		}

		s.reconcile()

		assert.Equal(t, vo.PaymentStatusFailed, p.Status())
		require.NotNil(t, p.FailureCode())
		assert.Equal(t, "provider_reported", *p.FailureCode())
	})

	t.Run("known provider id is passed through to the lookup", func(t *testing.T) {
		s, repo, gw := newReconcileEnv(t)
		p := seedPendingPayment(t, repo)
		p.SetProviderPaymentID("pi_known")

		var queried gateway.ChargeStatusParams
		gw.GetChargeStatusFunc = func(ctx context.Context, params gateway.ChargeStatusParams) (*gateway.ChargeResult, error) {
			queried = params
			return &gateway.ChargeResult{ProviderPaymentID: "pi_known", Status: "succeeded"}, nil
		}

		s.reconcile()

		assert.Equal(t, "pi_known", queried.ProviderPaymentID)
		assert.Equal(t, vo.PaymentStatusSucceeded, p.Status())
	})

	t.Run("still-pending charge is left alone", func(t *testing.T) {
		s, repo, _ := newReconcileEnv(t)
		p := seedPendingPayment(t, repo)

		// MockGateway reports pending by default.
		s.reconcile()

		assert.Equal(t, vo.PaymentStatusPending, p.Status())
		assert.Zero(t, repo.updates, "age alone never finalizes a payment")
	})

	t.Run("lookup error leaves the payment pending", func(t *testing.T) {
		s, repo, gw := newReconcileEnv(t)
		p := seedPendingPayment(t, repo)

		gw.GetChargeStatusFunc = func(ctx context.Context, params gateway.ChargeStatusParams) (*gateway.ChargeResult, error) {
			return nil, fmt.Errorf("upstream 503")
		}

		s.reconcile()

		assert.Equal(t, vo.PaymentStatusPending, p.Status())
		assert.Zero(t, repo.updates)
	})
}
