// Package scheduler hosts the background loops: stuck-payment reconciliation
// and webhook retry.
package scheduler

import (
	"context"
	"time"

	"github.com/postline-io/postline/internal/application/payment/gateway"
	"github.com/postline-io/postline/internal/domain/payment"
	"github.com/postline-io/postline/internal/shared/goroutine"
	"github.com/postline-io/postline/internal/shared/logger"
)

// ReconciliationScheduler settles payments stuck pending past the gateway
// timeout horizon. A stuck payment means the charge outcome never arrived:
// the provider may have succeeded, so each one is re-queried at the provider
// and settled from its answer, never failed on age alone.
type ReconciliationScheduler struct {
	paymentRepo payment.PaymentRepository
	registry    *gateway.Registry
	interval    time.Duration
	horizon     time.Duration
	stopCh      chan struct{}
	log         logger.Interface
}

func NewReconciliationScheduler(
	paymentRepo payment.PaymentRepository,
	registry *gateway.Registry,
	interval time.Duration,
	horizon time.Duration,
	log logger.Interface,
) *ReconciliationScheduler {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if horizon <= 0 {
		horizon = 30 * time.Minute
	}
	return &ReconciliationScheduler{
		paymentRepo: paymentRepo,
		registry:    registry,
		interval:    interval,
		horizon:     horizon,
		stopCh:      make(chan struct{}),
		log:         log,
	}
}

func (s *ReconciliationScheduler) Start() {
	goroutine.SafeGo(s.log, "payment-reconciliation", func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.reconcile()
			case <-s.stopCh:
				return
			}
		}
	})
	s.log.Infow("payment reconciliation scheduler started",
		"interval", s.interval, "horizon", s.horizon)
}

func (s *ReconciliationScheduler) Stop() {
	close(s.stopCh)
}

func (s *ReconciliationScheduler) reconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().Add(-s.horizon)
	stuck, err := s.paymentRepo.ListStuckPending(ctx, cutoff)
	if err != nil {
		s.log.Errorw("failed to list stuck pending payments", "error", err)
		return
	}
	if len(stuck) == 0 {
		return
	}

	settled := 0
	for _, p := range stuck {
		if s.reconcilePayment(ctx, p) {
			settled++
		}
	}
	s.log.Infow("pending payment reconciliation pass finished",
		"stuck", len(stuck), "settled", settled)
}

// reconcilePayment re-queries the provider for one stuck payment and settles
// it when the provider reports a final state. Reports whether the payment
// reached a final state.
func (s *ReconciliationScheduler) reconcilePayment(ctx context.Context, p *payment.Payment) bool {
	gw, err := s.registry.Get(p.Provider())
	if err != nil {
		s.log.Warnw("no gateway for stuck payment", "payment_id", p.ID(), "provider", p.Provider())
		return false
	}

	params := gateway.ChargeStatusParams{OrderNo: p.OrderNo()}
	if id := p.ProviderPaymentID(); id != nil {
		params.ProviderPaymentID = *id
	}

	result, err := gw.GetChargeStatus(ctx, params)
	if err != nil {
		s.log.Warnw("charge status re-query failed",
			"error", err, "payment_id", p.ID(), "order_no", p.OrderNo(), "provider", p.Provider())
		return false
	}

	switch result.Status {
	case "succeeded":
		if err := p.MarkAsSucceeded(result.ProviderPaymentID); err != nil {
			s.log.Errorw("failed to settle reconciled payment", "error", err, "payment_id", p.ID())
			return false
		}
	case "failed", "canceled":
		if err := p.MarkAsFailed("provider_reported", "charge did not complete"); err != nil {
			s.log.Errorw("failed to fail reconciled payment", "error", err, "payment_id", p.ID())
			return false
		}
	default:
		s.log.Warnw("payment still pending at provider",
			"payment_id", p.ID(),
			"order_no", p.OrderNo(),
			"provider_status", result.Status,
			"age", time.Since(p.CreatedAt()).Round(time.Second))
		return false
	}

	if err := s.paymentRepo.Update(ctx, p); err != nil {
		s.log.Errorw("failed to persist reconciled payment", "error", err, "payment_id", p.ID())
		return false
	}
	s.log.Infow("stuck payment settled from provider re-query",
		"payment_id", p.ID(), "order_no", p.OrderNo(), "status", p.Status())
	return true
}
