package usecases

import (
	"context"
	"fmt"

	"github.com/postline-io/postline/internal/application/payment/gateway"
	"github.com/postline-io/postline/internal/domain/payment"
	vo "github.com/postline-io/postline/internal/domain/payment/valueobjects"
	"github.com/postline-io/postline/internal/domain/subscription"
	"github.com/postline-io/postline/internal/shared/db"
	"github.com/postline-io/postline/internal/shared/logger"
)

// PaymentNotifier reports settled payments to interested parties (ops email).
// Implementations must be safe to call from any goroutine.
type PaymentNotifier interface {
	NotifyPaymentSucceeded(p *payment.Payment)
}

// ProcessEventUseCase applies a verified, normalized provider event to local
// state. Every transition it triggers is idempotent at the aggregate level,
// so replays change state at most once.
type ProcessEventUseCase struct {
	paymentRepo payment.PaymentRepository
	subRepo     subscription.SubscriptionRepository
	txManager   db.Transactor
	notifier    PaymentNotifier
	logger      logger.Interface
}

func NewProcessEventUseCase(
	paymentRepo payment.PaymentRepository,
	subRepo subscription.SubscriptionRepository,
	txManager db.Transactor,
	notifier PaymentNotifier,
	logger logger.Interface,
) *ProcessEventUseCase {
	return &ProcessEventUseCase{
		paymentRepo: paymentRepo,
		subRepo:     subRepo,
		txManager:   txManager,
		notifier:    notifier,
		logger:      logger,
	}
}

func (uc *ProcessEventUseCase) Apply(ctx context.Context, provider vo.Provider, event *gateway.NormalizedEvent) error {
	switch event.Type {
	case gateway.EventPaymentSucceeded:
		return uc.applyPaymentSucceeded(ctx, provider, event)
	case gateway.EventPaymentFailed:
		return uc.applyPaymentFailed(ctx, provider, event)
	case gateway.EventPaymentRefunded:
		return uc.applyPaymentRefunded(ctx, provider, event)
	case gateway.EventSubscriptionRenewed:
		return uc.applySubscriptionRenewed(ctx, provider, event)
	case gateway.EventSubscriptionPastDue:
		return uc.applySubscriptionPastDue(ctx, provider, event)
	case gateway.EventSubscriptionCanceled:
		return uc.applySubscriptionCanceled(ctx, provider, event)
	case gateway.EventIgnored:
		return nil
	default:
		return fmt.Errorf("unhandled event type: %s", event.Type)
	}
}

func (uc *ProcessEventUseCase) applyPaymentSucceeded(ctx context.Context, provider vo.Provider, event *gateway.NormalizedEvent) error {
	p, err := uc.resolvePayment(ctx, provider, event)
	if err != nil {
		return err
	}
	if p.Status().IsFinal() {
		return nil
	}

	if err := p.MarkAsSucceeded(event.ObjectID); err != nil {
		return err
	}
	if err := uc.paymentRepo.Update(ctx, p); err != nil {
		return err
	}

	uc.logger.Infow("payment settled by provider event",
		"payment_id", p.ID(), "provider", provider, "event_id", event.ProviderEventID)
	if uc.notifier != nil {
		uc.notifier.NotifyPaymentSucceeded(p)
	}
	return nil
}

func (uc *ProcessEventUseCase) applyPaymentFailed(ctx context.Context, provider vo.Provider, event *gateway.NormalizedEvent) error {
	p, err := uc.resolvePayment(ctx, provider, event)
	if err != nil {
		return err
	}
	if p.Status().IsFinal() {
		return nil
	}

	if err := p.MarkAsFailed(event.FailureCode, event.FailureMessage); err != nil {
		return err
	}
	return uc.paymentRepo.Update(ctx, p)
}

func (uc *ProcessEventUseCase) applyPaymentRefunded(ctx context.Context, provider vo.Provider, event *gateway.NormalizedEvent) error {
	p, err := uc.resolvePayment(ctx, provider, event)
	if err != nil {
		return err
	}

	if err := p.MarkAsRefunded(event.ProviderEventID); err != nil {
		// A late refund event for a payment the engine never saw succeed is
		// a provider-side correction worth surfacing.
		return fmt.Errorf("refund event for payment %d: %w", p.ID(), err)
	}
	return uc.paymentRepo.Update(ctx, p)
}

// applySubscriptionRenewed advances the period and records the renewal charge
// as a local payment linked to the subscription. The payment's idempotency
// key is derived from the event id and guards the period advance as well: a
// replayed event finds the payment and leaves the boundaries alone, and a
// racing duplicate insert rolls back the whole renewal.
func (uc *ProcessEventUseCase) applySubscriptionRenewed(ctx context.Context, provider vo.Provider, event *gateway.NormalizedEvent) error {
	sub, err := uc.subRepo.GetByProviderSubscriptionID(ctx, provider.String(), event.ObjectID)
	if err != nil || sub == nil {
		return fmt.Errorf("subscription not found for provider id %s", event.ObjectID)
	}

	idempotencyKey := "evt:" + event.ProviderEventID
	if existing, err := uc.paymentRepo.GetByIdempotencyKey(ctx, idempotencyKey); err == nil && existing != nil {
		return nil
	}

	periodStart := sub.CurrentPeriodEnd()
	periodEnd := sub.BillingCycle().NextPeriodEnd(periodStart)

	amount := sub.Amount()
	if event.Amount != nil {
		amount = *event.Amount
	}

	subID := sub.ID()
	renewalPayment, err := payment.NewPayment(
		sub.UserID(), sub.PaymentMethodID(), provider, amount,
		idempotencyKey, "subscription renewal", &subID,
	)
	if err != nil {
		return err
	}
	if err := renewalPayment.MarkAsSucceeded(event.ObjectID); err != nil {
		return err
	}

	return uc.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := uc.paymentRepo.Create(txCtx, renewalPayment); err != nil {
			return err
		}
		if err := sub.Renew(periodStart, periodEnd); err != nil {
			return err
		}
		return uc.subRepo.Update(txCtx, sub)
	})
}

func (uc *ProcessEventUseCase) applySubscriptionPastDue(ctx context.Context, provider vo.Provider, event *gateway.NormalizedEvent) error {
	sub, err := uc.subRepo.GetByProviderSubscriptionID(ctx, provider.String(), event.ObjectID)
	if err != nil || sub == nil {
		return fmt.Errorf("subscription not found for provider id %s", event.ObjectID)
	}

	if err := sub.MarkPastDue(); err != nil {
		uc.logger.Warnw("past_due event not applicable", "subscription_id", sub.ID(), "status", sub.Status())
		return nil
	}
	return uc.subRepo.Update(ctx, sub)
}

func (uc *ProcessEventUseCase) applySubscriptionCanceled(ctx context.Context, provider vo.Provider, event *gateway.NormalizedEvent) error {
	sub, err := uc.subRepo.GetByProviderSubscriptionID(ctx, provider.String(), event.ObjectID)
	if err != nil || sub == nil {
		return fmt.Errorf("subscription not found for provider id %s", event.ObjectID)
	}

	// A cancel that was scheduled locally keeps its original reason when the
	// provider finally ends the agreement at the period boundary.
	reason := "provider_canceled"
	if sub.CancelAtPeriodEnd() && sub.CancelReason() != nil {
		reason = *sub.CancelReason()
	}
	if err := sub.Cancel(reason); err != nil {
		return err
	}
	return uc.subRepo.Update(ctx, sub)
}

// resolvePayment finds the local payment an event refers to: by the provider
// payment id first, then by the order number echoed back in provider fields
// (set when the charge timed out before the provider id was stored).
func (uc *ProcessEventUseCase) resolvePayment(ctx context.Context, provider vo.Provider, event *gateway.NormalizedEvent) (*payment.Payment, error) {
	if p, err := uc.paymentRepo.GetByProviderPaymentID(ctx, provider.String(), event.ObjectID); err == nil && p != nil {
		return p, nil
	}

	if orderNo := orderNoFromRaw(event.Raw); orderNo != "" {
		if p, err := uc.paymentRepo.GetByOrderNo(ctx, orderNo); err == nil && p != nil {
			return p, nil
		}
	}
	return nil, fmt.Errorf("payment not found for provider object %s", event.ObjectID)
}

func orderNoFromRaw(raw map[string]interface{}) string {
	if raw == nil {
		return ""
	}
	if s, ok := raw["merchant_trans_id"].(string); ok && s != "" {
		return s
	}
	if account, ok := raw["account"].(map[string]interface{}); ok {
		if s, ok := account["order_no"].(string); ok {
			return s
		}
	}
	if meta, ok := raw["metadata"].(map[string]interface{}); ok {
		if s, ok := meta["order_no"].(string); ok {
			return s
		}
	}
	return ""
}
