package usecases

import (
	"context"

	"github.com/postline-io/postline/internal/application/payment/gateway"
	"github.com/postline-io/postline/internal/domain/payment"
	vo "github.com/postline-io/postline/internal/domain/payment/valueobjects"
	"github.com/postline-io/postline/internal/domain/subscription"
	"github.com/postline-io/postline/internal/shared/db"
	"github.com/postline-io/postline/internal/shared/errors"
	"github.com/postline-io/postline/internal/shared/logger"
)

type RefundPaymentCommand struct {
	UserID    uint
	PaymentID uint
	Reason    string
}

type RefundPaymentResult struct {
	Payment              *payment.Payment
	SubscriptionCanceled bool
}

type RefundPaymentUseCase struct {
	paymentRepo payment.PaymentRepository
	subRepo     subscription.SubscriptionRepository
	registry    *gateway.Registry
	txManager   db.Transactor
	logger      logger.Interface
}

func NewRefundPaymentUseCase(
	paymentRepo payment.PaymentRepository,
	subRepo subscription.SubscriptionRepository,
	registry *gateway.Registry,
	txManager db.Transactor,
	logger logger.Interface,
) *RefundPaymentUseCase {
	return &RefundPaymentUseCase{
		paymentRepo: paymentRepo,
		subRepo:     subRepo,
		registry:    registry,
		txManager:   txManager,
		logger:      logger,
	}
}

// Execute refunds a succeeded payment in full. When the payment is linked to
// a subscription and pays for its current period, the subscription is
// canceled along with the refund. The link is the explicit subscription_id
// column, never inferred from amounts or timing alone.
func (uc *RefundPaymentUseCase) Execute(ctx context.Context, cmd RefundPaymentCommand) (*RefundPaymentResult, error) {
	p, err := uc.paymentRepo.GetByID(ctx, cmd.PaymentID)
	if err != nil {
		return nil, errors.NewNotFoundError("payment not found")
	}
	if p.UserID() != cmd.UserID {
		return nil, errors.NewNotFoundError("payment not found")
	}
	if p.Status() == vo.PaymentStatusRefunded {
		return &RefundPaymentResult{Payment: p}, nil
	}
	if p.Status() != vo.PaymentStatusSucceeded {
		return nil, errors.NewValidationError("only succeeded payments can be refunded")
	}
	if p.ProviderPaymentID() == nil {
		return nil, errors.NewInternalError("succeeded payment missing provider payment id")
	}

	gw, err := uc.registry.Get(p.Provider())
	if err != nil {
		return nil, err
	}

	refund, err := gw.Refund(ctx, gateway.RefundParams{
		ProviderPaymentID: *p.ProviderPaymentID(),
		Amount:            p.Amount(),
		Reason:            cmd.Reason,
	})
	if err != nil {
		uc.logger.Errorw("provider refund failed", "error", err, "payment_id", p.ID())
		return nil, err
	}

	sub, cancelSub, err := uc.subscriptionToCancel(ctx, p)
	if err != nil {
		return nil, err
	}

	err = uc.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := p.MarkAsRefunded(refund.RefundID); err != nil {
			return err
		}
		if err := uc.paymentRepo.Update(txCtx, p); err != nil {
			return err
		}
		if cancelSub {
			if err := sub.Cancel("payment_refunded"); err != nil {
				return err
			}
			return uc.subRepo.Update(txCtx, sub)
		}
		return nil
	})
	if err != nil {
		uc.logger.Errorw("failed to persist refund", "error", err, "payment_id", p.ID())
		return nil, errors.NewInternalError("failed to persist refund")
	}

	if cancelSub && sub.ProviderSubscriptionID() != "" {
		// Provider-side teardown is best effort; the local state is already
		// canceled and a later provider event replays as a no-op.
		if err := gw.CancelSubscription(ctx, sub.ProviderSubscriptionID(), true); err != nil {
			uc.logger.Warnw("provider subscription cancel failed after refund",
				"error", err, "subscription_id", sub.ID())
		}
	}

	uc.logger.Infow("payment refunded",
		"payment_id", p.ID(),
		"refund_id", refund.RefundID,
		"subscription_canceled", cancelSub)

	return &RefundPaymentResult{Payment: p, SubscriptionCanceled: cancelSub}, nil
}

// subscriptionToCancel resolves whether the refund takes the linked
// subscription down with it: the payment must be the subscription's latest
// succeeded payment and must have paid for the current period.
func (uc *RefundPaymentUseCase) subscriptionToCancel(ctx context.Context, p *payment.Payment) (*subscription.Subscription, bool, error) {
	if p.SubscriptionID() == nil {
		return nil, false, nil
	}

	sub, err := uc.subRepo.GetByID(ctx, *p.SubscriptionID())
	if err != nil {
		uc.logger.Warnw("linked subscription not found for refund", "subscription_id", *p.SubscriptionID())
		return nil, false, nil
	}
	if sub.Status().IsTerminal() {
		return nil, false, nil
	}

	latest, err := uc.paymentRepo.GetLatestSucceededBySubscriptionID(ctx, sub.ID())
	if err != nil || latest == nil || latest.ID() != p.ID() {
		return nil, false, nil
	}
	if p.PaidAt() == nil || !sub.InCurrentPeriod(*p.PaidAt()) {
		return nil, false, nil
	}
	return sub, true, nil
}
