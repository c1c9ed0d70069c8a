package usecases

import (
	"context"
	"time"

	"github.com/postline-io/postline/internal/application/payment/gateway"
	"github.com/postline-io/postline/internal/domain/payment"
	vo "github.com/postline-io/postline/internal/domain/payment/valueobjects"
	"github.com/postline-io/postline/internal/shared/errors"
	"github.com/postline-io/postline/internal/shared/logger"
)

type ProcessPaymentCommand struct {
	UserID         uint
	MethodID       uint
	AmountInCents  int64
	Currency       string
	Description    string
	IdempotencyKey string
}

type ProcessPaymentResult struct {
	Payment *payment.Payment
	// Replayed is true when the idempotency key matched a stored payment and
	// no provider call was made.
	Replayed bool
}

type ProcessPaymentUseCase struct {
	paymentRepo    payment.PaymentRepository
	methodRepo     payment.PaymentMethodRepository
	registry       *gateway.Registry
	gatewayTimeout time.Duration
	logger         logger.Interface
}

func NewProcessPaymentUseCase(
	paymentRepo payment.PaymentRepository,
	methodRepo payment.PaymentMethodRepository,
	registry *gateway.Registry,
	gatewayTimeout time.Duration,
	logger logger.Interface,
) *ProcessPaymentUseCase {
	return &ProcessPaymentUseCase{
		paymentRepo:    paymentRepo,
		methodRepo:     methodRepo,
		registry:       registry,
		gatewayTimeout: gatewayTimeout,
		logger:         logger,
	}
}

// Execute charges the user once per idempotency key. The key is looked up
// before anything else; a hit returns the stored payment with no provider
// call, a hit with different parameters is a conflict. No row lock is held
// across the provider call: the unique key constraint resolves races.
func (uc *ProcessPaymentUseCase) Execute(ctx context.Context, cmd ProcessPaymentCommand) (*ProcessPaymentResult, error) {
	if cmd.IdempotencyKey == "" {
		return nil, errors.NewValidationError("idempotency key is required")
	}

	amount := vo.NewMoney(cmd.AmountInCents, cmd.Currency)
	if !amount.IsPositive() {
		return nil, errors.NewValidationError("amount must be positive")
	}

	if existing, err := uc.paymentRepo.GetByIdempotencyKey(ctx, cmd.IdempotencyKey); err == nil && existing != nil {
		return uc.replay(existing, cmd, amount)
	}

	method, err := uc.methodRepo.GetByID(ctx, cmd.MethodID)
	if err != nil {
		return nil, errors.NewNotFoundError("payment method not found")
	}
	if method.UserID() != cmd.UserID {
		uc.logger.Warnw("payment attempt with foreign method", "user_id", cmd.UserID, "method_id", cmd.MethodID)
		return nil, errors.NewNotFoundError("payment method not found")
	}
	if !method.IsActive() {
		return nil, errors.NewValidationError("payment method is no longer active")
	}

	gw, err := uc.registry.Get(method.Provider())
	if err != nil {
		return nil, err
	}

	p, err := payment.NewPayment(cmd.UserID, cmd.MethodID, method.Provider(), amount, cmd.IdempotencyKey, cmd.Description, nil)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	if err := uc.paymentRepo.Create(ctx, p); err != nil {
		// A concurrent request with the same key won the insert race.
		if errors.IsDuplicateError(err) {
			if existing, lookupErr := uc.paymentRepo.GetByIdempotencyKey(ctx, cmd.IdempotencyKey); lookupErr == nil && existing != nil {
				return uc.replay(existing, cmd, amount)
			}
		}
		uc.logger.Errorw("failed to create payment", "error", err, "user_id", cmd.UserID)
		return nil, errors.NewInternalError("failed to create payment")
	}

	chargeCtx, cancel := context.WithTimeout(ctx, uc.gatewayTimeout)
	defer cancel()

	result, err := gw.Charge(chargeCtx, gateway.ChargeParams{
		CustomerID:       method.ProviderCustomerID(),
		ProviderMethodID: method.ProviderMethodID(),
		Amount:           amount,
		OrderNo:          p.OrderNo(),
		Description:      cmd.Description,
	})
	if err != nil {
		return uc.handleChargeFailure(ctx, p, err)
	}

	if err := p.MarkAsSucceeded(result.ProviderPaymentID); err != nil {
		return nil, errors.NewInternalError(err.Error())
	}
	if err := uc.paymentRepo.Update(ctx, p); err != nil {
		uc.logger.Errorw("failed to persist succeeded payment", "error", err, "payment_id", p.ID())
		return nil, errors.NewInternalError("failed to update payment")
	}

	uc.logger.Infow("payment succeeded",
		"payment_id", p.ID(),
		"order_no", p.OrderNo(),
		"provider", p.Provider(),
		"amount", amount.AmountInCents())

	return &ProcessPaymentResult{Payment: p}, nil
}

func (uc *ProcessPaymentUseCase) replay(existing *payment.Payment, cmd ProcessPaymentCommand, amount vo.Money) (*ProcessPaymentResult, error) {
	if existing.UserID() != cmd.UserID {
		return nil, errors.NewConflictError("idempotency key already used")
	}
	if !existing.MatchesRequest(amount, cmd.MethodID) {
		return nil, errors.NewConflictError("idempotency key reused with different parameters")
	}
	uc.logger.Infow("payment replayed from idempotency key",
		"payment_id", existing.ID(), "idempotency_key", cmd.IdempotencyKey)
	return &ProcessPaymentResult{Payment: existing, Replayed: true}, nil
}

// handleChargeFailure decides the payment's fate from the error class. A
// terminal rejection fails the payment; a transient failure or timeout leaves
// it pending, because the provider may still have executed the charge. The
// reconciliation job or a webhook settles it later.
func (uc *ProcessPaymentUseCase) handleChargeFailure(ctx context.Context, p *payment.Payment, chargeErr error) (*ProcessPaymentResult, error) {
	if errors.IsProviderRejectedError(chargeErr) {
		appErr := errors.GetAppError(chargeErr)
		if err := p.MarkAsFailed(appErr.ProviderCode, appErr.Message); err != nil {
			uc.logger.Errorw("failed to mark payment failed", "error", err, "payment_id", p.ID())
		} else if err := uc.paymentRepo.Update(ctx, p); err != nil {
			uc.logger.Errorw("failed to persist failed payment", "error", err, "payment_id", p.ID())
		}
		uc.logger.Warnw("payment rejected by provider",
			"payment_id", p.ID(), "provider_code", appErr.ProviderCode)
		return nil, chargeErr
	}

	uc.logger.Warnw("charge outcome unknown, payment left pending",
		"payment_id", p.ID(), "order_no", p.OrderNo(), "error", chargeErr)
	if errors.IsAppError(chargeErr) {
		return nil, chargeErr
	}
	return nil, errors.NewProviderTemporaryError("charge outcome unknown", chargeErr.Error())
}
