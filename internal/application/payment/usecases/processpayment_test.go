package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postline-io/postline/internal/application/payment/gateway"
	"github.com/postline-io/postline/internal/domain/payment"
	vo "github.com/postline-io/postline/internal/domain/payment/valueobjects"
	"github.com/postline-io/postline/internal/shared/errors"
	"github.com/postline-io/postline/internal/shared/logger"
)

// --- helpers ---

func newProcessEnv(t *testing.T) (*ProcessPaymentUseCase, *fakePaymentRepo, *fakeMethodRepo, *gateway.MockGateway) {
	t.Helper()
	payRepo := &fakePaymentRepo{}
	methodRepo := newFakeMethodRepo()
	gw := &gateway.MockGateway{}
	uc := NewProcessPaymentUseCase(payRepo, methodRepo, gateway.NewRegistry(gw), time.Second, logger.NewLogger())
	return uc, payRepo, methodRepo, gw
}

func seedMethod(t *testing.T, repo *fakeMethodRepo, userID uint) *payment.PaymentMethod {
	t.Helper()
	m, err := payment.NewPaymentMethod(userID, vo.ProviderStripe, "cus_1", "pm_1", vo.MethodTypeCard, "4242", "visa", true)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), m))
	return m
}

func chargeCommand(methodID uint) ProcessPaymentCommand {
	return ProcessPaymentCommand{
		UserID:         1,
		MethodID:       methodID,
		AmountInCents:  990,
		Currency:       "USD",
		Description:    "pro plan",
		IdempotencyKey: "idem_1",
	}
}

func TestProcessPayment(t *testing.T) {
	t.Run("charges once and finalizes the payment", func(t *testing.T) {
		uc, _, methodRepo, gw := newProcessEnv(t)
		method := seedMethod(t, methodRepo, 1)

		result, err := uc.Execute(context.Background(), chargeCommand(method.ID()))

		require.NoError(t, err)
		assert.False(t, result.Replayed)
		assert.Equal(t, 1, gw.ChargeCalls)
		assert.Equal(t, vo.PaymentStatusSucceeded, result.Payment.Status())
		require.NotNil(t, result.Payment.ProviderPaymentID())
		assert.Equal(t, "pi_mock", *result.Payment.ProviderPaymentID())
		assert.NotNil(t, result.Payment.PaidAt())
	})

	t.Run("requires an idempotency key", func(t *testing.T) {
		uc, _, methodRepo, _ := newProcessEnv(t)
		method := seedMethod(t, methodRepo, 1)

		cmd := chargeCommand(method.ID())
		cmd.IdempotencyKey = ""
		_, err := uc.Execute(context.Background(), cmd)

		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		uc, _, methodRepo, _ := newProcessEnv(t)
		method := seedMethod(t, methodRepo, 1)

		cmd := chargeCommand(method.ID())
		cmd.AmountInCents = 0
		_, err := uc.Execute(context.Background(), cmd)

		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("hides methods of other users", func(t *testing.T) {
		uc, _, methodRepo, gw := newProcessEnv(t)
		foreign := seedMethod(t, methodRepo, 2)

		_, err := uc.Execute(context.Background(), chargeCommand(foreign.ID()))

		assert.True(t, errors.IsNotFoundError(err))
		assert.Zero(t, gw.ChargeCalls)
	})

	t.Run("rejects deactivated methods", func(t *testing.T) {
		uc, _, methodRepo, _ := newProcessEnv(t)
		method := seedMethod(t, methodRepo, 1)
		method.Deactivate()

		_, err := uc.Execute(context.Background(), chargeCommand(method.ID()))

		assert.True(t, errors.IsValidationError(err))
	})
}

func TestProcessPaymentIdempotency(t *testing.T) {
	t.Run("replays the stored payment without a second charge", func(t *testing.T) {
		uc, _, methodRepo, gw := newProcessEnv(t)
		method := seedMethod(t, methodRepo, 1)
		cmd := chargeCommand(method.ID())

		first, err := uc.Execute(context.Background(), cmd)
		require.NoError(t, err)

		second, err := uc.Execute(context.Background(), cmd)

		require.NoError(t, err)
		assert.True(t, second.Replayed)
		assert.Equal(t, first.Payment.ID(), second.Payment.ID())
		assert.Equal(t, 1, gw.ChargeCalls, "replay must not call the provider")
	})

	t.Run("conflicts when the key is reused with a different amount", func(t *testing.T) {
		uc, _, methodRepo, _ := newProcessEnv(t)
		method := seedMethod(t, methodRepo, 1)
		cmd := chargeCommand(method.ID())

		_, err := uc.Execute(context.Background(), cmd)
		require.NoError(t, err)

		cmd.AmountInCents = 1990
		_, err = uc.Execute(context.Background(), cmd)

		assert.True(t, errors.IsConflictError(err))
	})

	t.Run("conflicts when the key belongs to another user", func(t *testing.T) {
		uc, _, methodRepo, _ := newProcessEnv(t)
		method := seedMethod(t, methodRepo, 1)
		cmd := chargeCommand(method.ID())

		_, err := uc.Execute(context.Background(), cmd)
		require.NoError(t, err)

		cmd.UserID = 2
		_, err = uc.Execute(context.Background(), cmd)

		assert.True(t, errors.IsConflictError(err))
	})

	t.Run("losing the insert race replays the winner", func(t *testing.T) {
		uc, payRepo, methodRepo, gw := newProcessEnv(t)
		method := seedMethod(t, methodRepo, 1)
		cmd := chargeCommand(method.ID())

		winner, err := payment.NewPayment(cmd.UserID, cmd.MethodID, vo.ProviderStripe,
			vo.NewMoney(cmd.AmountInCents, cmd.Currency), cmd.IdempotencyKey, cmd.Description, nil)
		require.NoError(t, err)
		winner.SetID(99)
		require.NoError(t, winner.MarkAsSucceeded("pi_winner"))
		payRepo.raceWinner = winner
		payRepo.createErr = duplicateKeyError(cmd.IdempotencyKey)

		result, err := uc.Execute(context.Background(), cmd)

		require.NoError(t, err)
		assert.True(t, result.Replayed)
		assert.Equal(t, uint(99), result.Payment.ID())
		assert.Zero(t, gw.ChargeCalls, "loser must not charge again")
	})
}

func TestProcessPaymentChargeFailures(t *testing.T) {
	t.Run("provider rejection fails the payment", func(t *testing.T) {
		uc, payRepo, methodRepo, gw := newProcessEnv(t)
		method := seedMethod(t, methodRepo, 1)
		gw.ChargeFunc = func(ctx context.Context, params gateway.ChargeParams) (*gateway.ChargeResult, error) {
			return nil, errors.NewProviderRejectedError("card declined", "card_declined")
		}

		_, err := uc.Execute(context.Background(), chargeCommand(method.ID()))

		require.True(t, errors.IsProviderRejectedError(err))

		stored, lookupErr := payRepo.GetByIdempotencyKey(context.Background(), "idem_1")
		require.NoError(t, lookupErr)
		assert.Equal(t, vo.PaymentStatusFailed, stored.Status())
		require.NotNil(t, stored.FailureCode())
		assert.Equal(t, "card_declined", *stored.FailureCode())
	})

	t.Run("timeout leaves the payment pending", func(t *testing.T) {
		uc, payRepo, methodRepo, gw := newProcessEnv(t)
		method := seedMethod(t, methodRepo, 1)
		gw.ChargeFunc = func(ctx context.Context, params gateway.ChargeParams) (*gateway.ChargeResult, error) {
			return nil, context.DeadlineExceeded
		}

		_, err := uc.Execute(context.Background(), chargeCommand(method.ID()))

		require.Error(t, err)
		assert.True(t, errors.IsProviderTemporaryError(err))

		stored, lookupErr := payRepo.GetByIdempotencyKey(context.Background(), "idem_1")
		require.NoError(t, lookupErr)
		assert.Equal(t, vo.PaymentStatusPending, stored.Status(),
			"an unknown outcome is never failed locally")
		assert.Equal(t, 1, gw.ChargeCalls)
	})

	t.Run("transient provider error keeps the pending payment retryable via reconciliation", func(t *testing.T) {
		uc, payRepo, methodRepo, gw := newProcessEnv(t)
		method := seedMethod(t, methodRepo, 1)
		gw.ChargeFunc = func(ctx context.Context, params gateway.ChargeParams) (*gateway.ChargeResult, error) {
			return nil, errors.NewProviderTemporaryError("upstream 503")
		}

		_, err := uc.Execute(context.Background(), chargeCommand(method.ID()))

		require.True(t, errors.IsProviderTemporaryError(err))

		stuck, listErr := payRepo.ListStuckPending(context.Background(), time.Now().Add(time.Minute))
		require.NoError(t, listErr)
		require.Len(t, stuck, 1)
		assert.Equal(t, vo.PaymentStatusPending, stuck[0].Status())
	})
}
