package usecases

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postline-io/postline/internal/domain/payment"
	vo "github.com/postline-io/postline/internal/domain/payment/valueobjects"
	"github.com/postline-io/postline/internal/shared/logger"
)

func TestListPayments(t *testing.T) {
	payRepo := &fakePaymentRepo{}
	for i := 0; i < 25; i++ {
		p, err := payment.NewPayment(1, 1, vo.ProviderStripe, vo.NewMoney(990, "USD"),
			fmt.Sprintf("idem_%d", i), "", nil)
		require.NoError(t, err)
		require.NoError(t, payRepo.Create(context.Background(), p))
	}
	uc := NewListPaymentsUseCase(payRepo, logger.NewLogger())

	t.Run("defaults page and size", func(t *testing.T) {
		result, err := uc.Execute(context.Background(), ListPaymentsCommand{UserID: 1})

		require.NoError(t, err)
		assert.Equal(t, 1, result.Page)
		assert.Equal(t, 20, result.PageSize)
		assert.Equal(t, int64(25), result.Total)
		assert.Len(t, result.Payments, 20)
	})

	t.Run("caps oversized page size", func(t *testing.T) {
		result, err := uc.Execute(context.Background(), ListPaymentsCommand{UserID: 1, Page: 1, PageSize: 500})

		require.NoError(t, err)
		assert.Equal(t, 20, result.PageSize)
	})

	t.Run("returns the remainder on the last page", func(t *testing.T) {
		result, err := uc.Execute(context.Background(), ListPaymentsCommand{UserID: 1, Page: 2, PageSize: 20})

		require.NoError(t, err)
		assert.Len(t, result.Payments, 5)
		assert.Equal(t, int64(25), result.Total)
	})

	t.Run("other users see nothing", func(t *testing.T) {
		result, err := uc.Execute(context.Background(), ListPaymentsCommand{UserID: 2})

		require.NoError(t, err)
		assert.Empty(t, result.Payments)
		assert.Zero(t, result.Total)
	})
}
