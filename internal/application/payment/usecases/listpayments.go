package usecases

import (
	"context"

	"github.com/postline-io/postline/internal/domain/payment"
	"github.com/postline-io/postline/internal/shared/errors"
	"github.com/postline-io/postline/internal/shared/logger"
)

type ListPaymentsCommand struct {
	UserID   uint
	Page     int
	PageSize int
}

type ListPaymentsResult struct {
	Payments []*payment.Payment
	Total    int64
	Page     int
	PageSize int
}

type ListPaymentsUseCase struct {
	paymentRepo payment.PaymentRepository
	logger      logger.Interface
}

func NewListPaymentsUseCase(paymentRepo payment.PaymentRepository, logger logger.Interface) *ListPaymentsUseCase {
	return &ListPaymentsUseCase{paymentRepo: paymentRepo, logger: logger}
}

func (uc *ListPaymentsUseCase) Execute(ctx context.Context, cmd ListPaymentsCommand) (*ListPaymentsResult, error) {
	page := cmd.Page
	if page < 1 {
		page = 1
	}
	pageSize := cmd.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	payments, total, err := uc.paymentRepo.ListByUserID(ctx, cmd.UserID, page, pageSize)
	if err != nil {
		uc.logger.Errorw("failed to list payments", "error", err, "user_id", cmd.UserID)
		return nil, errors.NewInternalError("failed to list payments")
	}

	return &ListPaymentsResult{
		Payments: payments,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}
