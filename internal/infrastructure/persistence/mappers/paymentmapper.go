package mappers

import (
	"fmt"

	"github.com/postline-io/postline/internal/domain/payment"
	vo "github.com/postline-io/postline/internal/domain/payment/valueobjects"
	"github.com/postline-io/postline/internal/infrastructure/persistence/models"
)

func PaymentToModel(p *payment.Payment) *models.PaymentModel {
	model := &models.PaymentModel{
		ID:                p.ID(),
		OrderNo:           p.OrderNo(),
		UserID:            p.UserID(),
		SubscriptionID:    p.SubscriptionID(),
		MethodID:          p.MethodID(),
		Provider:          p.Provider().String(),
		IdempotencyKey:    p.IdempotencyKey(),
		Amount:            p.Amount().AmountInCents(),
		Currency:          p.Amount().Currency(),
		Description:       p.Description(),
		Status:            p.Status().String(),
		ProviderPaymentID: p.ProviderPaymentID(),
		FailureCode:       p.FailureCode(),
		FailureMessage:    p.FailureMessage(),
		RefundID:          p.RefundID(),
		RefundedAt:        p.RefundedAt(),
		PaidAt:            p.PaidAt(),
		Version:           p.Version(),
		CreatedAt:         p.CreatedAt(),
		UpdatedAt:         p.UpdatedAt(),
	}

	if len(p.Metadata()) > 0 {
		model.Metadata = p.Metadata()
	}

	return model
}

func PaymentToDomain(model *models.PaymentModel) (*payment.Payment, error) {
	status := vo.PaymentStatus(model.Status)
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid payment status: %s", model.Status)
	}
	provider, err := vo.NewProvider(model.Provider)
	if err != nil {
		return nil, err
	}

	return payment.ReconstructPayment(payment.PaymentReconstructParams{
		ID:                model.ID,
		OrderNo:           model.OrderNo,
		UserID:            model.UserID,
		SubscriptionID:    model.SubscriptionID,
		MethodID:          model.MethodID,
		Provider:          provider,
		IdempotencyKey:    model.IdempotencyKey,
		Amount:            vo.NewMoney(model.Amount, model.Currency),
		Description:       model.Description,
		Status:            status,
		ProviderPaymentID: model.ProviderPaymentID,
		FailureCode:       model.FailureCode,
		FailureMessage:    model.FailureMessage,
		RefundID:          model.RefundID,
		RefundedAt:        model.RefundedAt,
		PaidAt:            model.PaidAt,
		Metadata:          model.Metadata,
		Version:           model.Version,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}), nil
}
