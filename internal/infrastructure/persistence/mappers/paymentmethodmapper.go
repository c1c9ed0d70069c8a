package mappers

import (
	"github.com/postline-io/postline/internal/domain/payment"
	vo "github.com/postline-io/postline/internal/domain/payment/valueobjects"
	"github.com/postline-io/postline/internal/infrastructure/persistence/models"
)

func PaymentMethodToModel(m *payment.PaymentMethod) *models.PaymentMethodModel {
	return &models.PaymentMethodModel{
		ID:                 m.ID(),
		UserID:             m.UserID(),
		Provider:           m.Provider().String(),
		ProviderCustomerID: m.ProviderCustomerID(),
		ProviderMethodID:   m.ProviderMethodID(),
		MethodType:         m.MethodType().String(),
		LastFour:           m.LastFour(),
		Brand:              m.Brand(),
		IsDefault:          m.IsDefault(),
		IsActive:           m.IsActive(),
		CreatedAt:          m.CreatedAt(),
		UpdatedAt:          m.UpdatedAt(),
	}
}

func PaymentMethodToDomain(model *models.PaymentMethodModel) (*payment.PaymentMethod, error) {
	provider, err := vo.NewProvider(model.Provider)
	if err != nil {
		return nil, err
	}
	methodType, err := vo.NewMethodType(model.MethodType)
	if err != nil {
		return nil, err
	}

	return payment.ReconstructPaymentMethod(
		model.ID, model.UserID,
		provider,
		model.ProviderCustomerID, model.ProviderMethodID,
		methodType,
		model.LastFour, model.Brand,
		model.IsDefault, model.IsActive,
		model.CreatedAt, model.UpdatedAt,
	), nil
}
