package usecases

import (
	"context"
	"fmt"

	"github.com/postline-io/postline/internal/application/payment/gateway"
	"github.com/postline-io/postline/internal/domain/payment"
	vo "github.com/postline-io/postline/internal/domain/payment/valueobjects"
	"github.com/postline-io/postline/internal/shared/db"
	"github.com/postline-io/postline/internal/shared/errors"
	"github.com/postline-io/postline/internal/shared/logger"
)

type CreatePaymentMethodCommand struct {
	UserID    uint
	Provider  string
	Token     string
	Email     string
	Name      string
	IsDefault bool
}

type CreatePaymentMethodResult struct {
	Method *payment.PaymentMethod
}

type CreatePaymentMethodUseCase struct {
	methodRepo payment.PaymentMethodRepository
	registry   *gateway.Registry
	txManager  db.Transactor
	logger     logger.Interface
}

func NewCreatePaymentMethodUseCase(
	methodRepo payment.PaymentMethodRepository,
	registry *gateway.Registry,
	txManager db.Transactor,
	logger logger.Interface,
) *CreatePaymentMethodUseCase {
	return &CreatePaymentMethodUseCase{
		methodRepo: methodRepo,
		registry:   registry,
		txManager:  txManager,
		logger:     logger,
	}
}

func (uc *CreatePaymentMethodUseCase) Execute(ctx context.Context, cmd CreatePaymentMethodCommand) (*CreatePaymentMethodResult, error) {
	provider, err := vo.NewProvider(cmd.Provider)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	if cmd.Token == "" {
		return nil, errors.NewValidationError("payment token is required")
	}

	gw, err := uc.registry.Get(provider)
	if err != nil {
		return nil, err
	}

	// Reuse the provider-side customer if the user already registered a
	// method with this provider.
	customerID, err := uc.existingCustomerID(ctx, cmd.UserID, provider)
	if err != nil {
		return nil, err
	}
	if customerID == "" {
		customerID, err = gw.CreateCustomer(ctx, gateway.CreateCustomerParams{
			UserID: cmd.UserID,
			Email:  cmd.Email,
			Name:   cmd.Name,
		})
		if err != nil {
			uc.logger.Errorw("failed to create provider customer", "error", err, "provider", provider)
			return nil, err
		}
	}

	methodResult, err := gw.CreatePaymentMethod(ctx, gateway.CreatePaymentMethodParams{
		CustomerID: customerID,
		Token:      cmd.Token,
	})
	if err != nil {
		uc.logger.Errorw("failed to register method at provider", "error", err, "provider", provider)
		return nil, err
	}

	method, err := payment.NewPaymentMethod(
		cmd.UserID, provider, customerID,
		methodResult.ProviderMethodID, methodResult.MethodType,
		methodResult.LastFour, methodResult.Brand,
		cmd.IsDefault,
	)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	// Clearing the old default and creating the new one are sequenced in one
	// transaction so no two methods ever report default simultaneously.
	err = uc.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		if cmd.IsDefault {
			if err := uc.methodRepo.ClearDefaultForUser(txCtx, cmd.UserID); err != nil {
				return fmt.Errorf("failed to clear default methods: %w", err)
			}
		}
		return uc.methodRepo.Create(txCtx, method)
	})
	if err != nil {
		uc.logger.Errorw("failed to save payment method", "error", err, "user_id", cmd.UserID)
		return nil, errors.NewInternalError("failed to save payment method")
	}

	uc.logger.Infow("payment method registered",
		"method_id", method.ID(),
		"user_id", cmd.UserID,
		"provider", provider,
		"is_default", cmd.IsDefault)

	return &CreatePaymentMethodResult{Method: method}, nil
}

func (uc *CreatePaymentMethodUseCase) existingCustomerID(ctx context.Context, userID uint, provider vo.Provider) (string, error) {
	methods, err := uc.methodRepo.ListActiveByUserID(ctx, userID)
	if err != nil {
		return "", errors.NewInternalError("failed to list payment methods")
	}
	for _, m := range methods {
		if m.Provider() == provider && m.ProviderCustomerID() != "" {
			return m.ProviderCustomerID(), nil
		}
	}
	return "", nil
}
