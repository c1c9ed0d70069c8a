package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/postline-io/postline/internal/domain/payment"
	"github.com/postline-io/postline/internal/infrastructure/persistence/mappers"
	"github.com/postline-io/postline/internal/infrastructure/persistence/models"
	"github.com/postline-io/postline/internal/shared/biztime"
	"github.com/postline-io/postline/internal/shared/db"
)

type PaymentMethodRepository struct {
	db *gorm.DB
}

func NewPaymentMethodRepository(db *gorm.DB) *PaymentMethodRepository {
	return &PaymentMethodRepository{db: db}
}

func (r *PaymentMethodRepository) Create(ctx context.Context, m *payment.PaymentMethod) error {
	model := mappers.PaymentMethodToModel(m)

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create payment method: %w", err)
	}

	m.SetID(model.ID)
	return nil
}

func (r *PaymentMethodRepository) Update(ctx context.Context, m *payment.PaymentMethod) error {
	model := mappers.PaymentMethodToModel(m)

	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.PaymentMethodModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			"is_default": model.IsDefault,
			"is_active":  model.IsActive,
			"updated_at": model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update payment method: %w", result.Error)
	}
	return nil
}

func (r *PaymentMethodRepository) GetByID(ctx context.Context, id uint) (*payment.PaymentMethod, error) {
	var model models.PaymentMethodModel

	if err := db.GetTxFromContext(ctx, r.db).First(&model, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("payment method not found")
		}
		return nil, fmt.Errorf("failed to get payment method: %w", err)
	}

	return mappers.PaymentMethodToDomain(&model)
}

func (r *PaymentMethodRepository) ListActiveByUserID(ctx context.Context, userID uint) ([]*payment.PaymentMethod, error) {
	var methodModels []models.PaymentMethodModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("is_default DESC, created_at DESC").
		Find(&methodModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}

	methods := make([]*payment.PaymentMethod, 0, len(methodModels))
	for i := range methodModels {
		m, err := mappers.PaymentMethodToDomain(&methodModels[i])
		if err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	return methods, nil
}

func (r *PaymentMethodRepository) ClearDefaultForUser(ctx context.Context, userID uint) error {
	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.PaymentMethodModel{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Updates(map[string]interface{}{
			"is_default": false,
			"updated_at": biztime.NowUTC(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to clear default payment methods: %w", result.Error)
	}
	return nil
}
