package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/postline-io/postline/internal/domain/payment"
	vo "github.com/postline-io/postline/internal/domain/payment/valueobjects"
	"github.com/postline-io/postline/internal/infrastructure/persistence/mappers"
	"github.com/postline-io/postline/internal/infrastructure/persistence/models"
	"github.com/postline-io/postline/internal/shared/db"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	model := mappers.PaymentToModel(p)

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		return err
	}

	p.SetID(model.ID)
	return nil
}

func (r *PaymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	model := mappers.PaymentToModel(p)

	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.PaymentModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			"status":              model.Status,
			"provider_payment_id": model.ProviderPaymentID,
			"failure_code":        model.FailureCode,
			"failure_message":     model.FailureMessage,
			"refund_id":           model.RefundID,
			"refunded_at":         model.RefundedAt,
			"paid_at":             model.PaidAt,
			"metadata":            model.Metadata,
			"version":             model.Version,
			"updated_at":          model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update payment: %w", result.Error)
	}
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id uint) (*payment.Payment, error) {
	var model models.PaymentModel

	if err := db.GetTxFromContext(ctx, r.db).First(&model, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("payment not found")
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return mappers.PaymentToDomain(&model)
}

func (r *PaymentRepository) GetByIdempotencyKey(ctx context.Context, key string) (*payment.Payment, error) {
	var model models.PaymentModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("idempotency_key = ?", key).
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("payment not found")
		}
		return nil, fmt.Errorf("failed to get payment by idempotency key: %w", err)
	}

	return mappers.PaymentToDomain(&model)
}

func (r *PaymentRepository) GetByProviderPaymentID(ctx context.Context, provider, providerPaymentID string) (*payment.Payment, error) {
	var model models.PaymentModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("provider = ? AND provider_payment_id = ?", provider, providerPaymentID).
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("payment not found")
		}
		return nil, fmt.Errorf("failed to get payment by provider payment id: %w", err)
	}

	return mappers.PaymentToDomain(&model)
}

func (r *PaymentRepository) GetByOrderNo(ctx context.Context, orderNo string) (*payment.Payment, error) {
	var model models.PaymentModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("order_no = ?", orderNo).
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("payment not found")
		}
		return nil, fmt.Errorf("failed to get payment by order_no: %w", err)
	}

	return mappers.PaymentToDomain(&model)
}

func (r *PaymentRepository) ListByUserID(ctx context.Context, userID uint, page, pageSize int) ([]*payment.Payment, int64, error) {
	conn := db.GetTxFromContext(ctx, r.db)

	var total int64
	if err := conn.Model(&models.PaymentModel{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	var paymentModels []models.PaymentModel
	if err := conn.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&paymentModels).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}

	payments := make([]*payment.Payment, 0, len(paymentModels))
	for i := range paymentModels {
		p, err := mappers.PaymentToDomain(&paymentModels[i])
		if err != nil {
			return nil, 0, err
		}
		payments = append(payments, p)
	}
	return payments, total, nil
}

func (r *PaymentRepository) GetLatestSucceededBySubscriptionID(ctx context.Context, subscriptionID uint) (*payment.Payment, error) {
	var model models.PaymentModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("subscription_id = ? AND status = ?", subscriptionID, vo.PaymentStatusSucceeded.String()).
		Order("paid_at DESC").
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("payment not found")
		}
		return nil, fmt.Errorf("failed to get latest subscription payment: %w", err)
	}

	return mappers.PaymentToDomain(&model)
}

func (r *PaymentRepository) ListStuckPending(ctx context.Context, olderThan time.Time) ([]*payment.Payment, error) {
	var paymentModels []models.PaymentModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("status = ? AND created_at < ?", vo.PaymentStatusPending.String(), olderThan).
		Order("created_at ASC").
		Find(&paymentModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list stuck pending payments: %w", err)
	}

	payments := make([]*payment.Payment, 0, len(paymentModels))
	for i := range paymentModels {
		p, err := mappers.PaymentToDomain(&paymentModels[i])
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, nil
}
