package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/postline-io/postline/internal/domain/subscription"
	vo "github.com/postline-io/postline/internal/domain/subscription/valueobjects"
	"github.com/postline-io/postline/internal/infrastructure/persistence/mappers"
	"github.com/postline-io/postline/internal/infrastructure/persistence/models"
	"github.com/postline-io/postline/internal/shared/db"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(ctx context.Context, s *subscription.Subscription) error {
	model := mappers.SubscriptionToModel(s)

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		return err
	}

	return s.SetID(model.ID)
}

func (r *SubscriptionRepository) Update(ctx context.Context, s *subscription.Subscription) error {
	model := mappers.SubscriptionToModel(s)

	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.SubscriptionModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			"status":               model.Status,
			"active_marker":        model.ActiveMarker,
			"current_period_start": model.CurrentPeriodStart,
			"current_period_end":   model.CurrentPeriodEnd,
			"canceled_at":          model.CanceledAt,
			"cancel_reason":        model.CancelReason,
			"metadata":             model.Metadata,
			"version":              model.Version,
			"updated_at":           model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update subscription: %w", result.Error)
	}
	return nil
}

func (r *SubscriptionRepository) GetByID(ctx context.Context, id uint) (*subscription.Subscription, error) {
	var model models.SubscriptionModel

	if err := db.GetTxFromContext(ctx, r.db).First(&model, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("subscription not found")
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return mappers.SubscriptionToDomain(&model)
}

func (r *SubscriptionRepository) GetLiveByUserID(ctx context.Context, userID uint) (*subscription.Subscription, error) {
	var model models.SubscriptionModel

	liveStatuses := []string{
		vo.StatusTrialing.String(),
		vo.StatusActive.String(),
		vo.StatusPastDue.String(),
	}
	if err := db.GetTxFromContext(ctx, r.db).
		Where("user_id = ? AND status IN ?", userID, liveStatuses).
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("subscription not found")
		}
		return nil, fmt.Errorf("failed to get live subscription: %w", err)
	}

	return mappers.SubscriptionToDomain(&model)
}

func (r *SubscriptionRepository) GetByProviderSubscriptionID(ctx context.Context, provider, providerSubscriptionID string) (*subscription.Subscription, error) {
	var model models.SubscriptionModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("provider = ? AND provider_subscription_id = ?", provider, providerSubscriptionID).
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("subscription not found")
		}
		return nil, fmt.Errorf("failed to get subscription by provider id: %w", err)
	}

	return mappers.SubscriptionToDomain(&model)
}
