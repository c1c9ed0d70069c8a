package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/postline-io/postline/internal/domain/webhook"
	"github.com/postline-io/postline/internal/infrastructure/persistence/mappers"
	"github.com/postline-io/postline/internal/infrastructure/persistence/models"
	"github.com/postline-io/postline/internal/shared/db"
)

type WebhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

func (r *WebhookEventRepository) Create(ctx context.Context, e *webhook.Event) error {
	model := mappers.WebhookEventToModel(e)

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		return err
	}

	e.SetID(model.ID)
	return nil
}

func (r *WebhookEventRepository) Update(ctx context.Context, e *webhook.Event) error {
	model := mappers.WebhookEventToModel(e)

	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.WebhookEventModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			"processed":     model.Processed,
			"process_error": model.ProcessError,
			"retry_count":   model.RetryCount,
			"processed_at":  model.ProcessedAt,
			"updated_at":    model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update webhook event: %w", result.Error)
	}
	return nil
}

func (r *WebhookEventRepository) GetByProviderEventID(ctx context.Context, provider, providerEventID string) (*webhook.Event, error) {
	var model models.WebhookEventModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("provider = ? AND provider_event_id = ?", provider, providerEventID).
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("webhook event not found")
		}
		return nil, fmt.Errorf("failed to get webhook event: %w", err)
	}

	return mappers.WebhookEventToDomain(&model)
}

func (r *WebhookEventRepository) ListRetryable(ctx context.Context, maxRetries, limit int) ([]*webhook.Event, error) {
	var eventModels []models.WebhookEventModel

	// Rejected events have a process error but retry_count zero forever;
	// only events that failed during processing accumulate retries.
	if err := db.GetTxFromContext(ctx, r.db).
		Where("processed = ? AND retry_count > 0 AND retry_count < ?", false, maxRetries).
		Order("received_at ASC").
		Limit(limit).
		Find(&eventModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list retryable webhook events: %w", err)
	}

	events := make([]*webhook.Event, 0, len(eventModels))
	for i := range eventModels {
		e, err := mappers.WebhookEventToDomain(&eventModels[i])
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}
