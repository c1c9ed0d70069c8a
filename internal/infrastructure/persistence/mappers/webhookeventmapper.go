package mappers

import (
	paymentVO "github.com/postline-io/postline/internal/domain/payment/valueobjects"
	"github.com/postline-io/postline/internal/domain/webhook"
	"github.com/postline-io/postline/internal/infrastructure/persistence/models"
)

func WebhookEventToModel(e *webhook.Event) *models.WebhookEventModel {
	return &models.WebhookEventModel{
		ID:              e.ID(),
		Provider:        e.Provider().String(),
		EventType:       e.EventType(),
		ProviderEventID: e.ProviderEventID(),
		ObjectID:        e.ObjectID(),
		Payload:         e.Payload(),
		Signature:       e.Signature(),
		Processed:       e.Processed(),
		ProcessError:    e.ProcessError(),
		RetryCount:      e.RetryCount(),
		ReceivedAt:      e.ReceivedAt(),
		ProcessedAt:     e.ProcessedAt(),
		UpdatedAt:       e.UpdatedAt(),
	}
}

func WebhookEventToDomain(model *models.WebhookEventModel) (*webhook.Event, error) {
	provider, err := paymentVO.NewProvider(model.Provider)
	if err != nil {
		return nil, err
	}

	return webhook.ReconstructEvent(
		model.ID,
		provider,
		model.EventType, model.ProviderEventID, model.ObjectID,
		model.Payload,
		model.Signature,
		model.Processed,
		model.ProcessError,
		model.RetryCount,
		model.ReceivedAt,
		model.ProcessedAt,
		model.UpdatedAt,
	), nil
}
