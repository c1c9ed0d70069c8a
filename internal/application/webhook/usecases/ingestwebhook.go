package usecases

import (
	"context"

	"github.com/google/uuid"

	"github.com/postline-io/postline/internal/application/payment/gateway"
	vo "github.com/postline-io/postline/internal/domain/payment/valueobjects"
	"github.com/postline-io/postline/internal/domain/webhook"
	"github.com/postline-io/postline/internal/shared/errors"
	"github.com/postline-io/postline/internal/shared/logger"
)

// Outcome is the typed result of a webhook ingestion. The HTTP layer consumes
// it explicitly instead of every path collapsing into a logged 200.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeRejected  Outcome = "rejected"
	OutcomeErrored   Outcome = "errored"
)

type IngestWebhookCommand struct {
	Provider  string
	Body      []byte
	Signature string
}

type IngestWebhookResult struct {
	Outcome         Outcome
	ProviderEventID string
}

// ProcessedEventCache is a fast-path dedup layer in front of the database.
// Misses are always safe: the stored event row is the source of truth.
type ProcessedEventCache interface {
	IsProcessed(ctx context.Context, provider, providerEventID string) bool
	MarkProcessed(ctx context.Context, provider, providerEventID string)
}

type IngestWebhookUseCase struct {
	eventRepo webhook.EventRepository
	registry  *gateway.Registry
	processor *ProcessEventUseCase
	dedup     ProcessedEventCache
	logger    logger.Interface
}

func NewIngestWebhookUseCase(
	eventRepo webhook.EventRepository,
	registry *gateway.Registry,
	processor *ProcessEventUseCase,
	dedup ProcessedEventCache,
	logger logger.Interface,
) *IngestWebhookUseCase {
	return &IngestWebhookUseCase{
		eventRepo: eventRepo,
		registry:  registry,
		processor: processor,
		dedup:     dedup,
		logger:    logger,
	}
}

// Execute stores the raw notification first, then verifies, then processes.
// The stored row survives every failure path as the audit trail; only events
// that pass signature verification ever mutate billing state.
func (uc *IngestWebhookUseCase) Execute(ctx context.Context, cmd IngestWebhookCommand) (*IngestWebhookResult, error) {
	provider, err := vo.NewProvider(cmd.Provider)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	gw, err := uc.registry.Get(provider)
	if err != nil {
		return nil, err
	}

	// Parsing is pure and safe on unverified input; it only names the event
	// for storage and dedup. No state is touched until the signature checks.
	normalized, parseErr := gw.ParseWebhookEvent(cmd.Body)
	providerEventID := ""
	if normalized != nil {
		providerEventID = normalized.ProviderEventID
	}
	if providerEventID == "" {
		providerEventID = "ingest-" + uuid.NewString()
	}

	if uc.dedup != nil && uc.dedup.IsProcessed(ctx, provider.String(), providerEventID) {
		return &IngestWebhookResult{Outcome: OutcomeDuplicate, ProviderEventID: providerEventID}, nil
	}

	event, outcome, err := uc.storeEvent(ctx, provider, normalized, providerEventID, cmd)
	if err != nil {
		return nil, err
	}
	if outcome == OutcomeDuplicate {
		return &IngestWebhookResult{Outcome: OutcomeDuplicate, ProviderEventID: providerEventID}, nil
	}

	if sigErr := gw.VerifyWebhookSignature(cmd.Body, cmd.Signature); sigErr != nil {
		event.MarkRejected(sigErr.Error())
		if updateErr := uc.eventRepo.Update(ctx, event); updateErr != nil {
			uc.logger.Errorw("failed to record rejected webhook", "error", updateErr, "event_id", event.ID())
		}
		uc.logger.Warnw("webhook signature rejected",
			"provider", provider, "provider_event_id", providerEventID)
		return &IngestWebhookResult{Outcome: OutcomeRejected, ProviderEventID: providerEventID}, nil
	}

	if parseErr != nil {
		event.MarkFailed(parseErr.Error())
		if updateErr := uc.eventRepo.Update(ctx, event); updateErr != nil {
			uc.logger.Errorw("failed to record unparseable webhook", "error", updateErr, "event_id", event.ID())
		}
		return &IngestWebhookResult{Outcome: OutcomeErrored, ProviderEventID: providerEventID}, nil
	}

	if normalized.Type == gateway.EventIgnored {
		event.MarkProcessed()
		if updateErr := uc.eventRepo.Update(ctx, event); updateErr != nil {
			uc.logger.Errorw("failed to mark ignored webhook", "error", updateErr, "event_id", event.ID())
		}
		return &IngestWebhookResult{Outcome: OutcomeIgnored, ProviderEventID: providerEventID}, nil
	}

	if applyErr := uc.processor.Apply(ctx, provider, normalized); applyErr != nil {
		event.MarkFailed(applyErr.Error())
		if updateErr := uc.eventRepo.Update(ctx, event); updateErr != nil {
			uc.logger.Errorw("failed to record webhook processing failure", "error", updateErr, "event_id", event.ID())
		}
		uc.logger.Errorw("webhook processing failed",
			"error", applyErr, "provider", provider, "provider_event_id", providerEventID)
		return &IngestWebhookResult{Outcome: OutcomeErrored, ProviderEventID: providerEventID}, nil
	}

	event.MarkProcessed()
	if err := uc.eventRepo.Update(ctx, event); err != nil {
		uc.logger.Errorw("failed to mark webhook processed", "error", err, "event_id", event.ID())
	}
	if uc.dedup != nil {
		uc.dedup.MarkProcessed(ctx, provider.String(), providerEventID)
	}

	uc.logger.Infow("webhook processed",
		"provider", provider, "provider_event_id", providerEventID, "type", normalized.Type)
	return &IngestWebhookResult{Outcome: OutcomeProcessed, ProviderEventID: providerEventID}, nil
}

// Retry re-processes a stored, verified event that previously failed. Used by
// the retry worker; rejected events never reach here.
func (uc *IngestWebhookUseCase) Retry(ctx context.Context, event *webhook.Event) Outcome {
	provider := event.Provider()
	gw, err := uc.registry.Get(provider)
	if err != nil {
		return OutcomeErrored
	}

	normalized, err := gw.ParseWebhookEvent(event.Payload())
	if err != nil {
		event.MarkFailed(err.Error())
		_ = uc.eventRepo.Update(ctx, event)
		return OutcomeErrored
	}

	if err := uc.processor.Apply(ctx, provider, normalized); err != nil {
		event.MarkFailed(err.Error())
		_ = uc.eventRepo.Update(ctx, event)
		return OutcomeErrored
	}

	event.MarkProcessed()
	if err := uc.eventRepo.Update(ctx, event); err != nil {
		uc.logger.Errorw("failed to mark retried webhook processed", "error", err, "event_id", event.ID())
	}
	if uc.dedup != nil {
		uc.dedup.MarkProcessed(ctx, provider.String(), event.ProviderEventID())
	}
	return OutcomeProcessed
}

func (uc *IngestWebhookUseCase) storeEvent(
	ctx context.Context,
	provider vo.Provider,
	normalized *gateway.NormalizedEvent,
	providerEventID string,
	cmd IngestWebhookCommand,
) (*webhook.Event, Outcome, error) {
	if existing, err := uc.eventRepo.GetByProviderEventID(ctx, provider.String(), providerEventID); err == nil && existing != nil {
		if existing.Processed() {
			return nil, OutcomeDuplicate, nil
		}
		return existing, "", nil
	}

	eventType := ""
	objectID := ""
	if normalized != nil {
		eventType = string(normalized.Type)
		objectID = normalized.ObjectID
	}

	event, err := webhook.NewEvent(provider, eventType, providerEventID, objectID, cmd.Body, cmd.Signature)
	if err != nil {
		return nil, "", errors.NewInternalError("failed to build webhook event", err.Error())
	}
	if err := uc.eventRepo.Create(ctx, event); err != nil {
		if errors.IsDuplicateError(err) {
			if existing, lookupErr := uc.eventRepo.GetByProviderEventID(ctx, provider.String(), providerEventID); lookupErr == nil && existing != nil {
				if existing.Processed() {
					return nil, OutcomeDuplicate, nil
				}
				return existing, "", nil
			}
		}
		uc.logger.Errorw("failed to store webhook event", "error", err, "provider", provider)
		return nil, "", errors.NewInternalError("failed to store webhook event")
	}
	return event, "", nil
}
