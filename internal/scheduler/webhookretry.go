package scheduler

import (
	"context"
	"time"

	webhookUC "github.com/postline-io/postline/internal/application/webhook/usecases"
	"github.com/postline-io/postline/internal/domain/webhook"
	"github.com/postline-io/postline/internal/shared/goroutine"
	"github.com/postline-io/postline/internal/shared/logger"
)

const retryBatchSize = 50

// WebhookRetryScheduler re-processes verified events whose handling failed,
// up to the configured retry cap. Rejected events never qualify.
type WebhookRetryScheduler struct {
	eventRepo  webhook.EventRepository
	ingest     *webhookUC.IngestWebhookUseCase
	interval   time.Duration
	maxRetries int
	stopCh     chan struct{}
	log        logger.Interface
}

func NewWebhookRetryScheduler(
	eventRepo webhook.EventRepository,
	ingest *webhookUC.IngestWebhookUseCase,
	interval time.Duration,
	maxRetries int,
	log logger.Interface,
) *WebhookRetryScheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &WebhookRetryScheduler{
		eventRepo:  eventRepo,
		ingest:     ingest,
		interval:   interval,
		maxRetries: maxRetries,
		stopCh:     make(chan struct{}),
		log:        log,
	}
}

func (s *WebhookRetryScheduler) Start() {
	goroutine.SafeGo(s.log, "webhook-retry", func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.retryBatch()
			case <-s.stopCh:
				return
			}
		}
	})
	s.log.Infow("webhook retry scheduler started",
		"interval", s.interval, "max_retries", s.maxRetries)
}

func (s *WebhookRetryScheduler) Stop() {
	close(s.stopCh)
}

func (s *WebhookRetryScheduler) retryBatch() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	events, err := s.eventRepo.ListRetryable(ctx, s.maxRetries, retryBatchSize)
	if err != nil {
		s.log.Errorw("failed to list retryable webhook events", "error", err)
		return
	}

	for _, event := range events {
		outcome := s.ingest.Retry(ctx, event)
		s.log.Infow("webhook retry attempted",
			"event_id", event.ID(),
			"provider", event.Provider(),
			"retry_count", event.RetryCount(),
			"outcome", outcome)
	}
}
