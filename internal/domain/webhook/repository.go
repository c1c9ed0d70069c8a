package webhook

import "context"

// EventRepository is the persistence port for the webhook audit trail.
type EventRepository interface {
	Create(ctx context.Context, e *Event) error
	Update(ctx context.Context, e *Event) error
	GetByProviderEventID(ctx context.Context, provider, providerEventID string) (*Event, error)
	// ListRetryable returns verified-but-failed events below the retry cap,
	// oldest first.
	ListRetryable(ctx context.Context, maxRetries, limit int) ([]*Event, error)
}
