package webhook

import (
	"fmt"
	"time"

	paymentVO "github.com/postline-io/postline/internal/domain/payment/valueobjects"
	"github.com/postline-io/postline/internal/shared/biztime"
)

// Event is the raw audit record of a provider notification. Every inbound
// callback is stored before verification, including ones that later fail the
// signature check; only verified events ever mutate billing state.
type Event struct {
	id              uint
	provider        paymentVO.Provider
	eventType       string
	providerEventID string
	objectID        string
	payload         []byte
	signature       string
	processed       bool
	processError    *string
	retryCount      int
	receivedAt      time.Time
	processedAt     *time.Time
	updatedAt       time.Time
}

func NewEvent(provider paymentVO.Provider, eventType, providerEventID, objectID string, payload []byte, signature string) (*Event, error) {
	if !provider.IsValid() {
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
	if providerEventID == "" {
		return nil, fmt.Errorf("provider event ID is required")
	}

	now := biztime.NowUTC()
	return &Event{
		provider:        provider,
		eventType:       eventType,
		providerEventID: providerEventID,
		objectID:        objectID,
		payload:         payload,
		signature:       signature,
		receivedAt:      now,
		updatedAt:       now,
	}, nil
}

// MarkProcessed finalizes the event. Already processed events are replayed as
// no-ops upstream, so marking twice is harmless.
func (e *Event) MarkProcessed() {
	now := biztime.NowUTC()
	e.processed = true
	e.processError = nil
	e.processedAt = &now
	e.updatedAt = now
}

// MarkFailed records a processing failure and bumps the retry counter.
// The event stays unprocessed so the retry worker can pick it up.
func (e *Event) MarkFailed(reason string) {
	e.processError = &reason
	e.retryCount++
	e.updatedAt = biztime.NowUTC()
}

// MarkRejected records a signature verification failure. Rejected events are
// never retried: the stored row is the audit trail.
func (e *Event) MarkRejected(reason string) {
	e.processError = &reason
	e.updatedAt = biztime.NowUTC()
}

// SetID sets the event ID after persistence (used by repository after Create)
func (e *Event) SetID(id uint) {
	e.id = id
}

func (e *Event) ID() uint                      { return e.id }
func (e *Event) Provider() paymentVO.Provider  { return e.provider }
func (e *Event) EventType() string             { return e.eventType }
func (e *Event) ProviderEventID() string       { return e.providerEventID }
func (e *Event) ObjectID() string              { return e.objectID }
func (e *Event) Payload() []byte               { return e.payload }
func (e *Event) Signature() string             { return e.signature }
func (e *Event) Processed() bool               { return e.processed }
func (e *Event) ProcessError() *string         { return e.processError }
func (e *Event) RetryCount() int               { return e.retryCount }
func (e *Event) ReceivedAt() time.Time         { return e.receivedAt }
func (e *Event) ProcessedAt() *time.Time       { return e.processedAt }
func (e *Event) UpdatedAt() time.Time          { return e.updatedAt }

func ReconstructEvent(
	id uint,
	provider paymentVO.Provider,
	eventType, providerEventID, objectID string,
	payload []byte,
	signature string,
	processed bool,
	processError *string,
	retryCount int,
	receivedAt time.Time,
	processedAt *time.Time,
	updatedAt time.Time,
) *Event {
	return &Event{
		id:              id,
		provider:        provider,
		eventType:       eventType,
		providerEventID: providerEventID,
		objectID:        objectID,
		payload:         payload,
		signature:       signature,
		processed:       processed,
		processError:    processError,
		retryCount:      retryCount,
		receivedAt:      receivedAt,
		processedAt:     processedAt,
		updatedAt:       updatedAt,
	}
}
