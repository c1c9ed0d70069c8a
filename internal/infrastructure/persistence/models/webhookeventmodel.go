package models

import "time"

type WebhookEventModel struct {
	ID              uint   `gorm:"primaryKey"`
	Provider        string `gorm:"size:20;not null;uniqueIndex:idx_provider_event"`
	EventType       string `gorm:"size:64"`
	ProviderEventID string `gorm:"size:160;not null;uniqueIndex:idx_provider_event"`
	ObjectID        string `gorm:"size:128;index"`
	// Payload is the raw body as received; wallet and two-phase callbacks
	// are not JSON, so this stays an opaque blob.
	Payload      []byte  `gorm:"type:blob"`
	Signature    string  `gorm:"size:512"`
	Processed    bool    `gorm:"not null;default:false;index"`
	ProcessError *string `gorm:"size:512"`
	RetryCount   int     `gorm:"not null;default:0"`
	ReceivedAt   time.Time
	ProcessedAt  *time.Time
	UpdatedAt    time.Time
}

func (WebhookEventModel) TableName() string {
	return "webhook_events"
}
