package models

import (
	"time"

	"gorm.io/datatypes"
)

type SubscriptionModel struct {
	ID                     uint   `gorm:"primaryKey"`
	UserID                 uint   `gorm:"index;not null"`
	PlanID                 uint   `gorm:"not null"`
	PaymentMethodID        uint   `gorm:"not null"`
	Provider               string `gorm:"size:20;not null"`
	ProviderSubscriptionID string `gorm:"size:128;index"`
	Status                 string `gorm:"size:20;not null;index"`
	BillingCycle           string `gorm:"size:10;not null"`
	Amount                 int64  `gorm:"not null"`
	Currency               string `gorm:"size:10;not null;default:'USD'"`

	// ActiveMarker carries the user id while the subscription is live and is
	// NULL otherwise. The unique index on it enforces one live subscription
	// per user at the database level (no partial indexes on MySQL).
	ActiveMarker *uint `gorm:"uniqueIndex"`

	CurrentPeriodStart time.Time `gorm:"not null"`
	CurrentPeriodEnd   time.Time `gorm:"not null"`
	TrialEndsAt        *time.Time
	CancelAtPeriodEnd  bool `gorm:"not null;default:false"`
	CanceledAt         *time.Time
	CancelReason       *string `gorm:"size:128"`

	Metadata datatypes.JSON `gorm:"type:json"`
	Version  int            `gorm:"default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SubscriptionModel) TableName() string {
	return "subscriptions"
}
