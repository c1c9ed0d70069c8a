package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

type PaymentModel struct {
	ID             uint    `gorm:"primaryKey"`
	OrderNo        string  `gorm:"uniqueIndex;size:64;not null"`
	UserID         uint    `gorm:"index;not null"`
	SubscriptionID *uint   `gorm:"index"`
	MethodID       uint    `gorm:"not null"`
	Provider       string  `gorm:"size:20;not null;index"`
	IdempotencyKey string  `gorm:"uniqueIndex;size:128;not null"`
	Amount         int64   `gorm:"not null"`
	Currency       string  `gorm:"size:10;not null;default:'USD'"`
	Description    string  `gorm:"size:255"`
	Status         string  `gorm:"size:20;not null;index"`

	ProviderPaymentID *string `gorm:"size:128;index"`
	FailureCode       *string `gorm:"size:64"`
	FailureMessage    *string `gorm:"size:255"`

	RefundID   *string `gorm:"size:128"`
	RefundedAt *time.Time
	PaidAt     *time.Time

	Metadata JSONB `gorm:"type:json"`
	Version  int   `gorm:"default:0"`

	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (PaymentModel) TableName() string {
	return "payments"
}

type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return nil
		}
	}

	return json.Unmarshal(bytes, j)
}
