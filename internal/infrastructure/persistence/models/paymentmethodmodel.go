package models

import "time"

type PaymentMethodModel struct {
	ID                 uint   `gorm:"primaryKey"`
	UserID             uint   `gorm:"index;not null"`
	Provider           string `gorm:"size:20;not null"`
	ProviderCustomerID string `gorm:"size:128"`
	ProviderMethodID   string `gorm:"size:128;not null;index"`
	MethodType         string `gorm:"size:20;not null"`
	LastFour           string `gorm:"size:4"`
	Brand              string `gorm:"size:32"`
	IsDefault          bool   `gorm:"not null;default:false"`
	IsActive           bool   `gorm:"not null;default:true;index"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (PaymentMethodModel) TableName() string {
	return "payment_methods"
}
