package models

import "time"

type PlanModel struct {
	ID               uint   `gorm:"primaryKey"`
	Name             string `gorm:"size:64;not null;uniqueIndex"`
	MaxChannels      int    `gorm:"not null"`
	MaxPostsPerMonth int    `gorm:"not null"`
	PriceMonthly     int64  `gorm:"not null"`
	PriceYearly      int64  `gorm:"not null"`
	Currency         string `gorm:"size:10;not null;default:'USD'"`
	IsActive         bool   `gorm:"not null;default:true;index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (PlanModel) TableName() string {
	return "plans"
}
