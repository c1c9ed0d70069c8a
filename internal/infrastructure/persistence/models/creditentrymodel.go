package models

import "time"

type CreditEntryModel struct {
	ID           uint    `gorm:"primaryKey"`
	UserID       uint    `gorm:"index;not null"`
	EntryType    string  `gorm:"size:32;not null"`
	Amount       int64   `gorm:"not null"`
	BalanceAfter int64   `gorm:"not null"`
	Reason       string  `gorm:"size:255"`
	ReferenceID  *string `gorm:"size:128;uniqueIndex"`
	CreatedAt    time.Time
}

func (CreditEntryModel) TableName() string {
	return "credit_transactions"
}
