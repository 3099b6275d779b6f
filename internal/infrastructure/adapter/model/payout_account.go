package model

import (
	"time"
)

// PayoutAccount represents the database model for linked payout destinations.
// A partial unique index (created in migration) enforces at most one
// non-archived row per user and provider.
type PayoutAccount struct {
	ID                    uint64    `gorm:"primaryKey;autoIncrement"`
	UserID                uint64    `gorm:"not null;index"`
	AccountID             string    `gorm:"uniqueIndex;not null;size:255"`
	Provider              string    `gorm:"not null;size:50"`
	Country               string    `gorm:"not null;size:2"`
	Currency              string    `gorm:"not null;size:10"`
	Type                  string    `gorm:"not null;size:20"`
	CapabilitiesTransfers bool      `gorm:"not null;default:false"`
	Archived              bool      `gorm:"not null;default:false"`
	CreatedAt             time.Time `gorm:"not null"`
	UpdatedAt             time.Time `gorm:"not null"`
}

// TableName specifies the table name for PayoutAccount
func (PayoutAccount) TableName() string {
	return "payout_accounts"
}
