package model

import (
	"time"
)

// UserLock represents a per-user advisory lock guarding payout initiation
type UserLock struct {
	UserID    uint64    `gorm:"primaryKey;not null"`
	LockedAt  time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName specifies the table name for UserLock
func (UserLock) TableName() string {
	return "user_locks"
}
