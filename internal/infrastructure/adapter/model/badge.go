package model

import (
	"time"
)

// Badge represents the database model for non-monetary reward grants
type Badge struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserID    uint64    `gorm:"not null;uniqueIndex:idx_badge_user_type"`
	Type      string    `gorm:"not null;size:50;uniqueIndex:idx_badge_user_type"`
	Level     int       `gorm:"not null;default:1"`
	Enabled   bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName specifies the table name for Badge
func (Badge) TableName() string {
	return "badges"
}
