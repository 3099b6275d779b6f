package model

import (
	"time"
)

// Savepoint represents the database model for per-chain sync cursors
type Savepoint struct {
	Chain              string    `gorm:"primaryKey;size:50"`
	LastProcessedBlock uint64    `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`
}

// TableName specifies the table name for Savepoint
func (Savepoint) TableName() string {
	return "blockchain_savepoints"
}
