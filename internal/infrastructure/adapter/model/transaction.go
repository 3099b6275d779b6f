package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction represents the database model for ledger rows. Append-mostly:
// after insert only state, remark and updated_at change.
type Transaction struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	// the partial unique index on (provider, provider_tx_id) is created in
	// migration; GORM tags cannot express the WHERE clause
	ProviderTxID *string `gorm:"size:255"`
	Provider     string  `gorm:"not null;size:50"`
	SenderID     *uint64         `gorm:"index"`
	RecipientID  *uint64         `gorm:"index"`
	Purpose      string          `gorm:"not null;size:50"`
	Currency     string          `gorm:"not null;size:10"`
	Amount       decimal.Decimal `gorm:"type:decimal(36,18);not null"`
	Fee          decimal.Decimal `gorm:"type:decimal(36,18);not null"`
	TargetID     *uint64
	TargetType   *string   `gorm:"size:50"`
	State        string    `gorm:"not null;size:20;index"`
	Remark       string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName specifies the table name for Transaction
func (Transaction) TableName() string {
	return "transactions"
}
