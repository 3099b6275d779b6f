package migration

import (
	"fmt"

	"gorm.io/gorm"

	coreport "github.com/thematters/settlement-ledger/internal/domain/port/core"
	"github.com/thematters/settlement-ledger/internal/infrastructure/adapter/model"
)

// Manager handles database schema migrations
type Manager struct {
	db     *gorm.DB
	logger coreport.Logger
}

// NewManager creates a new migration manager
func NewManager(db *gorm.DB, logger coreport.Logger) *Manager {
	return &Manager{db: db, logger: logger}
}

// Run applies the schema: auto-migrated tables plus the partial indexes
// GORM tags cannot fully express
func (m *Manager) Run() error {
	m.logger.Info("Running database migrations", nil)

	err := m.db.AutoMigrate(
		&model.Transaction{},
		&model.PayoutAccount{},
		&model.Savepoint{},
		&model.Badge{},
		&model.UserLock{},
	)
	if err != nil {
		m.logger.Error("Auto migration failed", map[string]any{"error": err.Error()})
		return fmt.Errorf("auto migration failed: %w", err)
	}

	if err := m.createPartialIndexes(); err != nil {
		return err
	}

	m.logger.Info("Database migrations completed", nil)
	return nil
}

// createPartialIndexes creates PostgreSQL partial unique indexes. These back
// the hard invariants: one ledger row per external reference and one active
// payout account per user and provider.
func (m *Manager) createPartialIndexes() error {
	statements := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_provider_tx
			ON transactions (provider, provider_tx_id)
			WHERE provider_tx_id IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_payout_accounts_active
			ON payout_accounts (user_id, provider)
			WHERE NOT archived`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_pending_sweep
			ON transactions (provider, created_at)
			WHERE state = 'pending'`,
	}

	for _, stmt := range statements {
		if err := m.db.Exec(stmt).Error; err != nil {
			m.logger.Error("Failed to create index", map[string]any{"error": err.Error()})
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
