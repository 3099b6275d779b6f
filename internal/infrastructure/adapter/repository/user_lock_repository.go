package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	errs "github.com/thematters/settlement-ledger/internal/domain/error"
	coreport "github.com/thematters/settlement-ledger/internal/domain/port/core"
	"github.com/thematters/settlement-ledger/internal/infrastructure/adapter/model"
)

// UserLockRepository implements persistence.UserLockRepository using a
// database table with expiring rows. The expiry keeps a crashed lock holder
// from wedging the user forever.
type UserLockRepository struct {
	db           *gorm.DB
	logger       coreport.Logger
	timeProvider coreport.TimeProvider
}

// NewUserLockRepository creates a new UserLockRepository instance
func NewUserLockRepository(db *gorm.DB, logger coreport.Logger, timeProvider coreport.TimeProvider) *UserLockRepository {
	return &UserLockRepository{
		db:           db,
		logger:       logger,
		timeProvider: timeProvider,
	}
}

// AcquireLock attempts to acquire a lock on the user. A single upsert either
// inserts a fresh lock or takes over an expired one; a live lock leaves zero
// rows affected.
func (r *UserLockRepository) AcquireLock(ctx context.Context, userID uint64, duration time.Duration) error {
	now := r.timeProvider.Now()
	expiresAt := now.Add(duration)

	result := r.db.WithContext(ctx).Exec(`
		INSERT INTO user_locks (user_id, locked_at, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE
		SET locked_at = EXCLUDED.locked_at,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = EXCLUDED.updated_at
		WHERE user_locks.expires_at <= ?`,
		userID, now, expiresAt, now, now, now,
	)
	if result.Error != nil {
		return fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	if result.RowsAffected == 0 {
		r.logger.Warn("User lock contention", map[string]any{"user_id": userID})
		return errs.ErrUserLocked
	}
	return nil
}

// ReleaseLock releases a previously acquired lock. Releasing an absent or
// expired lock is a no-op.
func (r *UserLockRepository) ReleaseLock(ctx context.Context, userID uint64) error {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.UserLock{})
	if result.Error != nil {
		return fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	return nil
}
