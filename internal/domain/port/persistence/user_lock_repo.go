package persistence

import (
	"context"
	"time"
)

// UserLockRepository provides a per-user advisory lock backed by the store.
// Payout initiation serializes on it so two concurrent requests from the same
// user cannot both pass the zero-pending-payouts check.
type UserLockRepository interface {
	// AcquireLock attempts to acquire a lock on the user. The lock expires
	// after the given duration so a crashed holder cannot wedge the user.
	//
	// Possible errors:
	// - ErrUserLocked: if the user is already locked by another operation
	// - ErrDatabaseConnection: if database connection fails
	AcquireLock(ctx context.Context, userID uint64, duration time.Duration) error

	// ReleaseLock releases a previously acquired lock. Releasing an absent or
	// expired lock is a no-op.
	ReleaseLock(ctx context.Context, userID uint64) error
}
