package persistence

import (
	"context"
)

// UnitOfWork coordinates writes across repositories inside one database
// transaction, e.g. archive-and-replace of payout accounts
type UnitOfWork interface {
	// Begin starts a new transaction and returns a transactional context
	Begin(ctx context.Context) (context.Context, error)

	// Commit commits the transaction in the given context
	Commit(ctx context.Context) error

	// Rollback rolls back the transaction in the given context
	Rollback(ctx context.Context) error

	// GetTransactionRepository returns a ledger repository bound to the current transaction
	GetTransactionRepository(ctx context.Context) TransactionRepository

	// GetPayoutAccountRepository returns a payout account repository bound to the current transaction
	GetPayoutAccountRepository(ctx context.Context) PayoutAccountRepository

	// GetSavepointRepository returns a savepoint repository bound to the current transaction
	GetSavepointRepository(ctx context.Context) SavepointRepository

	// GetBadgeRepository returns a badge repository bound to the current transaction
	GetBadgeRepository(ctx context.Context) BadgeRepository
}
