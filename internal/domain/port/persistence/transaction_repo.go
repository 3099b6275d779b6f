package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
)

// SenderTally pairs a sender with their count of matching transactions
type SenderTally struct {
	SenderID uint64
	Count    int64
}

// TransactionRepository defines essential methods to interact with ledger rows.
// The transaction table is owned exclusively by the ledger; nothing else
// writes to it.
type TransactionRepository interface {
	// Create saves a new transaction
	//
	// Possible errors:
	// - ErrDuplicateProviderTx: if a row with the same (provider, providerTxId) exists
	// - ErrDatabaseConnection: if database connection fails
	Create(ctx context.Context, transaction *entity.Transaction) error

	// GetByID retrieves a transaction by its ledger id
	//
	// Possible errors:
	// - ErrTransactionNotFound: if no row with the given id exists
	// - ErrDatabaseConnection: if database connection fails
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Transaction, error)

	// GetByProviderTxID retrieves a transaction by its external reference.
	// This is the idempotency lookup performed before ingesting any
	// provider-sourced event.
	//
	// Possible errors:
	// - ErrTransactionNotFound: if no row with the given reference exists
	// - ErrDatabaseConnection: if database connection fails
	GetByProviderTxID(ctx context.Context, provider entity.TransactionProvider, providerTxID string) (*entity.Transaction, error)

	// SetProviderTxID attaches the external reference returned by a rail to a
	// freshly dispatched pending transaction
	SetProviderTxID(ctx context.Context, id uuid.UUID, providerTxID string) error

	// MarkState applies a terminal state with a conditional update
	// (WHERE state = 'pending'). Returns true when this call performed the
	// mutation, false when the row was no longer pending. Concurrent duplicate
	// reconciliation attempts race harmlessly through this method.
	//
	// Possible errors:
	// - ErrTransactionNotFound: if no row with the given id exists
	// - ErrDatabaseConnection: if database connection fails
	MarkState(ctx context.Context, id uuid.UUID, newState entity.TransactionState, remark string, updatedAt time.Time) (bool, error)

	// SumBalance aggregates the user's succeeded transactions in one query:
	// +(amount - fee) as recipient, -amount as sender. The fee always comes
	// out of the gross amount, so a sender is debited exactly what they
	// committed. Pending and failed rows never contribute.
	SumBalance(ctx context.Context, userID uint64, currency entity.Currency) (decimal.Decimal, error)

	// CountPendingPayouts counts in-flight payout transactions for a user
	CountPendingPayouts(ctx context.Context, userID uint64) (int64, error)

	// ListPendingOlderThan returns pending transactions on the given rail
	// created before the cutoff, for the reconciliation sweep
	ListPendingOlderThan(ctx context.Context, provider entity.TransactionProvider, cutoff time.Time, limit int) ([]*entity.Transaction, error)

	// TallySucceededBySender groups succeeded transactions of a purpose by
	// sender and returns senders with at least minCount rows
	TallySucceededBySender(ctx context.Context, purpose entity.TransactionPurpose, minCount int64) ([]SenderTally, error)
}
