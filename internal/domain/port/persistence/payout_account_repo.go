package persistence

import (
	"context"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
)

// PayoutAccountRepository manages a user's linked external payout destinations
type PayoutAccountRepository interface {
	// Create inserts a new payout account row
	//
	// Possible errors:
	// - ErrConstraintViolation: if a non-archived row already exists for the user/provider
	// - ErrDatabaseConnection: if database connection fails
	Create(ctx context.Context, account *entity.PayoutAccount) error

	// GetActiveByUser returns the single non-archived account for the
	// user/provider pair
	//
	// Possible errors:
	// - ErrPayoutAccountNotFound: if no active account exists
	// - ErrDatabaseConnection: if database connection fails
	GetActiveByUser(ctx context.Context, userID uint64, provider entity.TransactionProvider) (*entity.PayoutAccount, error)

	// GetByAccountID returns the account with the provider-assigned id
	//
	// Possible errors:
	// - ErrPayoutAccountNotFound: if no such account exists
	// - ErrDatabaseConnection: if database connection fails
	GetByAccountID(ctx context.Context, accountID string) (*entity.PayoutAccount, error)

	// MarkCapable flips capabilitiesTransfers on. Idempotent: repeated webhook
	// deliveries for the same account are no-ops.
	MarkCapable(ctx context.Context, accountID string) error

	// ArchiveAllForUser archives every non-archived account for the
	// user/provider pair. Combined with Create inside one unit of work this
	// implements atomic replace.
	ArchiveAllForUser(ctx context.Context, userID uint64, provider entity.TransactionProvider) error
}
