package persistence

import (
	"context"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
)

// SavepointRepository persists the per-chain sync cursor. Owned exclusively
// by the blockchain event synchronizer.
type SavepointRepository interface {
	// GetOrCreate returns the savepoint for the chain, creating it at
	// initialBlock on first use
	GetOrCreate(ctx context.Context, chain entity.Chain, initialBlock uint64) (*entity.Savepoint, error)

	// Advance moves the cursor forward with a conditional update that refuses
	// regression (WHERE last_processed_block <= block)
	//
	// Possible errors:
	// - ErrSavepointRegression: if the stored cursor is already past block
	// - ErrDatabaseConnection: if database connection fails
	Advance(ctx context.Context, chain entity.Chain, block uint64) error
}
