package entity

import (
	"fmt"
	"time"

	errs "github.com/thematters/settlement-ledger/internal/domain/error"
)

// Chain identifies a blockchain the synchronizer follows
type Chain string

// Supported chains
const (
	ChainPolygon  Chain = "polygon"
	ChainOptimism Chain = "optimism"
)

// Savepoint is the per-chain resumable cursor of the blockchain event
// synchronizer. It advances only after every event up to and including
// LastProcessedBlock has been durably turned into a transaction, and it
// never moves backwards.
type Savepoint struct {
	Chain              Chain
	LastProcessedBlock uint64
	UpdatedAt          time.Time
}

// AdvanceTo validates a cursor move. A regression means a bug or a concurrent
// synchronizer for the same chain, both of which must surface loudly.
func (s *Savepoint) AdvanceTo(block uint64) error {
	if block < s.LastProcessedBlock {
		return fmt.Errorf("%w: at %d, attempted %d", errs.ErrSavepointRegression, s.LastProcessedBlock, block)
	}
	s.LastProcessedBlock = block
	return nil
}
