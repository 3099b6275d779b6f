package provider

import (
	"context"

	"github.com/shopspring/decimal"
)

// CurationEvent is one confirmed curation log emitted by the vault contract
type CurationEvent struct {
	TxHash         string
	LogIndex       uint
	BlockNumber    uint64
	CuratorAddress string
	CreatorAddress string
	Amount         decimal.Decimal
	URI            string // content identifier the curation points at
}

// ChainReader exposes the two chain queries the synchronizer needs. The
// go-ethereum adapter implements it; tests substitute a scripted one.
type ChainReader interface {
	// HeadBlock returns the current chain head number
	HeadBlock(ctx context.Context) (uint64, error)

	// FilterCurationEvents fetches curation logs in the inclusive block range
	FilterCurationEvents(ctx context.Context, fromBlock, toBlock uint64) ([]CurationEvent, error)
}
