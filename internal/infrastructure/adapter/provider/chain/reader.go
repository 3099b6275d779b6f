package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	coreport "github.com/thematters/settlement-ledger/internal/domain/port/core"
	"github.com/thematters/settlement-ledger/internal/domain/port/provider"
)

// curationABI describes the curation vault contract's Curation event
const curationABI = `[{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"curator","type":"address"},{"indexed":true,"internalType":"address","name":"creator","type":"address"},{"indexed":true,"internalType":"contract IERC20","name":"token","type":"address"},{"indexed":false,"internalType":"string","name":"uri","type":"string"},{"indexed":false,"internalType":"uint256","name":"amount","type":"uint256"}],"name":"Curation","type":"event"}]`

// tokenDecimals is the ERC-20 precision of the settlement token (USDT)
const tokenDecimals = 6

// Reader implements provider.ChainReader over a JSON-RPC endpoint
type Reader struct {
	client          *ethclient.Client
	contractAddress common.Address
	contractABI     abi.ABI
	logger          coreport.Logger
}

// NewReader connects to the RPC endpoint and prepares the event decoder
func NewReader(rpcEndpoint, contractAddress string, logger coreport.Logger) (*Reader, error) {
	client, err := ethclient.Dial(rpcEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain RPC: %w", err)
	}

	contractABI, err := abi.JSON(strings.NewReader(curationABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse curation ABI: %w", err)
	}

	return &Reader{
		client:          client,
		contractAddress: common.HexToAddress(contractAddress),
		contractABI:     contractABI,
		logger:          logger,
	}, nil
}

// Client exposes the underlying RPC client so the rail can share one
// connection
func (r *Reader) Client() *ethclient.Client {
	return r.client
}

// HeadBlock returns the current chain head number
func (r *Reader) HeadBlock(ctx context.Context) (uint64, error) {
	header, err := r.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch chain head: %w", err)
	}
	return header.Number.Uint64(), nil
}

// FilterCurationEvents fetches Curation logs in the inclusive block range and
// decodes them. Logs that do not decode are skipped with a warning rather
// than failing the whole range.
func (r *Reader) FilterCurationEvents(ctx context.Context, fromBlock, toBlock uint64) ([]provider.CurationEvent, error) {
	curationTopic := r.contractABI.Events["Curation"].ID

	query := ethereum.FilterQuery{
		Addresses: []common.Address{r.contractAddress},
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Topics:    [][]common.Hash{{curationTopic}},
	}

	logs, err := r.client.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to filter curation logs: %w", err)
	}

	events := make([]provider.CurationEvent, 0, len(logs))
	for _, vLog := range logs {
		if len(vLog.Topics) != 4 {
			r.logger.Warn("Unexpected topic count on curation log", map[string]any{
				"tx_hash": vLog.TxHash.Hex(),
				"topics":  len(vLog.Topics),
			})
			continue
		}

		decoded := struct {
			URI    string
			Amount *big.Int
		}{}
		if err := r.contractABI.UnpackIntoInterface(&decoded, "Curation", vLog.Data); err != nil {
			r.logger.Warn("Failed to decode curation log", map[string]any{
				"tx_hash": vLog.TxHash.Hex(),
				"error":   err.Error(),
			})
			continue
		}

		events = append(events, provider.CurationEvent{
			TxHash:         vLog.TxHash.Hex(),
			LogIndex:       vLog.Index,
			BlockNumber:    vLog.BlockNumber,
			CuratorAddress: common.HexToAddress(vLog.Topics[1].Hex()).Hex(),
			CreatorAddress: common.HexToAddress(vLog.Topics[2].Hex()).Hex(),
			Amount:         decimal.NewFromBigInt(decoded.Amount, -tokenDecimals),
			URI:            decoded.URI,
		})
	}

	return events, nil
}
