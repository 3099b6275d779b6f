package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
	coreport "github.com/thematters/settlement-ledger/internal/domain/port/core"
	"github.com/thematters/settlement-ledger/internal/domain/port/provider"
)

// vaultABI describes the claim function of the curation vault contract
const vaultABI = `[{"inputs":[{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"claim","outputs":[],"stateMutability":"nonpayable","type":"function"}]`

// Rail dispatches on-chain vault withdrawals and checks their receipts. It
// implements PaymentRail and StatusChecker for the blockchain provider.
type Rail struct {
	client        *ethclient.Client
	vaultAddress  common.Address
	vaultABI      abi.ABI
	signerKey     *ecdsa.PrivateKey
	signerAddress common.Address
	chainID       *big.Int
	logger        coreport.Logger
}

// NewRail prepares the vault claim dispatcher. The signer key belongs to the
// platform hot wallet that is authorized to claim on behalf of users.
func NewRail(client *ethclient.Client, vaultAddress, signerKeyHex string, chainID int64, logger coreport.Logger) (*Rail, error) {
	parsedABI, err := abi.JSON(strings.NewReader(vaultABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse vault ABI: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(signerKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid signer key: %w", err)
	}

	return &Rail{
		client:        client,
		vaultAddress:  common.HexToAddress(vaultAddress),
		vaultABI:      parsedABI,
		signerKey:     key,
		signerAddress: crypto.PubkeyToAddress(key.PublicKey),
		chainID:       big.NewInt(chainID),
		logger:        logger,
	}, nil
}

// Initiate submits a vault claim transaction to the destination wallet and
// returns its hash. The transaction stays pending in the ledger until the
// receipt confirms it.
func (r *Rail) Initiate(ctx context.Context, transaction *entity.Transaction, destination string) (string, error) {
	if !common.IsHexAddress(destination) {
		return "", provider.NewRejected(entity.ProviderBlockchain, "missing_destination", "destination is not a valid address")
	}
	to := common.HexToAddress(destination)

	// decimal amount back to token units
	rawAmount := transaction.NetAmount().Shift(tokenDecimals).BigInt()

	callData, err := r.vaultABI.Pack("claim", to, rawAmount)
	if err != nil {
		return "", provider.NewRejected(entity.ProviderBlockchain, "encode_failed", err.Error())
	}

	nonce, err := r.client.PendingNonceAt(ctx, r.signerAddress)
	if err != nil {
		return "", provider.NewTransient(entity.ProviderBlockchain, "failed to fetch nonce", err)
	}
	gasPrice, err := r.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", provider.NewTransient(entity.ProviderBlockchain, "failed to fetch gas price", err)
	}

	tx := types.NewTransaction(nonce, r.vaultAddress, big.NewInt(0), 200000, gasPrice, callData)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(r.chainID), r.signerKey)
	if err != nil {
		return "", provider.NewRejected(entity.ProviderBlockchain, "sign_failed", err.Error())
	}

	if err := r.client.SendTransaction(ctx, signedTx); err != nil {
		// the node may have accepted the transaction before the error, so
		// this is never safe to treat as rejected
		return "", provider.NewTransient(entity.ProviderBlockchain, "failed to send transaction", err)
	}

	txHash := signedTx.Hash().Hex()
	r.logger.Info("Vault claim submitted", map[string]any{
		"transaction_id": transaction.ID.String(),
		"tx_hash":        txHash,
	})
	return txHash, nil
}

// Cancel always rejects; a broadcast chain transaction cannot be recalled
func (r *Rail) Cancel(ctx context.Context, providerRef string) error {
	return provider.NewRejected(entity.ProviderBlockchain, "not_cancelable", "chain transactions cannot be canceled")
}

// CheckStatus looks up the transaction receipt. A missing receipt means the
// transaction is still in the mempool or was dropped; it stays pending.
func (r *Rail) CheckStatus(ctx context.Context, providerRef string) (entity.TransactionState, error) {
	receipt, err := r.client.TransactionReceipt(ctx, common.HexToHash(providerRef))
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return entity.StatePending, nil
		}
		return "", provider.NewTransient(entity.ProviderBlockchain, "failed to fetch receipt", err)
	}

	if receipt.Status == types.ReceiptStatusSuccessful {
		return entity.StateSucceeded, nil
	}
	return entity.StateFailed, nil
}
