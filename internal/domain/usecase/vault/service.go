package vault

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
	errs "github.com/thematters/settlement-ledger/internal/domain/error"
	"github.com/thematters/settlement-ledger/internal/domain/port/collaborator"
	coreport "github.com/thematters/settlement-ledger/internal/domain/port/core"
	"github.com/thematters/settlement-ledger/internal/domain/port/provider"
	"github.com/thematters/settlement-ledger/internal/domain/usecase/ledger"
)

// Service moves accumulated curation-vault funds on-chain to a user's wallet.
// The withdrawal row stays pending until the chain confirms the transaction;
// the reconciliation sweep settles it through the rail's status check.
type Service struct {
	ledger       *ledger.Service
	users        collaborator.UserService
	rails        *provider.Registry
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
}

// NewService creates the vault withdrawal service
func NewService(
	ledgerSvc *ledger.Service,
	users collaborator.UserService,
	rails *provider.Registry,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
) *Service {
	return &Service{
		ledger:       ledgerSvc,
		users:        users,
		rails:        rails,
		timeProvider: timeProvider,
		logger:       logger,
	}
}

// WithdrawFromVault sends the user's claimable vault balance to their wallet.
// The vault is platform-held, so the ledger row has no sender.
func (s *Service) WithdrawFromVault(ctx context.Context, userID uint64, amount decimal.Decimal) (*entity.Transaction, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsArchived() {
		return nil, errs.ErrUserArchived
	}
	if user.WalletAddress == nil || *user.WalletAddress == "" {
		return nil, fmt.Errorf("%w: user %d has no wallet address", errs.ErrInvalidParticipants, userID)
	}

	transaction, err := s.ledger.CreateTransaction(ctx, entity.TransactionSpec{
		RecipientID: &userID,
		Purpose:     entity.PurposeCurationVaultWithdrawal,
		Provider:    entity.ProviderBlockchain,
		Currency:    entity.CurrencyUSDT,
		Amount:      amount,
		Fee:         decimal.Zero,
		Remark:      fmt.Sprintf("vault withdrawal to %s", *user.WalletAddress),
	})
	if err != nil {
		return nil, err
	}

	rail, err := s.rails.Get(entity.ProviderBlockchain)
	if err != nil {
		return nil, err
	}

	txHash, err := rail.Initiate(ctx, transaction, *user.WalletAddress)
	if err != nil {
		if provider.IsRejected(err) {
			reason := err.Error()
			if markErr := s.ledger.MarkTransactionState(ctx, transaction.ID, entity.StateFailed, reason); markErr != nil {
				s.logger.Error("Failed to mark rejected vault withdrawal", map[string]any{
					"transaction_id": transaction.ID.String(),
					"error":          markErr.Error(),
				})
			}
			return transaction, err
		}
		// Transient or unknown: the contract call may still land on chain, so
		// the row stays pending until reconciled.
		s.logger.Warn("Vault withdrawal dispatch not confirmed, left pending", map[string]any{
			"transaction_id": transaction.ID.String(),
			"error":          err.Error(),
		})
		return transaction, nil
	}

	if err := s.ledger.AttachProviderTxID(ctx, transaction.ID, txHash); err != nil {
		return nil, err
	}
	transaction.ProviderTxID = &txHash

	s.logger.Info("Vault withdrawal submitted", map[string]any{
		"transaction_id": transaction.ID.String(),
		"tx_hash":        txHash,
		"user_id":        userID,
	})
	return transaction, nil
}
