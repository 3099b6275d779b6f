package chainsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
	errs "github.com/thematters/settlement-ledger/internal/domain/error"
	"github.com/thematters/settlement-ledger/internal/domain/port/collaborator"
	coreport "github.com/thematters/settlement-ledger/internal/domain/port/core"
	"github.com/thematters/settlement-ledger/internal/domain/port/persistence"
	"github.com/thematters/settlement-ledger/internal/domain/port/provider"
	"github.com/thematters/settlement-ledger/internal/domain/usecase/ledger"
)

// Config tunes the per-chain synchronizer
type Config struct {
	Chain entity.Chain
	// ConfirmationDepth is how many blocks behind head the synchronizer
	// stays, so a reorganization cannot invalidate ingested events
	ConfirmationDepth uint64
	// BatchSize bounds the block span of one log filter call
	BatchSize uint64
	// InitialBlock seeds the savepoint on first run, typically the contract's
	// deployment block
	InitialBlock uint64
	// AlertAfterFailures raises an operator alert once this many consecutive
	// runs have failed
	AlertAfterFailures int
}

// Synchronizer materializes confirmed on-chain curation events into succeeded
// ledger transactions, driven by a persisted per-chain savepoint. It is
// crash-safe: the savepoint only advances after a whole batch is durable, and
// re-running a batch is harmless because every event's deterministic
// providerTxId deduplicates on ingestion.
//
// Exactly one synchronizer instance may run per chain; that guarantee comes
// from the scheduler, not from in-process locking.
type Synchronizer struct {
	ledger       *ledger.Service
	savepoints   persistence.SavepointRepository
	reader       provider.ChainReader
	users        collaborator.UserService
	alerter      collaborator.Alerter
	cfg          Config
	timeProvider coreport.TimeProvider
	logger       coreport.Logger

	consecutiveFailures int
}

// NewSynchronizer creates a synchronizer for one chain
func NewSynchronizer(
	ledgerSvc *ledger.Service,
	savepoints persistence.SavepointRepository,
	reader provider.ChainReader,
	users collaborator.UserService,
	alerter collaborator.Alerter,
	cfg Config,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
) *Synchronizer {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 2000
	}
	if cfg.AlertAfterFailures == 0 {
		cfg.AlertAfterFailures = 3
	}
	return &Synchronizer{
		ledger:       ledgerSvc,
		savepoints:   savepoints,
		reader:       reader,
		users:        users,
		alerter:      alerter,
		cfg:          cfg,
		timeProvider: timeProvider,
		logger:       logger,
	}
}

// Sync processes every confirmed block since the savepoint. A failure leaves
// the savepoint at the last fully persisted batch; the next run re-fetches
// the same range and idempotency skips what already landed.
func (s *Synchronizer) Sync(ctx context.Context) error {
	err := s.sync(ctx)
	if err != nil {
		s.consecutiveFailures++
		s.logger.Error("Chain sync failed", map[string]any{
			"chain":                string(s.cfg.Chain),
			"consecutive_failures": s.consecutiveFailures,
			"error":                err.Error(),
		})
		if s.consecutiveFailures >= s.cfg.AlertAfterFailures {
			if alertErr := s.alerter.SendAlert(ctx,
				"Blockchain sync failing",
				fmt.Sprintf("chain %s has failed %d consecutive runs: %v", s.cfg.Chain, s.consecutiveFailures, err),
				collaborator.SeverityCritical,
			); alertErr != nil {
				s.logger.Warn("Failed to send chain sync alert", map[string]any{"error": alertErr.Error()})
			}
		}
		return err
	}
	s.consecutiveFailures = 0
	return nil
}

func (s *Synchronizer) sync(ctx context.Context) error {
	savepoint, err := s.savepoints.GetOrCreate(ctx, s.cfg.Chain, s.cfg.InitialBlock)
	if err != nil {
		return fmt.Errorf("failed to load savepoint: %w", err)
	}

	head, err := s.reader.HeadBlock(ctx)
	if err != nil {
		return fmt.Errorf("failed to read chain head: %w", err)
	}
	if head <= s.cfg.ConfirmationDepth {
		return nil
	}
	safeHead := head - s.cfg.ConfirmationDepth
	if safeHead <= savepoint.LastProcessedBlock {
		return nil
	}

	s.logger.Info("Chain sync starting", map[string]any{
		"chain":      string(s.cfg.Chain),
		"from_block": savepoint.LastProcessedBlock + 1,
		"to_block":   safeHead,
	})

	from := savepoint.LastProcessedBlock + 1
	for from <= safeHead {
		to := from + s.cfg.BatchSize - 1
		if to > safeHead {
			to = safeHead
		}

		events, err := s.reader.FilterCurationEvents(ctx, from, to)
		if err != nil {
			return fmt.Errorf("failed to filter logs in [%d, %d]: %w", from, to, err)
		}

		for _, event := range events {
			if err := s.ingest(ctx, event); err != nil {
				// Leave the savepoint where it is; the next run re-fetches
				// this range and skips the events that already landed.
				return fmt.Errorf("failed to ingest event %s-%d: %w", event.TxHash, event.LogIndex, err)
			}
		}

		if err := s.savepoints.Advance(ctx, s.cfg.Chain, to); err != nil {
			return fmt.Errorf("failed to advance savepoint to %d: %w", to, err)
		}

		s.logger.Debug("Chain sync batch persisted", map[string]any{
			"chain":      string(s.cfg.Chain),
			"from_block": from,
			"to_block":   to,
			"events":     len(events),
		})
		from = to + 1
	}

	return nil
}

// ingest turns one confirmed curation event into a succeeded donation row.
// On-chain events are final once confirmed, so there is no pending phase.
// Addresses without a platform mapping are skipped with a warning; external
// wallets legitimately curate content.
func (s *Synchronizer) ingest(ctx context.Context, event provider.CurationEvent) error {
	providerTxID := fmt.Sprintf("%s-%d", event.TxHash, event.LogIndex)

	if _, err := s.ledger.FindByProviderTxID(ctx, entity.ProviderBlockchain, providerTxID); err == nil {
		return nil
	} else if !errors.Is(err, errs.ErrTransactionNotFound) {
		return err
	}

	curator, err := s.resolveAddress(ctx, event.CuratorAddress)
	if err != nil {
		return err
	}
	creator, err := s.resolveAddress(ctx, event.CreatorAddress)
	if err != nil {
		return err
	}
	if curator == nil || creator == nil {
		s.logger.Warn("Curation event with unmapped address, skipped", map[string]any{
			"chain":           string(s.cfg.Chain),
			"provider_tx_id":  providerTxID,
			"curator_address": event.CuratorAddress,
			"creator_address": event.CreatorAddress,
		})
		return nil
	}

	_, err = s.ledger.CreateTransaction(ctx, entity.TransactionSpec{
		ProviderTxID: &providerTxID,
		SenderID:     &curator.ID,
		RecipientID:  &creator.ID,
		Purpose:      entity.PurposeDonation,
		Provider:     entity.ProviderBlockchain,
		Currency:     entity.CurrencyUSDT,
		Amount:       event.Amount,
		Fee:          decimal.Zero,
		State:        entity.StateSucceeded,
		Remark:       fmt.Sprintf("curation of %s at block %d", event.URI, event.BlockNumber),
	})
	return err
}

// resolveAddress maps a wallet address to a platform user; (nil, nil) means
// no mapping exists
func (s *Synchronizer) resolveAddress(ctx context.Context, address string) (*collaborator.User, error) {
	user, err := s.users.GetUserByWalletAddress(ctx, address)
	if err != nil {
		if errors.Is(err, errs.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}
