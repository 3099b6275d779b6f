package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
	"github.com/thematters/settlement-ledger/internal/domain/port/collaborator"
	coreport "github.com/thematters/settlement-ledger/internal/domain/port/core"
	"github.com/thematters/settlement-ledger/internal/domain/port/persistence"
	"github.com/thematters/settlement-ledger/internal/domain/port/provider"
	"github.com/thematters/settlement-ledger/internal/domain/usecase/ledger"
)

// SweepConfig tunes the stale-pending reconciliation sweep
type SweepConfig struct {
	// MaxPendingAge is how long a dispatched transaction may stay pending
	// before the sweep asks the provider for its authoritative state
	MaxPendingAge time.Duration
	// BatchLimit bounds how many rows one sweep run examines per provider
	BatchLimit int
}

// Sweep resolves transactions stuck pending past the configured age by
// querying the provider directly. It covers webhook deliveries that never
// arrived and dispatches whose response timed out.
type Sweep struct {
	ledger       *ledger.Service
	txRepo       persistence.TransactionRepository
	checkers     map[entity.TransactionProvider]provider.StatusChecker
	alerter      collaborator.Alerter
	cfg          SweepConfig
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
}

// NewSweep creates the reconciliation sweep over the given status checkers
func NewSweep(
	ledgerSvc *ledger.Service,
	txRepo persistence.TransactionRepository,
	checkers map[entity.TransactionProvider]provider.StatusChecker,
	alerter collaborator.Alerter,
	cfg SweepConfig,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
) *Sweep {
	return &Sweep{
		ledger:       ledgerSvc,
		txRepo:       txRepo,
		checkers:     checkers,
		alerter:      alerter,
		cfg:          cfg,
		timeProvider: timeProvider,
		logger:       logger,
	}
}

// Run performs one sweep pass. Per-row failures are logged and skipped; the
// pass only fails on infrastructure errors listing the candidates.
func (s *Sweep) Run(ctx context.Context) error {
	cutoff := s.timeProvider.Now().Add(-s.cfg.MaxPendingAge)

	for railProvider, checker := range s.checkers {
		stale, err := s.txRepo.ListPendingOlderThan(ctx, railProvider, cutoff, s.cfg.BatchLimit)
		if err != nil {
			return fmt.Errorf("failed to list stale pending transactions for %s: %w", railProvider, err)
		}
		if len(stale) == 0 {
			continue
		}

		s.logger.Info("Sweeping stale pending transactions", map[string]any{
			"provider": string(railProvider),
			"count":    len(stale),
		})

		var unresolved int
		for _, transaction := range stale {
			if transaction.ProviderTxID == nil {
				// Never dispatched; nothing authoritative to ask for. Left for
				// manual review rather than assumed failed.
				unresolved++
				continue
			}

			state, err := checker.CheckStatus(ctx, *transaction.ProviderTxID)
			if err != nil {
				s.logger.Warn("Status check failed, will retry next sweep", map[string]any{
					"transaction_id": transaction.ID.String(),
					"provider":       string(railProvider),
					"error":          err.Error(),
				})
				unresolved++
				continue
			}
			if state == entity.StatePending {
				unresolved++
				continue
			}

			if err := s.ledger.MarkTransactionState(ctx, transaction.ID, state, "resolved by reconciliation sweep"); err != nil {
				s.logger.Error("Failed to settle swept transaction", map[string]any{
					"transaction_id": transaction.ID.String(),
					"state":          string(state),
					"error":          err.Error(),
				})
				unresolved++
			}
		}

		if unresolved > 0 {
			if err := s.alerter.SendAlert(ctx,
				"Stale pending transactions",
				fmt.Sprintf("%d %s transactions remain pending past %s", unresolved, railProvider, s.cfg.MaxPendingAge),
				collaborator.SeverityWarning,
			); err != nil {
				s.logger.Warn("Failed to send sweep alert", map[string]any{"error": err.Error()})
			}
		}
	}

	return nil
}
