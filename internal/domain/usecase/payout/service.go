package payout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
	errs "github.com/thematters/settlement-ledger/internal/domain/error"
	"github.com/thematters/settlement-ledger/internal/domain/port/collaborator"
	coreport "github.com/thematters/settlement-ledger/internal/domain/port/core"
	"github.com/thematters/settlement-ledger/internal/domain/port/persistence"
	"github.com/thematters/settlement-ledger/internal/domain/port/provider"
	"github.com/thematters/settlement-ledger/internal/domain/usecase/ledger"
)

// Config tunes payout behavior
type Config struct {
	// MinimumAmount is the smallest balance that may be paid out or used to
	// connect a payout account
	MinimumAmount decimal.Decimal
	// FeePercent is the payout fee as a fraction of the amount, e.g. 0.02
	FeePercent decimal.Decimal
	// Currency payouts are denominated in
	Currency entity.Currency
	// LockTimeout bounds how long the per-user payout lock is held
	LockTimeout time.Duration
}

// Service manages payout account lifecycle and payout initiation. Payout
// initiation serializes per user through the lock repository so concurrent
// requests cannot both pass the zero-pending check.
type Service struct {
	ledger       *ledger.Service
	accounts     persistence.PayoutAccountRepository
	uow          persistence.UnitOfWork
	locks        persistence.UserLockRepository
	users        collaborator.UserService
	alerter      collaborator.Alerter
	rails        *provider.Registry
	onboarder    provider.PayoutOnboarder
	cfg          Config
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
}

// NewService creates the payout service
func NewService(
	ledgerSvc *ledger.Service,
	accounts persistence.PayoutAccountRepository,
	uow persistence.UnitOfWork,
	locks persistence.UserLockRepository,
	users collaborator.UserService,
	alerter collaborator.Alerter,
	rails *provider.Registry,
	onboarder provider.PayoutOnboarder,
	cfg Config,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
) *Service {
	return &Service{
		ledger:       ledgerSvc,
		accounts:     accounts,
		uow:          uow,
		locks:        locks,
		users:        users,
		alerter:      alerter,
		rails:        rails,
		onboarder:    onboarder,
		cfg:          cfg,
		timeProvider: timeProvider,
		logger:       logger,
	}
}

// ConnectResult is the outcome of onboarding a payout destination
type ConnectResult struct {
	Account       *entity.PayoutAccount
	OnboardingURL string
}

// ConnectAccount onboards a user onto the processor as a payout destination.
// Rejected when an active transfer-capable account already exists or the
// user's balance is below the configured minimum. The new account starts with
// transfers disabled until the processor's webhook confirms capability.
func (s *Service) ConnectAccount(ctx context.Context, userID uint64, country string) (*ConnectResult, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsArchived() {
		return nil, errs.ErrUserArchived
	}

	existing, err := s.accounts.GetActiveByUser(ctx, userID, entity.ProviderProcessor)
	if err == nil && existing.CapabilitiesTransfers {
		return nil, errs.ErrPayoutAccountExists
	}
	if err != nil && !errors.Is(err, errs.ErrPayoutAccountNotFound) {
		return nil, err
	}

	balance, err := s.ledger.CalculateBalance(ctx, userID, s.cfg.Currency)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(s.cfg.MinimumAmount) {
		return nil, errs.NewInsufficientBalanceError(
			userID, string(s.cfg.Currency),
			s.cfg.MinimumAmount.String(), balance.String(),
		)
	}

	destination, err := s.onboarder.CreatePayoutDestination(ctx, userID, country)
	if err != nil {
		return nil, fmt.Errorf("failed to create payout destination: %w", err)
	}

	account, err := entity.NewPayoutAccount(
		userID, destination.AccountID, entity.ProviderProcessor,
		country, s.cfg.Currency, entity.PayoutAccountExpress, s.timeProvider,
	)
	if err != nil {
		return nil, err
	}

	if err := s.archiveAndReplace(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("Payout account connected", map[string]any{
		"user_id":    userID,
		"account_id": destination.AccountID,
		"country":    country,
	})

	return &ConnectResult{Account: account, OnboardingURL: destination.OnboardingURL}, nil
}

// MarkCapable flips transfers on for an onboarded account. Driven by the
// processor's account webhook; idempotent under redelivery.
func (s *Service) MarkCapable(ctx context.Context, accountID string) error {
	if err := s.accounts.MarkCapable(ctx, accountID); err != nil {
		return err
	}
	s.logger.Info("Payout account transfer-capable", map[string]any{
		"account_id": accountID,
	})
	return nil
}

// ArchiveAndReplace archives the user's prior account and inserts the new one
// in one atomic unit, preserving the single-active-account invariant
func (s *Service) ArchiveAndReplace(ctx context.Context, account *entity.PayoutAccount) error {
	return s.archiveAndReplace(ctx, account)
}

func (s *Service) archiveAndReplace(ctx context.Context, account *entity.PayoutAccount) error {
	txCtx, err := s.uow.Begin(ctx)
	if err != nil {
		return err
	}

	repo := s.uow.GetPayoutAccountRepository(txCtx)
	if err := repo.ArchiveAllForUser(txCtx, account.UserID, account.Provider); err != nil {
		_ = s.uow.Rollback(txCtx)
		return err
	}
	if err := repo.Create(txCtx, account); err != nil {
		_ = s.uow.Rollback(txCtx)
		return err
	}

	return s.uow.Commit(txCtx)
}

// InitiatePayout moves user balance to their connected external destination.
// The pending row is created only after the per-user lock is held, the
// balance re-checked and the zero-pending-payouts invariant confirmed; the
// row then stays pending until the processor's webhook settles it.
func (s *Service) InitiatePayout(ctx context.Context, userID uint64, amount decimal.Decimal) (*entity.Transaction, error) {
	if amount.LessThan(s.cfg.MinimumAmount) {
		return nil, fmt.Errorf("%w: minimum payout is %s %s",
			errs.ErrInvalidAmount, s.cfg.MinimumAmount, s.cfg.Currency)
	}

	if err := s.locks.AcquireLock(ctx, userID, s.cfg.LockTimeout); err != nil {
		return nil, err
	}
	defer func() {
		if err := s.locks.ReleaseLock(ctx, userID); err != nil {
			s.logger.Warn("Failed to release payout lock", map[string]any{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
	}()

	account, err := s.accounts.GetActiveByUser(ctx, userID, entity.ProviderProcessor)
	if err != nil {
		return nil, err
	}
	if !account.IsActive() {
		return nil, errs.ErrPayoutAccountNotFound
	}

	pending, err := s.ledger.CountPendingPayouts(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pending > 0 {
		return nil, errs.ErrPendingPayoutExists
	}

	// Re-check balance under the lock, immediately before committing to the
	// payout.
	balance, err := s.ledger.CalculateBalance(ctx, userID, s.cfg.Currency)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(amount) {
		return nil, errs.NewInsufficientBalanceError(
			userID, string(s.cfg.Currency), amount.String(), balance.String(),
		)
	}

	fee := amount.Mul(s.cfg.FeePercent).Round(2)
	transaction, err := s.ledger.CreateTransaction(ctx, entity.TransactionSpec{
		SenderID: &userID,
		Purpose:  entity.PurposePayout,
		Provider: entity.ProviderProcessor,
		Currency: s.cfg.Currency,
		Amount:   amount,
		Fee:      fee,
		Remark:   fmt.Sprintf("payout to account %s", account.AccountID),
	})
	if err != nil {
		return nil, err
	}

	return s.dispatch(ctx, transaction, account.AccountID)
}

// dispatch hands the pending payout to the processor rail and applies the
// immediate outcome. A transient failure leaves the row pending for the
// webhook reconciler or the sweep; speculative cancellation never happens.
func (s *Service) dispatch(ctx context.Context, transaction *entity.Transaction, destination string) (*entity.Transaction, error) {
	rail, err := s.rails.Get(transaction.Provider)
	if err != nil {
		return nil, err
	}

	providerRef, err := rail.Initiate(ctx, transaction, destination)
	if err != nil {
		switch provider.KindOf(err) {
		case provider.KindRejected:
			reason := err.Error()
			if markErr := s.ledger.MarkTransactionState(ctx, transaction.ID, entity.StateFailed, reason); markErr != nil {
				s.logger.Error("Failed to mark rejected payout", map[string]any{
					"transaction_id": transaction.ID.String(),
					"error":          markErr.Error(),
				})
			}
			transaction.State = entity.StateFailed
			transaction.Remark = reason
			return transaction, err
		case provider.KindTransient:
			s.logger.Warn("Payout dispatch transient failure, left pending", map[string]any{
				"transaction_id": transaction.ID.String(),
				"error":          err.Error(),
			})
			return transaction, nil
		default:
			s.logger.Error("Payout dispatch unclassified failure, left pending", map[string]any{
				"transaction_id": transaction.ID.String(),
				"error":          err.Error(),
			})
			if alertErr := s.alerter.SendAlert(ctx,
				"Payout dispatch requires review",
				fmt.Sprintf("transaction %s: %v", transaction.ID, err),
				collaborator.SeverityWarning,
			); alertErr != nil {
				s.logger.Warn("Failed to send payout alert", map[string]any{"error": alertErr.Error()})
			}
			return transaction, nil
		}
	}

	if err := s.ledger.AttachProviderTxID(ctx, transaction.ID, providerRef); err != nil {
		return nil, err
	}
	transaction.ProviderTxID = &providerRef

	s.logger.Info("Payout dispatched", map[string]any{
		"transaction_id": transaction.ID.String(),
		"provider_ref":   providerRef,
	})
	return transaction, nil
}

// CancelPayout applies a user-initiated cancellation. Only possible before
// dispatch: once a provider reference exists the ledger waits for the
// authoritative terminal event instead.
func (s *Service) CancelPayout(ctx context.Context, userID uint64, transactionID uuid.UUID) error {
	transaction, err := s.ledger.GetTransaction(ctx, transactionID)
	if err != nil {
		return err
	}
	if transaction.Purpose != entity.PurposePayout || transaction.SenderID == nil || *transaction.SenderID != userID {
		return errs.ErrTransactionNotFound
	}
	if transaction.ProviderTxID != nil {
		return fmt.Errorf("%w: payout already dispatched", errs.ErrInvalidStateTransition)
	}
	return s.ledger.MarkTransactionState(ctx, transaction.ID, entity.StateCanceled, "canceled by user")
}
