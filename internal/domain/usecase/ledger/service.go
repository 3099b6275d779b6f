package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
	errs "github.com/thematters/settlement-ledger/internal/domain/error"
	"github.com/thematters/settlement-ledger/internal/domain/port/collaborator"
	coreport "github.com/thematters/settlement-ledger/internal/domain/port/core"
	"github.com/thematters/settlement-ledger/internal/domain/port/persistence"
)

// Service is the ledger core: it owns transaction creation, the terminal
// state machine and the read-side balance queries. All money movement in the
// system goes through here.
type Service struct {
	txRepo       persistence.TransactionRepository
	users        collaborator.UserService
	notifier     collaborator.Notifier
	alerter      collaborator.Alerter
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
}

// NewService creates the ledger service
func NewService(
	txRepo persistence.TransactionRepository,
	users collaborator.UserService,
	notifier collaborator.Notifier,
	alerter collaborator.Alerter,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
) *Service {
	return &Service{
		txRepo:       txRepo,
		users:        users,
		notifier:     notifier,
		alerter:      alerter,
		timeProvider: timeProvider,
		logger:       logger,
	}
}

// CreateTransaction validates and persists a new ledger row. When the spec
// carries a providerTxId that already exists, the persisted row is returned
// unchanged: the real-world event already happened and ingesting it twice
// must be a no-op.
func (s *Service) CreateTransaction(ctx context.Context, spec entity.TransactionSpec) (*entity.Transaction, error) {
	if spec.ProviderTxID != nil {
		existing, err := s.txRepo.GetByProviderTxID(ctx, spec.Provider, *spec.ProviderTxID)
		if err == nil {
			s.logger.Debug("Provider transaction already ingested", map[string]any{
				"provider":       string(spec.Provider),
				"provider_tx_id": *spec.ProviderTxID,
				"transaction_id": existing.ID.String(),
			})
			return existing, nil
		}
		if !errors.Is(err, errs.ErrTransactionNotFound) {
			return nil, fmt.Errorf("failed to check provider transaction: %w", err)
		}
	}

	if err := s.validateParties(ctx, spec.SenderID, spec.RecipientID); err != nil {
		return nil, err
	}

	transaction, err := entity.NewTransaction(spec, s.timeProvider)
	if err != nil {
		return nil, err
	}

	if err := s.txRepo.Create(ctx, transaction); err != nil {
		// A concurrent ingester won the race on (provider, providerTxId);
		// surface its row instead of an error.
		if errs.IsDuplicateProviderTxError(err) && spec.ProviderTxID != nil {
			return s.txRepo.GetByProviderTxID(ctx, spec.Provider, *spec.ProviderTxID)
		}
		return nil, err
	}

	s.logger.Info("Transaction created", map[string]any{
		"transaction_id": transaction.ID.String(),
		"purpose":        string(transaction.Purpose),
		"provider":       string(transaction.Provider),
		"currency":       string(transaction.Currency),
		"amount":         transaction.Amount.String(),
		"state":          string(transaction.State),
	})

	// Rows born terminal (internal transfers, confirmed chain events) never
	// pass through MarkTransactionState, so notify here.
	if transaction.State == entity.StateSucceeded {
		s.dispatchNotification(ctx, transaction)
	}

	return transaction, nil
}

// MarkTransactionState applies a terminal state to a pending transaction.
// Re-applying the same terminal state is an idempotent no-op; attempting to
// overwrite a different terminal state is rejected and alerted. The actual
// write is a conditional update so concurrent reconcilers race harmlessly.
func (s *Service) MarkTransactionState(ctx context.Context, id uuid.UUID, newState entity.TransactionState, remark string) error {
	if !entity.IsTerminalState(newState) {
		return fmt.Errorf("%w: %s is not a terminal state", errs.ErrInvalidStateTransition, newState)
	}

	transaction, err := s.txRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if transaction.IsTerminal() {
		return s.handleAlreadyTerminal(ctx, transaction, newState)
	}

	mutated, err := s.txRepo.MarkState(ctx, id, newState, remark, s.timeProvider.Now())
	if err != nil {
		return err
	}
	if !mutated {
		// Lost the race to another reconciler; re-read and decide whether the
		// outcome agrees with ours.
		transaction, err = s.txRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return s.handleAlreadyTerminal(ctx, transaction, newState)
	}

	s.logger.Info("Transaction state updated", map[string]any{
		"transaction_id": id.String(),
		"state":          string(newState),
		"purpose":        string(transaction.Purpose),
	})

	// Only the call that performed the mutation notifies, so duplicate
	// reconciliation events never produce duplicate notifications.
	transaction.State = newState
	s.dispatchNotification(ctx, transaction)

	return nil
}

// handleAlreadyTerminal distinguishes the idempotent duplicate from the
// anomalous cross-terminal write
func (s *Service) handleAlreadyTerminal(ctx context.Context, transaction *entity.Transaction, newState entity.TransactionState) error {
	if transaction.IsSameTerminal(newState) {
		s.logger.Debug("Duplicate terminal transition ignored", map[string]any{
			"transaction_id": transaction.ID.String(),
			"state":          string(newState),
		})
		return nil
	}

	violation := errs.NewTerminalStateViolationError(
		transaction.ID.String(), string(transaction.State), string(newState),
	)
	s.logger.Error("Terminal state violation", map[string]any{
		"transaction_id":  transaction.ID.String(),
		"current_state":   string(transaction.State),
		"attempted_state": string(newState),
	})
	if err := s.alerter.SendAlert(ctx,
		"Ledger terminal state violation",
		violation.Error(),
		collaborator.SeverityCritical,
	); err != nil {
		s.logger.Warn("Failed to send terminal violation alert", map[string]any{
			"error": err.Error(),
		})
	}
	return violation
}

// AttachProviderTxID records the external reference a rail returned for a
// freshly dispatched transaction
func (s *Service) AttachProviderTxID(ctx context.Context, id uuid.UUID, providerTxID string) error {
	return s.txRepo.SetProviderTxID(ctx, id, providerTxID)
}

// FindByProviderTxID is the idempotency lookup used before ingesting any
// provider-sourced transaction
func (s *Service) FindByProviderTxID(ctx context.Context, provider entity.TransactionProvider, providerTxID string) (*entity.Transaction, error) {
	return s.txRepo.GetByProviderTxID(ctx, provider, providerTxID)
}

// GetTransaction retrieves a transaction by its ledger id
func (s *Service) GetTransaction(ctx context.Context, id uuid.UUID) (*entity.Transaction, error) {
	return s.txRepo.GetByID(ctx, id)
}

// CalculateBalance derives the user's spendable balance in the currency from
// succeeded transactions only. Pure read; safe to call concurrently with
// ledger writes, tolerating eventual consistency with in-flight commits.
func (s *Service) CalculateBalance(ctx context.Context, userID uint64, currency entity.Currency) (decimal.Decimal, error) {
	if userID == 0 {
		return decimal.Zero, errs.ErrUserNotFound
	}
	if !entity.IsValidCurrency(string(currency)) {
		return decimal.Zero, fmt.Errorf("%w: %s", errs.ErrInvalidCurrency, currency)
	}
	return s.txRepo.SumBalance(ctx, userID, currency)
}

// CountPendingPayouts guards payout initiation: it must be zero before a new
// payout may be created
func (s *Service) CountPendingPayouts(ctx context.Context, userID uint64) (int64, error) {
	return s.txRepo.CountPendingPayouts(ctx, userID)
}

// validateParties checks that every referenced party exists and is not archived
func (s *Service) validateParties(ctx context.Context, senderID, recipientID *uint64) error {
	for _, id := range []*uint64{senderID, recipientID} {
		if id == nil {
			continue
		}
		user, err := s.users.GetUser(ctx, *id)
		if err != nil {
			return fmt.Errorf("party %d: %w", *id, err)
		}
		if user.IsArchived() {
			return fmt.Errorf("party %d: %w", *id, errs.ErrUserArchived)
		}
	}
	return nil
}

// dispatchNotification fires the user-facing notification that follows a
// succeeded or failed transition. Failures are logged and swallowed; a
// notification outage must never affect ledger state.
func (s *Service) dispatchNotification(ctx context.Context, transaction *entity.Transaction) {
	event, recipient, ok := notificationFor(transaction)
	if !ok {
		return
	}

	payload := map[string]any{
		"transaction_id": transaction.ID.String(),
		"purpose":        string(transaction.Purpose),
		"amount":         entity.FormatAmount(transaction.Amount, transaction.Currency),
		"currency":       string(transaction.Currency),
	}
	if err := s.notifier.Notify(ctx, event, recipient, payload); err != nil {
		s.logger.Warn("Notification dispatch failed", map[string]any{
			"event":          string(event),
			"recipient_id":   recipient,
			"transaction_id": transaction.ID.String(),
			"error":          err.Error(),
		})
	}
}

// notificationFor maps a transaction's purpose and outcome to the
// notification it triggers, if any
func notificationFor(t *entity.Transaction) (collaborator.NotificationEvent, uint64, bool) {
	switch {
	case t.Purpose == entity.PurposeDonation && t.State == entity.StateSucceeded && t.RecipientID != nil:
		return collaborator.EventDonationReceived, *t.RecipientID, true
	case t.Purpose == entity.PurposeAddCredit && t.State == entity.StateSucceeded && t.RecipientID != nil:
		return collaborator.EventCreditAdded, *t.RecipientID, true
	case t.Purpose == entity.PurposeCurationVaultWithdrawal && t.State == entity.StateSucceeded && t.RecipientID != nil:
		return collaborator.EventVaultWithdrawn, *t.RecipientID, true
	case t.Purpose == entity.PurposePayout && t.State == entity.StateSucceeded && t.SenderID != nil:
		return collaborator.EventPayoutSucceeded, *t.SenderID, true
	case t.Purpose == entity.PurposePayout && t.State == entity.StateFailed && t.SenderID != nil:
		return collaborator.EventPayoutFailed, *t.SenderID, true
	}
	return "", 0, false
}
