package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
	errs "github.com/thematters/settlement-ledger/internal/domain/error"
	"github.com/thematters/settlement-ledger/internal/domain/port/collaborator"
	coreport "github.com/thematters/settlement-ledger/internal/domain/port/core"
	"github.com/thematters/settlement-ledger/internal/domain/usecase/ledger"
)

// EventType is the provider event already stripped of transport detail
type EventType string

// Event types the reconciler consumes
const (
	EventSucceeded  EventType = "succeeded"
	EventFailed     EventType = "failed"
	EventCanceled   EventType = "canceled"
	EventProcessing EventType = "processing"
	EventRefunded   EventType = "refunded"
)

// Event is an asynchronous provider callback, verified and decoded by the
// transport layer before it gets here
type Event struct {
	Provider     entity.TransactionProvider
	Type         EventType
	ProviderTxID string
	// RefundID is the provider's reference for the refund itself, set on
	// refunded events
	RefundID string
	// Amount is the refunded amount when it differs from the original
	Amount *decimal.Decimal
	// Reason is the provider's human-readable failure reason, if any
	Reason string
}

// UnknownTxSeverity configures how loudly an event for an id this ledger
// never created is reported
type UnknownTxSeverity string

// Unknown-transaction severities
const (
	UnknownTxWarn  UnknownTxSeverity = "warn"
	UnknownTxAlert UnknownTxSeverity = "alert"
)

// Reconciler transitions pending transactions to terminal states exactly once
// from at-least-once provider event delivery. It never overwrites a terminal
// state and never lets a single bad event abort the batch it arrived in.
type Reconciler struct {
	ledger            *ledger.Service
	alerter           collaborator.Alerter
	unknownTxSeverity UnknownTxSeverity
	logger            coreport.Logger
}

// NewReconciler creates the webhook reconciler
func NewReconciler(
	ledgerSvc *ledger.Service,
	alerter collaborator.Alerter,
	unknownTxSeverity UnknownTxSeverity,
	logger coreport.Logger,
) *Reconciler {
	if unknownTxSeverity == "" {
		unknownTxSeverity = UnknownTxWarn
	}
	return &Reconciler{
		ledger:            ledgerSvc,
		alerter:           alerter,
		unknownTxSeverity: unknownTxSeverity,
		logger:            logger,
	}
}

// HandleEvent applies one provider event to the ledger. Returns an error only
// for infrastructure failures; anomalies and unknown references are absorbed
// after logging so the surrounding batch keeps going.
func (r *Reconciler) HandleEvent(ctx context.Context, event Event) error {
	if event.Type == EventProcessing {
		// Provider is still working on it; the row is already pending.
		return nil
	}

	transaction, err := r.ledger.FindByProviderTxID(ctx, event.Provider, event.ProviderTxID)
	if err != nil {
		if errors.Is(err, errs.ErrTransactionNotFound) {
			r.reportUnknownTx(ctx, event)
			return nil
		}
		return fmt.Errorf("failed to look up provider transaction: %w", err)
	}

	switch event.Type {
	case EventSucceeded:
		return r.applyTerminal(ctx, transaction, entity.StateSucceeded, event.Reason)
	case EventFailed:
		return r.applyTerminal(ctx, transaction, entity.StateFailed, event.Reason)
	case EventCanceled:
		return r.applyTerminal(ctx, transaction, entity.StateCanceled, event.Reason)
	case EventRefunded:
		return r.applyRefund(ctx, transaction, event)
	default:
		r.logger.Warn("Unhandled provider event type", map[string]any{
			"provider":       string(event.Provider),
			"event_type":     string(event.Type),
			"provider_tx_id": event.ProviderTxID,
		})
		return nil
	}
}

// applyTerminal funnels the event through the ledger's state machine.
// A terminal-state violation has already been logged and alerted by the
// ledger; it is absorbed here so one anomalous event cannot take down the
// reconciliation loop for the rest of the batch.
func (r *Reconciler) applyTerminal(ctx context.Context, transaction *entity.Transaction, state entity.TransactionState, reason string) error {
	err := r.ledger.MarkTransactionState(ctx, transaction.ID, state, reason)
	if err != nil && errs.IsTerminalStateViolation(err) {
		return nil
	}
	return err
}

// applyRefund materializes a refunded event as a new compensating
// transaction with the original's parties swapped. The settled original is
// never mutated. The refund's own provider reference keys idempotency, so a
// redelivered event is a no-op inside CreateTransaction.
func (r *Reconciler) applyRefund(ctx context.Context, original *entity.Transaction, event Event) error {
	refundID := event.RefundID
	if refundID == "" {
		// Some providers omit a distinct refund reference; derive a stable one.
		refundID = event.ProviderTxID + "/refund"
	}

	amount := original.Amount
	if event.Amount != nil {
		amount = *event.Amount
		if amount.GreaterThan(original.Amount) {
			r.logger.Error("Refund exceeds original amount, dropped", map[string]any{
				"provider_tx_id": event.ProviderTxID,
				"refund_id":      refundID,
				"refund_amount":  amount.String(),
				"original":       original.Amount.String(),
			})
			return nil
		}
	}

	_, err := r.ledger.CreateTransaction(ctx, entity.TransactionSpec{
		ProviderTxID: &refundID,
		SenderID:     original.RecipientID,
		RecipientID:  original.SenderID,
		Purpose:      entity.PurposeRefund,
		Provider:     original.Provider,
		Currency:     original.Currency,
		Amount:       amount,
		Fee:          decimal.Zero,
		State:        entity.StateSucceeded,
		Remark:       fmt.Sprintf("refund of %s", event.ProviderTxID),
	})
	if err != nil {
		return fmt.Errorf("failed to create compensating refund: %w", err)
	}

	r.logger.Info("Refund materialized", map[string]any{
		"provider_tx_id": event.ProviderTxID,
		"refund_id":      refundID,
		"amount":         amount.String(),
	})
	return nil
}

// reportUnknownTx handles an event referencing an id this ledger never
// created. Usually noise (e.g. test events), but configurable to alert in
// case it signals a missed transaction creation.
func (r *Reconciler) reportUnknownTx(ctx context.Context, event Event) {
	fields := map[string]any{
		"provider":       string(event.Provider),
		"event_type":     string(event.Type),
		"provider_tx_id": event.ProviderTxID,
	}
	if r.unknownTxSeverity == UnknownTxAlert {
		r.logger.Error("Provider event for unknown transaction", fields)
		if err := r.alerter.SendAlert(ctx,
			"Provider event for unknown transaction",
			fmt.Sprintf("provider=%s type=%s providerTxId=%s", event.Provider, event.Type, event.ProviderTxID),
			collaborator.SeverityWarning,
		); err != nil {
			r.logger.Warn("Failed to send unknown-transaction alert", map[string]any{"error": err.Error()})
		}
		return
	}
	r.logger.Warn("Provider event for unknown transaction, dropped", fields)
}
