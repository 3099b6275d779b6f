package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
	errs "github.com/thematters/settlement-ledger/internal/domain/error"
	"github.com/thematters/settlement-ledger/internal/domain/port/collaborator"
	"github.com/thematters/settlement-ledger/internal/domain/usecase/ledger"
	"github.com/thematters/settlement-ledger/internal/infrastructure/adapter/logger"
	mcoll "github.com/thematters/settlement-ledger/mocks/port/collaborator"
	mcore "github.com/thematters/settlement-ledger/mocks/port/core"
	mpers "github.com/thematters/settlement-ledger/mocks/port/persistence"
)

type reconcilerMocks struct {
	txRepo       *mpers.MockTransactionRepository
	users        *mcoll.MockUserService
	notifier     *mcoll.MockNotifier
	alerter      *mcoll.MockAlerter
	timeProvider *mcore.MockTimeProvider
}

func newReconciler(t *testing.T, severity UnknownTxSeverity) (*Reconciler, *reconcilerMocks) {
	m := &reconcilerMocks{
		txRepo:       mpers.NewMockTransactionRepository(t),
		users:        mcoll.NewMockUserService(t),
		notifier:     mcoll.NewMockNotifier(t),
		alerter:      mcoll.NewMockAlerter(t),
		timeProvider: mcore.NewMockTimeProvider(t),
	}
	noop := logger.NewNoopLogger()
	ledgerSvc := ledger.NewService(m.txRepo, m.users, m.notifier, m.alerter, m.timeProvider, noop)
	return NewReconciler(ledgerSvc, m.alerter, severity, noop), m
}

func uint64Ptr(v uint64) *uint64 { return &v }

func pendingPayout(providerTxID string) *entity.Transaction {
	ref := providerTxID
	return &entity.Transaction{
		ID:           uuid.New(),
		ProviderTxID: &ref,
		SenderID:     uint64Ptr(7),
		Purpose:      entity.PurposePayout,
		Provider:     entity.ProviderProcessor,
		Currency:     entity.CurrencyHKD,
		Amount:       decimal.RequireFromString("800"),
		State:        entity.StatePending,
	}
}

func TestHandleEvent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Processing event is a no-op", func(t *testing.T) {
		r, m := newReconciler(t, UnknownTxWarn)

		err := r.HandleEvent(ctx, Event{
			Provider:     entity.ProviderProcessor,
			Type:         EventProcessing,
			ProviderTxID: "po_1",
		})

		require.NoError(t, err)
		m.txRepo.AssertNotCalled(t, "GetByProviderTxID", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Succeeded event settles the pending payout", func(t *testing.T) {
		r, m := newReconciler(t, UnknownTxWarn)
		tx := pendingPayout("po_1")
		m.txRepo.On("GetByProviderTxID", ctx, entity.ProviderProcessor, "po_1").Return(tx, nil)
		m.txRepo.On("GetByID", ctx, tx.ID).Return(tx, nil)
		m.timeProvider.On("Now").Return(now)
		m.txRepo.On("MarkState", ctx, tx.ID, entity.StateSucceeded, "", now).Return(true, nil)
		m.notifier.On("Notify", ctx, collaborator.EventPayoutSucceeded, uint64(7), mock.Anything).Return(nil)

		err := r.HandleEvent(ctx, Event{
			Provider:     entity.ProviderProcessor,
			Type:         EventSucceeded,
			ProviderTxID: "po_1",
		})

		require.NoError(t, err)
	})

	t.Run("Failed event carries the provider reason", func(t *testing.T) {
		r, m := newReconciler(t, UnknownTxWarn)
		tx := pendingPayout("po_2")
		m.txRepo.On("GetByProviderTxID", ctx, entity.ProviderProcessor, "po_2").Return(tx, nil)
		m.txRepo.On("GetByID", ctx, tx.ID).Return(tx, nil)
		m.timeProvider.On("Now").Return(now)
		m.txRepo.On("MarkState", ctx, tx.ID, entity.StateFailed, "insufficient funds", now).Return(true, nil)
		m.notifier.On("Notify", ctx, collaborator.EventPayoutFailed, uint64(7), mock.Anything).Return(nil)

		err := r.HandleEvent(ctx, Event{
			Provider:     entity.ProviderProcessor,
			Type:         EventFailed,
			ProviderTxID: "po_2",
			Reason:       "insufficient funds",
		})

		require.NoError(t, err)
	})

	t.Run("Redelivered terminal event is absorbed", func(t *testing.T) {
		r, m := newReconciler(t, UnknownTxWarn)
		tx := pendingPayout("po_3")
		tx.State = entity.StateSucceeded
		m.txRepo.On("GetByProviderTxID", ctx, entity.ProviderProcessor, "po_3").Return(tx, nil)
		m.txRepo.On("GetByID", ctx, tx.ID).Return(tx, nil)

		err := r.HandleEvent(ctx, Event{
			Provider:     entity.ProviderProcessor,
			Type:         EventSucceeded,
			ProviderTxID: "po_3",
		})

		require.NoError(t, err)
		m.txRepo.AssertNotCalled(t, "MarkState", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Conflicting terminal event is alerted but does not fail the batch", func(t *testing.T) {
		r, m := newReconciler(t, UnknownTxWarn)
		tx := pendingPayout("po_4")
		tx.State = entity.StateSucceeded
		m.txRepo.On("GetByProviderTxID", ctx, entity.ProviderProcessor, "po_4").Return(tx, nil)
		m.txRepo.On("GetByID", ctx, tx.ID).Return(tx, nil)
		m.alerter.On("SendAlert", ctx, "Ledger terminal state violation", mock.Anything, collaborator.SeverityCritical).Return(nil)

		err := r.HandleEvent(ctx, Event{
			Provider:     entity.ProviderProcessor,
			Type:         EventFailed,
			ProviderTxID: "po_4",
		})

		require.NoError(t, err)
	})

	t.Run("Unknown reference warns by default", func(t *testing.T) {
		r, m := newReconciler(t, UnknownTxWarn)
		m.txRepo.On("GetByProviderTxID", ctx, entity.ProviderProcessor, "po_missing").
			Return(nil, errs.ErrTransactionNotFound)

		err := r.HandleEvent(ctx, Event{
			Provider:     entity.ProviderProcessor,
			Type:         EventSucceeded,
			ProviderTxID: "po_missing",
		})

		require.NoError(t, err)
		m.alerter.AssertNotCalled(t, "SendAlert", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Unknown reference alerts when configured", func(t *testing.T) {
		r, m := newReconciler(t, UnknownTxAlert)
		m.txRepo.On("GetByProviderTxID", ctx, entity.ProviderProcessor, "po_missing").
			Return(nil, errs.ErrTransactionNotFound)
		m.alerter.On("SendAlert", ctx, "Provider event for unknown transaction", mock.Anything, collaborator.SeverityWarning).Return(nil)

		err := r.HandleEvent(ctx, Event{
			Provider:     entity.ProviderProcessor,
			Type:         EventSucceeded,
			ProviderTxID: "po_missing",
		})

		require.NoError(t, err)
	})

	t.Run("Lookup infrastructure failure propagates", func(t *testing.T) {
		r, m := newReconciler(t, UnknownTxWarn)
		m.txRepo.On("GetByProviderTxID", ctx, entity.ProviderProcessor, "po_5").
			Return(nil, errs.ErrDatabaseConnection)

		err := r.HandleEvent(ctx, Event{
			Provider:     entity.ProviderProcessor,
			Type:         EventSucceeded,
			ProviderTxID: "po_5",
		})

		assert.ErrorIs(t, err, errs.ErrDatabaseConnection)
	})
}

func TestHandleRefundEvent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	settledDonation := func(providerTxID string) *entity.Transaction {
		ref := providerTxID
		return &entity.Transaction{
			ID:           uuid.New(),
			ProviderTxID: &ref,
			SenderID:     uint64Ptr(1),
			RecipientID:  uint64Ptr(2),
			Purpose:      entity.PurposeDonation,
			Provider:     entity.ProviderProcessor,
			Currency:     entity.CurrencyHKD,
			Amount:       decimal.RequireFromString("100"),
			State:        entity.StateSucceeded,
		}
	}

	activeUser := func(id uint64) *collaborator.User {
		return &collaborator.User{ID: id, State: collaborator.UserStateActive}
	}

	t.Run("Refund materializes a compensating transaction", func(t *testing.T) {
		r, m := newReconciler(t, UnknownTxWarn)
		original := settledDonation("ch_1")
		m.txRepo.On("GetByProviderTxID", ctx, entity.ProviderProcessor, "ch_1").Return(original, nil)
		m.txRepo.On("GetByProviderTxID", ctx, entity.ProviderProcessor, "re_1").
			Return(nil, errs.ErrTransactionNotFound)
		m.users.On("GetUser", ctx, uint64(1)).Return(activeUser(1), nil)
		m.users.On("GetUser", ctx, uint64(2)).Return(activeUser(2), nil)
		m.timeProvider.On("Now").Return(now)

		var refund *entity.Transaction
		m.txRepo.On("Create", ctx, mock.AnythingOfType("*entity.Transaction")).
			Run(func(args mock.Arguments) {
				refund = args.Get(1).(*entity.Transaction)
			}).Return(nil)

		err := r.HandleEvent(ctx, Event{
			Provider:     entity.ProviderProcessor,
			Type:         EventRefunded,
			ProviderTxID: "ch_1",
			RefundID:     "re_1",
		})

		require.NoError(t, err)
		require.NotNil(t, refund)
		assert.Equal(t, entity.PurposeRefund, refund.Purpose)
		assert.Equal(t, entity.StateSucceeded, refund.State)
		// Parties swap relative to the original donation.
		assert.Equal(t, uint64(2), *refund.SenderID)
		assert.Equal(t, uint64(1), *refund.RecipientID)
		assert.True(t, refund.Amount.Equal(original.Amount))
		assert.Equal(t, "re_1", *refund.ProviderTxID)
	})

	t.Run("Redelivered refund is idempotent", func(t *testing.T) {
		r, m := newReconciler(t, UnknownTxWarn)
		original := settledDonation("ch_1")
		existingRefund := settledDonation("re_1")
		m.txRepo.On("GetByProviderTxID", ctx, entity.ProviderProcessor, "ch_1").Return(original, nil)
		m.txRepo.On("GetByProviderTxID", ctx, entity.ProviderProcessor, "re_1").Return(existingRefund, nil)

		err := r.HandleEvent(ctx, Event{
			Provider:     entity.ProviderProcessor,
			Type:         EventRefunded,
			ProviderTxID: "ch_1",
			RefundID:     "re_1",
		})

		require.NoError(t, err)
		m.txRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Missing refund reference derives a stable one", func(t *testing.T) {
		r, m := newReconciler(t, UnknownTxWarn)
		original := settledDonation("ch_2")
		m.txRepo.On("GetByProviderTxID", ctx, entity.ProviderProcessor, "ch_2").Return(original, nil)
		m.txRepo.On("GetByProviderTxID", ctx, entity.ProviderProcessor, "ch_2/refund").
			Return(nil, errs.ErrTransactionNotFound)
		m.users.On("GetUser", ctx, uint64(1)).Return(activeUser(1), nil)
		m.users.On("GetUser", ctx, uint64(2)).Return(activeUser(2), nil)
		m.timeProvider.On("Now").Return(now)
		m.txRepo.On("Create", ctx, mock.AnythingOfType("*entity.Transaction")).Return(nil)

		err := r.HandleEvent(ctx, Event{
			Provider:     entity.ProviderProcessor,
			Type:         EventRefunded,
			ProviderTxID: "ch_2",
		})

		require.NoError(t, err)
	})

	t.Run("Partial refund uses the event amount", func(t *testing.T) {
		r, m := newReconciler(t, UnknownTxWarn)
		original := settledDonation("ch_3")
		partial := decimal.RequireFromString("40")
		m.txRepo.On("GetByProviderTxID", ctx, entity.ProviderProcessor, "ch_3").Return(original, nil)
		m.txRepo.On("GetByProviderTxID", ctx, entity.ProviderProcessor, "re_3").
			Return(nil, errs.ErrTransactionNotFound)
		m.users.On("GetUser", ctx, uint64(1)).Return(activeUser(1), nil)
		m.users.On("GetUser", ctx, uint64(2)).Return(activeUser(2), nil)
		m.timeProvider.On("Now").Return(now)

		var refund *entity.Transaction
		m.txRepo.On("Create", ctx, mock.AnythingOfType("*entity.Transaction")).
			Run(func(args mock.Arguments) {
				refund = args.Get(1).(*entity.Transaction)
			}).Return(nil)

		err := r.HandleEvent(ctx, Event{
			Provider:     entity.ProviderProcessor,
			Type:         EventRefunded,
			ProviderTxID: "ch_3",
			RefundID:     "re_3",
			Amount:       &partial,
		})

		require.NoError(t, err)
		require.NotNil(t, refund)
		assert.True(t, refund.Amount.Equal(partial))
	})

	t.Run("Refund exceeding the original is dropped", func(t *testing.T) {
		r, m := newReconciler(t, UnknownTxWarn)
		original := settledDonation("ch_4")
		excessive := decimal.RequireFromString("150")
		m.txRepo.On("GetByProviderTxID", ctx, entity.ProviderProcessor, "ch_4").Return(original, nil)

		err := r.HandleEvent(ctx, Event{
			Provider:     entity.ProviderProcessor,
			Type:         EventRefunded,
			ProviderTxID: "ch_4",
			RefundID:     "re_4",
			Amount:       &excessive,
		})

		require.NoError(t, err)
		m.txRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}
