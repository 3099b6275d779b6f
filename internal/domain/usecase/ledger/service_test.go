package ledger

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
	"github.com/thematters/settlement-ledger/internal/infrastructure/adapter/logger"
	mcoll "github.com/thematters/settlement-ledger/mocks/port/collaborator"
	mcore "github.com/thematters/settlement-ledger/mocks/port/core"
	mpers "github.com/thematters/settlement-ledger/mocks/port/persistence"
)

type serviceMocks struct {
	txRepo       *mpers.MockTransactionRepository
	users        *mcoll.MockUserService
	notifier     *mcoll.MockNotifier
	alerter      *mcoll.MockAlerter
	timeProvider *mcore.MockTimeProvider
}

func newServiceWithMocks(t *testing.T) (*Service, *serviceMocks) {
	m := &serviceMocks{
		txRepo:       mpers.NewMockTransactionRepository(t),
		users:        mcoll.NewMockUserService(t),
		notifier:     mcoll.NewMockNotifier(t),
		alerter:      mcoll.NewMockAlerter(t),
		timeProvider: mcore.NewMockTimeProvider(t),
	}
	svc := NewService(m.txRepo, m.users, m.notifier, m.alerter, m.timeProvider, logger.NewNoopLogger())
	return svc, m
}

func uint64Ptr(v uint64) *uint64 { return &v }
func strPtr(s string) *string    { return &s }

func activeUser(id uint64) *collaborator.User {
	return &collaborator.User{ID: id, State: collaborator.UserStateActive}
}

func TestCreateTransaction(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	donationSpec := entity.TransactionSpec{
		SenderID:    uint64Ptr(1),
		RecipientID: uint64Ptr(2),
		Purpose:     entity.PurposeDonation,
		Provider:    entity.ProviderProcessor,
		Currency:    entity.CurrencyHKD,
		Amount:      decimal.RequireFromString("100"),
		Fee:         decimal.RequireFromString("2"),
	}

	t.Run("Creates pending transaction", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)
		m.users.On("GetUser", ctx, uint64(1)).Return(activeUser(1), nil)
		m.users.On("GetUser", ctx, uint64(2)).Return(activeUser(2), nil)
		m.timeProvider.On("Now").Return(now)
		m.txRepo.On("Create", ctx, mock.AnythingOfType("*entity.Transaction")).Return(nil)

		tx, err := svc.CreateTransaction(ctx, donationSpec)

		require.NoError(t, err)
		assert.Equal(t, entity.StatePending, tx.State)
		assert.Equal(t, now, tx.CreatedAt)
	})

	t.Run("Existing provider reference is returned unchanged", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)
		existing := &entity.Transaction{ID: uuid.New(), State: entity.StateSucceeded}
		spec := donationSpec
		spec.ProviderTxID = strPtr("ch_1")
		m.txRepo.On("GetByProviderTxID", ctx, entity.ProviderProcessor, "ch_1").Return(existing, nil)

		tx, err := svc.CreateTransaction(ctx, spec)

		require.NoError(t, err)
		assert.Same(t, existing, tx)
		m.txRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Archived party is rejected", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)
		m.users.On("GetUser", ctx, uint64(1)).Return(activeUser(1), nil)
		m.users.On("GetUser", ctx, uint64(2)).Return(&collaborator.User{
			ID: 2, State: collaborator.UserStateArchived,
		}, nil)

		_, err := svc.CreateTransaction(ctx, donationSpec)

		assert.ErrorIs(t, err, errs.ErrUserArchived)
	})

	t.Run("Unknown party is rejected", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)
		m.users.On("GetUser", ctx, uint64(1)).Return(nil, errs.ErrUserNotFound)

		_, err := svc.CreateTransaction(ctx, donationSpec)

		assert.ErrorIs(t, err, errs.ErrUserNotFound)
	})

	t.Run("Concurrent duplicate ingestion returns the winner's row", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)
		existing := &entity.Transaction{ID: uuid.New(), State: entity.StateSucceeded}
		spec := donationSpec
		spec.ProviderTxID = strPtr("ch_2")

		m.txRepo.On("GetByProviderTxID", ctx, entity.ProviderProcessor, "ch_2").
			Return(nil, errs.ErrTransactionNotFound).Once()
		m.users.On("GetUser", ctx, uint64(1)).Return(activeUser(1), nil)
		m.users.On("GetUser", ctx, uint64(2)).Return(activeUser(2), nil)
		m.timeProvider.On("Now").Return(now)
		m.txRepo.On("Create", ctx, mock.AnythingOfType("*entity.Transaction")).
			Return(errs.NewDuplicateProviderTxError("processor", "ch_2"))
		m.txRepo.On("GetByProviderTxID", ctx, entity.ProviderProcessor, "ch_2").
			Return(existing, nil).Once()

		tx, err := svc.CreateTransaction(ctx, spec)

		require.NoError(t, err)
		assert.Same(t, existing, tx)
	})

	t.Run("Born-succeeded donation notifies the recipient", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)
		spec := donationSpec
		spec.Provider = entity.ProviderBlockchain
		spec.Currency = entity.CurrencyUSDT
		spec.Fee = decimal.Zero
		spec.State = entity.StateSucceeded

		m.users.On("GetUser", ctx, uint64(1)).Return(activeUser(1), nil)
		m.users.On("GetUser", ctx, uint64(2)).Return(activeUser(2), nil)
		m.timeProvider.On("Now").Return(now)
		m.txRepo.On("Create", ctx, mock.AnythingOfType("*entity.Transaction")).Return(nil)
		m.notifier.On("Notify", ctx, collaborator.EventDonationReceived, uint64(2), mock.Anything).Return(nil)

		tx, err := svc.CreateTransaction(ctx, spec)

		require.NoError(t, err)
		assert.Equal(t, entity.StateSucceeded, tx.State)
	})
}

func TestMarkTransactionState(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	txID := uuid.New()

	pendingPayout := func() *entity.Transaction {
		return &entity.Transaction{
			ID:       txID,
			SenderID: uint64Ptr(1),
			Purpose:  entity.PurposePayout,
			Provider: entity.ProviderProcessor,
			Currency: entity.CurrencyHKD,
			Amount:   decimal.RequireFromString("100"),
			State:    entity.StatePending,
		}
	}

	t.Run("Pending transitions to succeeded and notifies once", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)
		m.txRepo.On("GetByID", ctx, txID).Return(pendingPayout(), nil)
		m.timeProvider.On("Now").Return(now)
		m.txRepo.On("MarkState", ctx, txID, entity.StateSucceeded, "paid", now).Return(true, nil)
		m.notifier.On("Notify", ctx, collaborator.EventPayoutSucceeded, uint64(1), mock.Anything).Return(nil)

		err := svc.MarkTransactionState(ctx, txID, entity.StateSucceeded, "paid")

		require.NoError(t, err)
	})

	t.Run("Non-terminal target state is rejected", func(t *testing.T) {
		svc, _ := newServiceWithMocks(t)

		err := svc.MarkTransactionState(ctx, txID, entity.StatePending, "")

		assert.ErrorIs(t, err, errs.ErrInvalidStateTransition)
	})

	t.Run("Repeating the same terminal state is a no-op", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)
		settled := pendingPayout()
		settled.State = entity.StateSucceeded
		m.txRepo.On("GetByID", ctx, txID).Return(settled, nil)

		err := svc.MarkTransactionState(ctx, txID, entity.StateSucceeded, "paid again")

		require.NoError(t, err)
		m.txRepo.AssertNotCalled(t, "MarkState", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Cross-terminal write is rejected and alerted", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)
		settled := pendingPayout()
		settled.State = entity.StateSucceeded
		m.txRepo.On("GetByID", ctx, txID).Return(settled, nil)
		m.alerter.On("SendAlert", ctx, "Ledger terminal state violation", mock.Anything, collaborator.SeverityCritical).Return(nil)

		err := svc.MarkTransactionState(ctx, txID, entity.StateFailed, "declined")

		assert.ErrorIs(t, err, errs.ErrTerminalStateViolation)
	})

	t.Run("Lost race to an agreeing reconciler is a no-op", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)
		m.txRepo.On("GetByID", ctx, txID).Return(pendingPayout(), nil).Once()
		m.timeProvider.On("Now").Return(now)
		m.txRepo.On("MarkState", ctx, txID, entity.StateSucceeded, "paid", now).Return(false, nil)
		settled := pendingPayout()
		settled.State = entity.StateSucceeded
		m.txRepo.On("GetByID", ctx, txID).Return(settled, nil).Once()

		err := svc.MarkTransactionState(ctx, txID, entity.StateSucceeded, "paid")

		require.NoError(t, err)
		m.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Notification outage does not fail the transition", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)
		m.txRepo.On("GetByID", ctx, txID).Return(pendingPayout(), nil)
		m.timeProvider.On("Now").Return(now)
		m.txRepo.On("MarkState", ctx, txID, entity.StateFailed, "declined", now).Return(true, nil)
		m.notifier.On("Notify", ctx, collaborator.EventPayoutFailed, uint64(1), mock.Anything).
			Return(assert.AnError)

		err := svc.MarkTransactionState(ctx, txID, entity.StateFailed, "declined")

		require.NoError(t, err)
	})
}

func TestCalculateBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("Delegates to the balance sum", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)
		m.txRepo.On("SumBalance", ctx, uint64(1), entity.CurrencyHKD).
			Return(decimal.RequireFromString("42.50"), nil)

		balance, err := svc.CalculateBalance(ctx, 1, entity.CurrencyHKD)

		require.NoError(t, err)
		assert.True(t, balance.Equal(decimal.RequireFromString("42.50")))
	})

	t.Run("Zero user id is rejected", func(t *testing.T) {
		svc, _ := newServiceWithMocks(t)

		_, err := svc.CalculateBalance(ctx, 0, entity.CurrencyHKD)

		assert.ErrorIs(t, err, errs.ErrUserNotFound)
	})

	t.Run("Unsupported currency is rejected", func(t *testing.T) {
		svc, _ := newServiceWithMocks(t)

		_, err := svc.CalculateBalance(ctx, 1, entity.Currency("EUR"))

		assert.ErrorIs(t, err, errs.ErrInvalidCurrency)
	})
}
