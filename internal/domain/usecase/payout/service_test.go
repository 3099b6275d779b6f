package payout

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
	"github.com/thematters/settlement-ledger/internal/domain/port/provider"
	"github.com/thematters/settlement-ledger/internal/domain/usecase/ledger"
	"github.com/thematters/settlement-ledger/internal/infrastructure/adapter/logger"
	mcoll "github.com/thematters/settlement-ledger/mocks/port/collaborator"
	mcore "github.com/thematters/settlement-ledger/mocks/port/core"
	mpers "github.com/thematters/settlement-ledger/mocks/port/persistence"
	mprov "github.com/thematters/settlement-ledger/mocks/port/provider"
)

type payoutMocks struct {
	txRepo       *mpers.MockTransactionRepository
	accounts     *mpers.MockPayoutAccountRepository
	uow          *mpers.MockUnitOfWork
	locks        *mpers.MockUserLockRepository
	users        *mcoll.MockUserService
	notifier     *mcoll.MockNotifier
	alerter      *mcoll.MockAlerter
	rail         *mprov.MockPaymentRail
	onboarder    *mprov.MockPayoutOnboarder
	timeProvider *mcore.MockTimeProvider
}

func newPayoutService(t *testing.T) (*Service, *payoutMocks) {
	m := &payoutMocks{
		txRepo:       mpers.NewMockTransactionRepository(t),
		accounts:     mpers.NewMockPayoutAccountRepository(t),
		uow:          mpers.NewMockUnitOfWork(t),
		locks:        mpers.NewMockUserLockRepository(t),
		users:        mcoll.NewMockUserService(t),
		notifier:     mcoll.NewMockNotifier(t),
		alerter:      mcoll.NewMockAlerter(t),
		rail:         mprov.NewMockPaymentRail(t),
		onboarder:    mprov.NewMockPayoutOnboarder(t),
		timeProvider: mcore.NewMockTimeProvider(t),
	}
	noop := logger.NewNoopLogger()
	ledgerSvc := ledger.NewService(m.txRepo, m.users, m.notifier, m.alerter, m.timeProvider, noop)

	rails := provider.NewRegistry()
	rails.Register(entity.ProviderProcessor, m.rail)

	cfg := Config{
		MinimumAmount: decimal.RequireFromString("500"),
		FeePercent:    decimal.RequireFromString("0.02"),
		Currency:      entity.CurrencyHKD,
		LockTimeout:   30 * time.Second,
	}
	svc := NewService(
		ledgerSvc, m.accounts, m.uow, m.locks, m.users, m.alerter,
		rails, m.onboarder, cfg, m.timeProvider, noop,
	)
	return svc, m
}

func activeAccount(userID uint64) *entity.PayoutAccount {
	return &entity.PayoutAccount{
		ID:                    1,
		UserID:                userID,
		AccountID:             "acct_1",
		Provider:              entity.ProviderProcessor,
		Country:               "HK",
		Currency:              entity.CurrencyHKD,
		Type:                  entity.PayoutAccountExpress,
		CapabilitiesTransfers: true,
	}
}

func TestInitiatePayout(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	userID := uint64(7)
	amount := decimal.RequireFromString("800")

	t.Run("Amount below minimum is rejected before locking", func(t *testing.T) {
		svc, m := newPayoutService(t)

		_, err := svc.InitiatePayout(ctx, userID, decimal.RequireFromString("499.99"))

		assert.ErrorIs(t, err, errs.ErrInvalidAmount)
		m.locks.AssertNotCalled(t, "AcquireLock", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Lock contention is surfaced", func(t *testing.T) {
		svc, m := newPayoutService(t)
		m.locks.On("AcquireLock", ctx, userID, 30*time.Second).Return(errs.ErrUserLocked)

		_, err := svc.InitiatePayout(ctx, userID, amount)

		assert.ErrorIs(t, err, errs.ErrUserLocked)
	})

	t.Run("Missing payout account aborts", func(t *testing.T) {
		svc, m := newPayoutService(t)
		m.locks.On("AcquireLock", ctx, userID, 30*time.Second).Return(nil)
		m.locks.On("ReleaseLock", ctx, userID).Return(nil)
		m.accounts.On("GetActiveByUser", ctx, userID, entity.ProviderProcessor).
			Return(nil, errs.ErrPayoutAccountNotFound)

		_, err := svc.InitiatePayout(ctx, userID, amount)

		assert.ErrorIs(t, err, errs.ErrPayoutAccountNotFound)
	})

	t.Run("Account without transfer capability aborts", func(t *testing.T) {
		svc, m := newPayoutService(t)
		incapable := activeAccount(userID)
		incapable.CapabilitiesTransfers = false
		m.locks.On("AcquireLock", ctx, userID, 30*time.Second).Return(nil)
		m.locks.On("ReleaseLock", ctx, userID).Return(nil)
		m.accounts.On("GetActiveByUser", ctx, userID, entity.ProviderProcessor).Return(incapable, nil)

		_, err := svc.InitiatePayout(ctx, userID, amount)

		assert.ErrorIs(t, err, errs.ErrPayoutAccountNotFound)
	})

	t.Run("In-flight payout blocks a second one", func(t *testing.T) {
		svc, m := newPayoutService(t)
		m.locks.On("AcquireLock", ctx, userID, 30*time.Second).Return(nil)
		m.locks.On("ReleaseLock", ctx, userID).Return(nil)
		m.accounts.On("GetActiveByUser", ctx, userID, entity.ProviderProcessor).Return(activeAccount(userID), nil)
		m.txRepo.On("CountPendingPayouts", ctx, userID).Return(int64(1), nil)

		_, err := svc.InitiatePayout(ctx, userID, amount)

		assert.ErrorIs(t, err, errs.ErrPendingPayoutExists)
	})

	t.Run("Insufficient balance under the lock aborts", func(t *testing.T) {
		svc, m := newPayoutService(t)
		m.locks.On("AcquireLock", ctx, userID, 30*time.Second).Return(nil)
		m.locks.On("ReleaseLock", ctx, userID).Return(nil)
		m.accounts.On("GetActiveByUser", ctx, userID, entity.ProviderProcessor).Return(activeAccount(userID), nil)
		m.txRepo.On("CountPendingPayouts", ctx, userID).Return(int64(0), nil)
		m.txRepo.On("SumBalance", ctx, userID, entity.CurrencyHKD).
			Return(decimal.RequireFromString("799.99"), nil)

		_, err := svc.InitiatePayout(ctx, userID, amount)

		assert.ErrorIs(t, err, errs.ErrInsufficientBalance)
		m.txRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Balance equal to the gross amount is sufficient", func(t *testing.T) {
		// The fee comes out of the gross amount, so a user is never asked to
		// hold amount plus fee.
		svc, m := newPayoutService(t)
		m.locks.On("AcquireLock", ctx, userID, 30*time.Second).Return(nil)
		m.locks.On("ReleaseLock", ctx, userID).Return(nil)
		m.accounts.On("GetActiveByUser", ctx, userID, entity.ProviderProcessor).Return(activeAccount(userID), nil)
		m.txRepo.On("CountPendingPayouts", ctx, userID).Return(int64(0), nil)
		m.txRepo.On("SumBalance", ctx, userID, entity.CurrencyHKD).
			Return(decimal.RequireFromString("800"), nil)
		m.users.On("GetUser", ctx, userID).Return(&collaborator.User{ID: userID, State: collaborator.UserStateActive}, nil)
		m.timeProvider.On("Now").Return(now)
		m.txRepo.On("Create", ctx, mock.AnythingOfType("*entity.Transaction")).Return(nil)
		m.rail.On("Initiate", ctx, mock.AnythingOfType("*entity.Transaction"), "acct_1").Return("po_2", nil)
		m.txRepo.On("SetProviderTxID", ctx, mock.Anything, "po_2").Return(nil)

		tx, err := svc.InitiatePayout(ctx, userID, amount)

		require.NoError(t, err)
		assert.True(t, tx.Amount.Equal(amount))
		assert.True(t, tx.NetAmount().Equal(decimal.RequireFromString("784")))
	})

	t.Run("Successful dispatch records the provider reference", func(t *testing.T) {
		svc, m := newPayoutService(t)
		m.locks.On("AcquireLock", ctx, userID, 30*time.Second).Return(nil)
		m.locks.On("ReleaseLock", ctx, userID).Return(nil)
		m.accounts.On("GetActiveByUser", ctx, userID, entity.ProviderProcessor).Return(activeAccount(userID), nil)
		m.txRepo.On("CountPendingPayouts", ctx, userID).Return(int64(0), nil)
		m.txRepo.On("SumBalance", ctx, userID, entity.CurrencyHKD).
			Return(decimal.RequireFromString("1000"), nil)
		m.users.On("GetUser", ctx, userID).Return(&collaborator.User{ID: userID, State: collaborator.UserStateActive}, nil)
		m.timeProvider.On("Now").Return(now)
		m.txRepo.On("Create", ctx, mock.AnythingOfType("*entity.Transaction")).Return(nil)
		m.rail.On("Initiate", ctx, mock.AnythingOfType("*entity.Transaction"), "acct_1").Return("po_1", nil)
		m.txRepo.On("SetProviderTxID", ctx, mock.Anything, "po_1").Return(nil)

		tx, err := svc.InitiatePayout(ctx, userID, amount)

		require.NoError(t, err)
		assert.Equal(t, entity.StatePending, tx.State)
		require.NotNil(t, tx.ProviderTxID)
		assert.Equal(t, "po_1", *tx.ProviderTxID)
		assert.True(t, tx.Fee.Equal(decimal.RequireFromString("16")), "2%% of 800, got %s", tx.Fee)
	})

	t.Run("Rejected dispatch fails the transaction", func(t *testing.T) {
		svc, m := newPayoutService(t)
		m.locks.On("AcquireLock", ctx, userID, 30*time.Second).Return(nil)
		m.locks.On("ReleaseLock", ctx, userID).Return(nil)
		m.accounts.On("GetActiveByUser", ctx, userID, entity.ProviderProcessor).Return(activeAccount(userID), nil)
		m.txRepo.On("CountPendingPayouts", ctx, userID).Return(int64(0), nil)
		m.txRepo.On("SumBalance", ctx, userID, entity.CurrencyHKD).
			Return(decimal.RequireFromString("1000"), nil)
		m.users.On("GetUser", ctx, userID).Return(&collaborator.User{ID: userID, State: collaborator.UserStateActive}, nil)
		m.timeProvider.On("Now").Return(now)

		m.txRepo.On("Create", ctx, mock.AnythingOfType("*entity.Transaction")).Return(nil)
		m.rail.On("Initiate", ctx, mock.AnythingOfType("*entity.Transaction"), "acct_1").
			Return("", provider.NewRejected(entity.ProviderProcessor, "account_invalid", "destination rejected"))

		// Failing the row goes back through the ledger state machine.
		sender := userID
		m.txRepo.On("GetByID", ctx, mock.Anything).Return(&entity.Transaction{
			SenderID: &sender,
			Purpose:  entity.PurposePayout,
			Provider: entity.ProviderProcessor,
			Currency: entity.CurrencyHKD,
			Amount:   amount,
			State:    entity.StatePending,
		}, nil)
		m.txRepo.On("MarkState", ctx, mock.Anything, entity.StateFailed, mock.Anything, now).Return(true, nil)
		m.notifier.On("Notify", ctx, collaborator.EventPayoutFailed, userID, mock.Anything).Return(nil)

		tx, err := svc.InitiatePayout(ctx, userID, amount)

		assert.True(t, provider.IsRejected(err))
		require.NotNil(t, tx)
		assert.Equal(t, entity.StateFailed, tx.State)
	})

	t.Run("Transient dispatch failure leaves the payout pending", func(t *testing.T) {
		svc, m := newPayoutService(t)
		m.locks.On("AcquireLock", ctx, userID, 30*time.Second).Return(nil)
		m.locks.On("ReleaseLock", ctx, userID).Return(nil)
		m.accounts.On("GetActiveByUser", ctx, userID, entity.ProviderProcessor).Return(activeAccount(userID), nil)
		m.txRepo.On("CountPendingPayouts", ctx, userID).Return(int64(0), nil)
		m.txRepo.On("SumBalance", ctx, userID, entity.CurrencyHKD).
			Return(decimal.RequireFromString("1000"), nil)
		m.users.On("GetUser", ctx, userID).Return(&collaborator.User{ID: userID, State: collaborator.UserStateActive}, nil)
		m.timeProvider.On("Now").Return(now)
		m.txRepo.On("Create", ctx, mock.AnythingOfType("*entity.Transaction")).Return(nil)
		m.rail.On("Initiate", ctx, mock.AnythingOfType("*entity.Transaction"), "acct_1").
			Return("", provider.NewTransient(entity.ProviderProcessor, "request timed out", assert.AnError))

		tx, err := svc.InitiatePayout(ctx, userID, amount)

		require.NoError(t, err)
		assert.Equal(t, entity.StatePending, tx.State)
		assert.Nil(t, tx.ProviderTxID)
		m.txRepo.AssertNotCalled(t, "MarkState", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestConnectAccount(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	userID := uint64(7)

	t.Run("Archived user is rejected", func(t *testing.T) {
		svc, m := newPayoutService(t)
		m.users.On("GetUser", ctx, userID).Return(&collaborator.User{
			ID: userID, State: collaborator.UserStateArchived,
		}, nil)

		_, err := svc.ConnectAccount(ctx, userID, "HK")

		assert.ErrorIs(t, err, errs.ErrUserArchived)
	})

	t.Run("Existing capable account blocks reconnection", func(t *testing.T) {
		svc, m := newPayoutService(t)
		m.users.On("GetUser", ctx, userID).Return(&collaborator.User{ID: userID, State: collaborator.UserStateActive}, nil)
		m.accounts.On("GetActiveByUser", ctx, userID, entity.ProviderProcessor).Return(activeAccount(userID), nil)

		_, err := svc.ConnectAccount(ctx, userID, "HK")

		assert.ErrorIs(t, err, errs.ErrPayoutAccountExists)
	})

	t.Run("Balance below minimum blocks onboarding", func(t *testing.T) {
		svc, m := newPayoutService(t)
		m.users.On("GetUser", ctx, userID).Return(&collaborator.User{ID: userID, State: collaborator.UserStateActive}, nil)
		m.accounts.On("GetActiveByUser", ctx, userID, entity.ProviderProcessor).
			Return(nil, errs.ErrPayoutAccountNotFound)
		m.txRepo.On("SumBalance", ctx, userID, entity.CurrencyHKD).
			Return(decimal.RequireFromString("100"), nil)

		_, err := svc.ConnectAccount(ctx, userID, "HK")

		assert.ErrorIs(t, err, errs.ErrInsufficientBalance)
		m.onboarder.AssertNotCalled(t, "CreatePayoutDestination", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Onboarding archives the prior account atomically", func(t *testing.T) {
		svc, m := newPayoutService(t)
		m.users.On("GetUser", ctx, userID).Return(&collaborator.User{ID: userID, State: collaborator.UserStateActive}, nil)

		// A prior account exists but never became capable; it gets replaced.
		incapable := activeAccount(userID)
		incapable.CapabilitiesTransfers = false
		m.accounts.On("GetActiveByUser", ctx, userID, entity.ProviderProcessor).Return(incapable, nil)

		m.txRepo.On("SumBalance", ctx, userID, entity.CurrencyHKD).
			Return(decimal.RequireFromString("1000"), nil)
		m.onboarder.On("CreatePayoutDestination", ctx, userID, "HK").Return(&provider.PayoutDestination{
			AccountID:     "acct_2",
			OnboardingURL: "https://onboarding.example/acct_2",
		}, nil)
		m.timeProvider.On("Now").Return(now)

		txCtx := context.WithValue(ctx, struct{ k string }{"tx"}, "tx")
		txAccounts := mpers.NewMockPayoutAccountRepository(t)
		m.uow.On("Begin", ctx).Return(txCtx, nil)
		m.uow.On("GetPayoutAccountRepository", txCtx).Return(txAccounts)
		txAccounts.On("ArchiveAllForUser", txCtx, userID, entity.ProviderProcessor).Return(nil)
		txAccounts.On("Create", txCtx, mock.AnythingOfType("*entity.PayoutAccount")).Return(nil)
		m.uow.On("Commit", txCtx).Return(nil)

		result, err := svc.ConnectAccount(ctx, userID, "HK")

		require.NoError(t, err)
		assert.Equal(t, "acct_2", result.Account.AccountID)
		assert.Equal(t, "https://onboarding.example/acct_2", result.OnboardingURL)
		assert.False(t, result.Account.CapabilitiesTransfers)
	})

	t.Run("Failed insert rolls the unit of work back", func(t *testing.T) {
		svc, m := newPayoutService(t)
		m.users.On("GetUser", ctx, userID).Return(&collaborator.User{ID: userID, State: collaborator.UserStateActive}, nil)
		m.accounts.On("GetActiveByUser", ctx, userID, entity.ProviderProcessor).
			Return(nil, errs.ErrPayoutAccountNotFound)
		m.txRepo.On("SumBalance", ctx, userID, entity.CurrencyHKD).
			Return(decimal.RequireFromString("1000"), nil)
		m.onboarder.On("CreatePayoutDestination", ctx, userID, "HK").Return(&provider.PayoutDestination{
			AccountID: "acct_2",
		}, nil)
		m.timeProvider.On("Now").Return(now)

		txCtx := context.WithValue(ctx, struct{ k string }{"tx"}, "tx")
		txAccounts := mpers.NewMockPayoutAccountRepository(t)
		m.uow.On("Begin", ctx).Return(txCtx, nil)
		m.uow.On("GetPayoutAccountRepository", txCtx).Return(txAccounts)
		txAccounts.On("ArchiveAllForUser", txCtx, userID, entity.ProviderProcessor).Return(nil)
		txAccounts.On("Create", txCtx, mock.AnythingOfType("*entity.PayoutAccount")).
			Return(errs.ErrConstraintViolation)
		m.uow.On("Rollback", txCtx).Return(nil)

		_, err := svc.ConnectAccount(ctx, userID, "HK")

		assert.ErrorIs(t, err, errs.ErrConstraintViolation)
		m.uow.AssertNotCalled(t, "Commit", mock.Anything)
	})
}

func TestCancelPayout(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	userID := uint64(7)

	t.Run("Dispatched payout cannot be canceled", func(t *testing.T) {
		svc, m := newPayoutService(t)
		ref := "po_1"
		sender := userID
		tx := &entity.Transaction{ID: uuid.New(), SenderID: &sender, Purpose: entity.PurposePayout, ProviderTxID: &ref, State: entity.StatePending}
		m.txRepo.On("GetByID", ctx, tx.ID).Return(tx, nil)

		err := svc.CancelPayout(ctx, userID, tx.ID)

		assert.ErrorIs(t, err, errs.ErrInvalidStateTransition)
	})

	t.Run("Another user's payout is invisible", func(t *testing.T) {
		svc, m := newPayoutService(t)
		sender := uint64(99)
		tx := &entity.Transaction{ID: uuid.New(), SenderID: &sender, Purpose: entity.PurposePayout, State: entity.StatePending}
		m.txRepo.On("GetByID", ctx, tx.ID).Return(tx, nil)

		err := svc.CancelPayout(ctx, userID, tx.ID)

		assert.ErrorIs(t, err, errs.ErrTransactionNotFound)
	})

	t.Run("Undispatched payout cancels through the state machine", func(t *testing.T) {
		svc, m := newPayoutService(t)
		sender := userID
		tx := &entity.Transaction{
			ID:       uuid.New(),
			SenderID: &sender,
			Purpose:  entity.PurposePayout,
			Provider: entity.ProviderProcessor,
			Currency: entity.CurrencyHKD,
			Amount:   decimal.RequireFromString("800"),
			State:    entity.StatePending,
		}
		m.txRepo.On("GetByID", ctx, tx.ID).Return(tx, nil)
		m.timeProvider.On("Now").Return(now)
		m.txRepo.On("MarkState", ctx, tx.ID, entity.StateCanceled, "canceled by user", now).Return(true, nil)

		err := svc.CancelPayout(ctx, userID, tx.ID)

		require.NoError(t, err)
	})
}
