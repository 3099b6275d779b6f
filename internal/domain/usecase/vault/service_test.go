package vault

import (
	"context"
	"testing"
	"time"

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

type vaultMocks struct {
	txRepo       *mpers.MockTransactionRepository
	users        *mcoll.MockUserService
	notifier     *mcoll.MockNotifier
	alerter      *mcoll.MockAlerter
	rail         *mprov.MockPaymentRail
	timeProvider *mcore.MockTimeProvider
}

func newVaultService(t *testing.T) (*Service, *vaultMocks) {
	m := &vaultMocks{
		txRepo:       mpers.NewMockTransactionRepository(t),
		users:        mcoll.NewMockUserService(t),
		notifier:     mcoll.NewMockNotifier(t),
		alerter:      mcoll.NewMockAlerter(t),
		rail:         mprov.NewMockPaymentRail(t),
		timeProvider: mcore.NewMockTimeProvider(t),
	}
	noop := logger.NewNoopLogger()
	ledgerSvc := ledger.NewService(m.txRepo, m.users, m.notifier, m.alerter, m.timeProvider, noop)
	rails := provider.NewRegistry()
	rails.Register(entity.ProviderBlockchain, m.rail)
	return NewService(ledgerSvc, m.users, rails, m.timeProvider, noop), m
}

func TestWithdrawFromVault(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	userID := uint64(7)
	wallet := "0x00000000000000000000000000000000000000aa"
	amount := decimal.RequireFromString("12.5")

	holder := &collaborator.User{ID: userID, State: collaborator.UserStateActive, WalletAddress: &wallet}

	t.Run("Archived user is rejected", func(t *testing.T) {
		svc, m := newVaultService(t)
		m.users.On("GetUser", ctx, userID).Return(&collaborator.User{
			ID: userID, State: collaborator.UserStateArchived, WalletAddress: &wallet,
		}, nil)

		_, err := svc.WithdrawFromVault(ctx, userID, amount)

		assert.ErrorIs(t, err, errs.ErrUserArchived)
	})

	t.Run("Missing wallet address is rejected", func(t *testing.T) {
		svc, m := newVaultService(t)
		m.users.On("GetUser", ctx, userID).Return(&collaborator.User{
			ID: userID, State: collaborator.UserStateActive,
		}, nil)

		_, err := svc.WithdrawFromVault(ctx, userID, amount)

		assert.ErrorIs(t, err, errs.ErrInvalidParticipants)
	})

	t.Run("Submitted withdrawal records the transaction hash", func(t *testing.T) {
		svc, m := newVaultService(t)
		// GetUser is called once for the wallet lookup and again when the
		// ledger validates the recipient.
		m.users.On("GetUser", ctx, userID).Return(holder, nil)
		m.timeProvider.On("Now").Return(now)
		m.txRepo.On("Create", ctx, mock.AnythingOfType("*entity.Transaction")).Return(nil)
		m.rail.On("Initiate", ctx, mock.AnythingOfType("*entity.Transaction"), wallet).
			Return("0xhash", nil)
		m.txRepo.On("SetProviderTxID", ctx, mock.Anything, "0xhash").Return(nil)

		tx, err := svc.WithdrawFromVault(ctx, userID, amount)

		require.NoError(t, err)
		assert.Equal(t, entity.PurposeCurationVaultWithdrawal, tx.Purpose)
		assert.Equal(t, entity.ProviderBlockchain, tx.Provider)
		assert.Equal(t, entity.CurrencyUSDT, tx.Currency)
		assert.Equal(t, entity.StatePending, tx.State)
		assert.Nil(t, tx.SenderID)
		assert.Equal(t, userID, *tx.RecipientID)
		require.NotNil(t, tx.ProviderTxID)
		assert.Equal(t, "0xhash", *tx.ProviderTxID)
	})

	t.Run("Rejected submission fails the withdrawal", func(t *testing.T) {
		svc, m := newVaultService(t)
		m.users.On("GetUser", ctx, userID).Return(holder, nil)
		m.timeProvider.On("Now").Return(now)
		m.txRepo.On("Create", ctx, mock.AnythingOfType("*entity.Transaction")).Return(nil)
		m.rail.On("Initiate", ctx, mock.AnythingOfType("*entity.Transaction"), wallet).
			Return("", provider.NewRejected(entity.ProviderBlockchain, "invalid_address", "bad destination"))
		m.txRepo.On("GetByID", ctx, mock.Anything).Return(&entity.Transaction{
			RecipientID: &userID,
			Purpose:     entity.PurposeCurationVaultWithdrawal,
			Provider:    entity.ProviderBlockchain,
			Currency:    entity.CurrencyUSDT,
			Amount:      amount,
			State:       entity.StatePending,
		}, nil)
		m.txRepo.On("MarkState", ctx, mock.Anything, entity.StateFailed, mock.Anything, now).Return(true, nil)

		tx, err := svc.WithdrawFromVault(ctx, userID, amount)

		assert.True(t, provider.IsRejected(err))
		require.NotNil(t, tx)
	})

	t.Run("Unconfirmed submission stays pending for reconciliation", func(t *testing.T) {
		svc, m := newVaultService(t)
		m.users.On("GetUser", ctx, userID).Return(holder, nil)
		m.timeProvider.On("Now").Return(now)
		m.txRepo.On("Create", ctx, mock.AnythingOfType("*entity.Transaction")).Return(nil)
		m.rail.On("Initiate", ctx, mock.AnythingOfType("*entity.Transaction"), wallet).
			Return("", provider.NewTransient(entity.ProviderBlockchain, "rpc timeout", assert.AnError))

		tx, err := svc.WithdrawFromVault(ctx, userID, amount)

		require.NoError(t, err)
		assert.Equal(t, entity.StatePending, tx.State)
		assert.Nil(t, tx.ProviderTxID)
		m.txRepo.AssertNotCalled(t, "MarkState", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
