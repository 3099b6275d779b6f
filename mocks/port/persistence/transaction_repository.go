package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
	"github.com/thematters/settlement-ledger/internal/domain/port/persistence"
)

// MockTransactionRepository is a mock implementation of persistence.TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

// NewMockTransactionRepository creates a mock wired into the test lifecycle
func NewMockTransactionRepository(t *testing.T) *MockTransactionRepository {
	m := &MockTransactionRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTransactionRepository) Create(ctx context.Context, transaction *entity.Transaction) error {
	args := m.Called(ctx, transaction)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByProviderTxID(ctx context.Context, provider entity.TransactionProvider, providerTxID string) (*entity.Transaction, error) {
	args := m.Called(ctx, provider, providerTxID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) SetProviderTxID(ctx context.Context, id uuid.UUID, providerTxID string) error {
	args := m.Called(ctx, id, providerTxID)
	return args.Error(0)
}

func (m *MockTransactionRepository) MarkState(ctx context.Context, id uuid.UUID, newState entity.TransactionState, remark string, updatedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, newState, remark, updatedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) SumBalance(ctx context.Context, userID uint64, currency entity.Currency) (decimal.Decimal, error) {
	args := m.Called(ctx, userID, currency)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockTransactionRepository) CountPendingPayouts(ctx context.Context, userID uint64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) ListPendingOlderThan(ctx context.Context, provider entity.TransactionProvider, cutoff time.Time, limit int) ([]*entity.Transaction, error) {
	args := m.Called(ctx, provider, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) TallySucceededBySender(ctx context.Context, purpose entity.TransactionPurpose, minCount int64) ([]persistence.SenderTally, error) {
	args := m.Called(ctx, purpose, minCount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]persistence.SenderTally), args.Error(1)
}
