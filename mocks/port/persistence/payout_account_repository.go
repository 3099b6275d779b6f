package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
)

// MockPayoutAccountRepository is a mock implementation of persistence.PayoutAccountRepository
type MockPayoutAccountRepository struct {
	mock.Mock
}

// NewMockPayoutAccountRepository creates a mock wired into the test lifecycle
func NewMockPayoutAccountRepository(t *testing.T) *MockPayoutAccountRepository {
	m := &MockPayoutAccountRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPayoutAccountRepository) Create(ctx context.Context, account *entity.PayoutAccount) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockPayoutAccountRepository) GetActiveByUser(ctx context.Context, userID uint64, provider entity.TransactionProvider) (*entity.PayoutAccount, error) {
	args := m.Called(ctx, userID, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PayoutAccount), args.Error(1)
}

func (m *MockPayoutAccountRepository) GetByAccountID(ctx context.Context, accountID string) (*entity.PayoutAccount, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PayoutAccount), args.Error(1)
}

func (m *MockPayoutAccountRepository) MarkCapable(ctx context.Context, accountID string) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *MockPayoutAccountRepository) ArchiveAllForUser(ctx context.Context, userID uint64, provider entity.TransactionProvider) error {
	args := m.Called(ctx, userID, provider)
	return args.Error(0)
}
