package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
)

// MockSavepointRepository is a mock implementation of persistence.SavepointRepository
type MockSavepointRepository struct {
	mock.Mock
}

// NewMockSavepointRepository creates a mock wired into the test lifecycle
func NewMockSavepointRepository(t *testing.T) *MockSavepointRepository {
	m := &MockSavepointRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSavepointRepository) GetOrCreate(ctx context.Context, chain entity.Chain, initialBlock uint64) (*entity.Savepoint, error) {
	args := m.Called(ctx, chain, initialBlock)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Savepoint), args.Error(1)
}

func (m *MockSavepointRepository) Advance(ctx context.Context, chain entity.Chain, block uint64) error {
	args := m.Called(ctx, chain, block)
	return args.Error(0)
}
