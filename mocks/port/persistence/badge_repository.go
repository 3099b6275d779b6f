package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
)

// MockBadgeRepository is a mock implementation of persistence.BadgeRepository
type MockBadgeRepository struct {
	mock.Mock
}

// NewMockBadgeRepository creates a mock wired into the test lifecycle
func NewMockBadgeRepository(t *testing.T) *MockBadgeRepository {
	m := &MockBadgeRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockBadgeRepository) ListUserIDs(ctx context.Context, badgeType entity.BadgeType) ([]uint64, error) {
	args := m.Called(ctx, badgeType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uint64), args.Error(1)
}

func (m *MockBadgeRepository) UpsertIgnore(ctx context.Context, badges []entity.Badge) error {
	args := m.Called(ctx, badges)
	return args.Error(0)
}
