package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockUserLockRepository is a mock implementation of persistence.UserLockRepository
type MockUserLockRepository struct {
	mock.Mock
}

// NewMockUserLockRepository creates a mock wired into the test lifecycle
func NewMockUserLockRepository(t *testing.T) *MockUserLockRepository {
	m := &MockUserLockRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockUserLockRepository) AcquireLock(ctx context.Context, userID uint64, duration time.Duration) error {
	args := m.Called(ctx, userID, duration)
	return args.Error(0)
}

func (m *MockUserLockRepository) ReleaseLock(ctx context.Context, userID uint64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}
