package collaborator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/thematters/settlement-ledger/internal/domain/port/collaborator"
)

// MockUserService is a mock implementation of collaborator.UserService
type MockUserService struct {
	mock.Mock
}

// NewMockUserService creates a mock wired into the test lifecycle
func NewMockUserService(t *testing.T) *MockUserService {
	m := &MockUserService{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockUserService) GetUser(ctx context.Context, id uint64) (*collaborator.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*collaborator.User), args.Error(1)
}

func (m *MockUserService) GetUserByWalletAddress(ctx context.Context, address string) (*collaborator.User, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*collaborator.User), args.Error(1)
}
