package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/thematters/settlement-ledger/internal/domain/port/provider"
)

// MockPayoutOnboarder is a mock implementation of provider.PayoutOnboarder
type MockPayoutOnboarder struct {
	mock.Mock
}

// NewMockPayoutOnboarder creates a mock wired into the test lifecycle
func NewMockPayoutOnboarder(t *testing.T) *MockPayoutOnboarder {
	m := &MockPayoutOnboarder{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPayoutOnboarder) CreatePayoutDestination(ctx context.Context, userID uint64, country string) (*provider.PayoutDestination, error) {
	args := m.Called(ctx, userID, country)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.PayoutDestination), args.Error(1)
}
