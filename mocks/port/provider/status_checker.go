package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
)

// MockStatusChecker is a mock implementation of provider.StatusChecker
type MockStatusChecker struct {
	mock.Mock
}

// NewMockStatusChecker creates a mock wired into the test lifecycle
func NewMockStatusChecker(t *testing.T) *MockStatusChecker {
	m := &MockStatusChecker{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockStatusChecker) CheckStatus(ctx context.Context, providerRef string) (entity.TransactionState, error) {
	args := m.Called(ctx, providerRef)
	return args.Get(0).(entity.TransactionState), args.Error(1)
}
