package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
)

// MockPaymentRail is a mock implementation of provider.PaymentRail
type MockPaymentRail struct {
	mock.Mock
}

// NewMockPaymentRail creates a mock wired into the test lifecycle
func NewMockPaymentRail(t *testing.T) *MockPaymentRail {
	m := &MockPaymentRail{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPaymentRail) Initiate(ctx context.Context, transaction *entity.Transaction, destination string) (string, error) {
	args := m.Called(ctx, transaction, destination)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentRail) Cancel(ctx context.Context, providerRef string) error {
	args := m.Called(ctx, providerRef)
	return args.Error(0)
}
