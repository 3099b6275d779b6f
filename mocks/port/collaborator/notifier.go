package collaborator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/thematters/settlement-ledger/internal/domain/port/collaborator"
)

// MockNotifier is a mock implementation of collaborator.Notifier
type MockNotifier struct {
	mock.Mock
}

// NewMockNotifier creates a mock wired into the test lifecycle
func NewMockNotifier(t *testing.T) *MockNotifier {
	m := &MockNotifier{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockNotifier) Notify(ctx context.Context, event collaborator.NotificationEvent, recipientID uint64, payload map[string]any) error {
	args := m.Called(ctx, event, recipientID, payload)
	return args.Error(0)
}

// MockAlerter is a mock implementation of collaborator.Alerter
type MockAlerter struct {
	mock.Mock
}

// NewMockAlerter creates a mock wired into the test lifecycle
func NewMockAlerter(t *testing.T) *MockAlerter {
	m := &MockAlerter{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAlerter) SendAlert(ctx context.Context, title, message string, severity collaborator.AlertSeverity) error {
	args := m.Called(ctx, title, message, severity)
	return args.Error(0)
}
