package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/thematters/settlement-ledger/internal/domain/port/provider"
)

// MockChainReader is a mock implementation of provider.ChainReader
type MockChainReader struct {
	mock.Mock
}

// NewMockChainReader creates a mock wired into the test lifecycle
func NewMockChainReader(t *testing.T) *MockChainReader {
	m := &MockChainReader{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockChainReader) HeadBlock(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockChainReader) FilterCurationEvents(ctx context.Context, fromBlock, toBlock uint64) ([]provider.CurationEvent, error) {
	args := m.Called(ctx, fromBlock, toBlock)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]provider.CurationEvent), args.Error(1)
}
