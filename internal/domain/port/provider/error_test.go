package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
	errs "github.com/thematters/settlement-ledger/internal/domain/error"
)

func TestErrorClassification(t *testing.T) {
	t.Run("Transient", func(t *testing.T) {
		err := NewTransient(entity.ProviderProcessor, "request timed out", errors.New("dial tcp: timeout"))

		assert.True(t, IsTransient(err))
		assert.False(t, IsRejected(err))
		assert.Equal(t, KindTransient, KindOf(err))
	})

	t.Run("Rejected", func(t *testing.T) {
		err := NewRejected(entity.ProviderProcessor, "account_invalid", "destination rejected")

		assert.True(t, IsRejected(err))
		assert.False(t, IsTransient(err))
		assert.Contains(t, err.Error(), "rejected")
		assert.Contains(t, err.Error(), "processor")
	})

	t.Run("Classification survives wrapping", func(t *testing.T) {
		inner := NewTransient(entity.ProviderLikeNet, "rate limited", nil)
		wrapped := fmt.Errorf("dispatch failed: %w", inner)

		assert.True(t, IsTransient(wrapped))
	})

	t.Run("Foreign errors are unknown", func(t *testing.T) {
		assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
		assert.Equal(t, KindUnknown, KindOf(nil))
		assert.False(t, IsTransient(errors.New("boom")))
		assert.False(t, IsRejected(errors.New("boom")))
	})

	t.Run("Unwrap exposes the cause", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := NewTransient(entity.ProviderBlockchain, "rpc failed", cause)

		assert.ErrorIs(t, err, cause)
	})

	t.Run("LogFields includes the provider code", func(t *testing.T) {
		err := NewRejected(entity.ProviderProcessor, "account_invalid", "destination rejected")

		fields := err.LogFields()
		assert.Equal(t, "provider_error", fields["error_type"])
		assert.Equal(t, "account_invalid", fields["provider_code"])
		assert.Equal(t, "rejected", fields["kind"])
	})
}

func TestRegistry(t *testing.T) {
	t.Run("Unregistered provider errors", func(t *testing.T) {
		registry := NewRegistry()

		_, err := registry.Get(entity.ProviderProcessor)

		assert.ErrorIs(t, err, errs.ErrInvalidProvider)
	})

	t.Run("Registered rail is returned", func(t *testing.T) {
		registry := NewRegistry()
		rail := railStub{}
		registry.Register(entity.ProviderInternal, rail)

		got, err := registry.Get(entity.ProviderInternal)

		assert.NoError(t, err)
		assert.Equal(t, rail, got)
	})
}

type railStub struct{}

func (railStub) Initiate(_ context.Context, _ *entity.Transaction, _ string) (string, error) {
	return "", nil
}

func (railStub) Cancel(_ context.Context, _ string) error { return nil }
