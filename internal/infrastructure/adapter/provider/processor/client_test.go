package processor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
	"github.com/thematters/settlement-ledger/internal/infrastructure/adapter/logger"
)

func TestClientRetriesTransientResponses(t *testing.T) {
	t.Run("5xx is retried and the retry succeeds", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if attempts.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"po_1","status":"paid"}`))
		}))
		defer server.Close()

		client := NewClient(Config{
			BaseURL: server.URL,
			APIKey:  "sk_test",
			Timeout: 5 * time.Second,
		}, logger.NewNoopLogger())

		state, err := client.CheckStatus(context.Background(), "po_1")

		require.NoError(t, err)
		assert.Equal(t, entity.StateSucceeded, state)
		assert.Equal(t, int32(2), attempts.Load())
	})

	t.Run("Rate limiting is retried", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if attempts.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"po_1","status":"pending"}`))
		}))
		defer server.Close()

		client := NewClient(Config{
			BaseURL: server.URL,
			APIKey:  "sk_test",
			Timeout: 5 * time.Second,
		}, logger.NewNoopLogger())

		state, err := client.CheckStatus(context.Background(), "po_1")

		require.NoError(t, err)
		assert.Equal(t, entity.StatePending, state)
		assert.Equal(t, int32(2), attempts.Load())
	})
}
