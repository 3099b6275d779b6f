package internaltx

import (
	"context"

	"github.com/google/uuid"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
	"github.com/thematters/settlement-ledger/internal/domain/port/provider"
)

// Rail is the internal provider: value moves only between ledger rows, so
// there is no external system to wait for. Initiate succeeds immediately.
type Rail struct{}

// NewRail creates the internal rail
func NewRail() *Rail {
	return &Rail{}
}

// Initiate assigns a synthetic reference; internal moves settle in the same
// write that creates them
func (r *Rail) Initiate(ctx context.Context, transaction *entity.Transaction, destination string) (string, error) {
	return "internal-" + uuid.NewString(), nil
}

// Cancel always rejects. An internal transaction is never in flight, there
// is nothing to cancel.
func (r *Rail) Cancel(ctx context.Context, providerRef string) error {
	return provider.NewRejected(entity.ProviderInternal, "not_cancelable", "internal transactions settle immediately")
}
