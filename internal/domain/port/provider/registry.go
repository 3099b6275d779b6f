package provider

import (
	"fmt"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
	errs "github.com/thematters/settlement-ledger/internal/domain/error"
)

// Registry holds the closed set of payment rails, selected by the provider
// field on the transaction. Adding a rail means registering one more adapter,
// nothing else changes.
type Registry struct {
	rails map[entity.TransactionProvider]PaymentRail
}

// NewRegistry creates an empty rail registry
func NewRegistry() *Registry {
	return &Registry{
		rails: make(map[entity.TransactionProvider]PaymentRail),
	}
}

// Register adds a rail for the given provider, replacing any prior entry
func (r *Registry) Register(p entity.TransactionProvider, rail PaymentRail) {
	r.rails[p] = rail
}

// Get returns the rail for the given provider
func (r *Registry) Get(p entity.TransactionProvider) (PaymentRail, error) {
	rail, ok := r.rails[p]
	if !ok {
		return nil, fmt.Errorf("%w: no rail registered for %s", errs.ErrInvalidProvider, p)
	}
	return rail, nil
}
