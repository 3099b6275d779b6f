package provider

import (
	"context"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
)

// PaymentRail is the minimal capability surface every payment provider
// adapter exposes. Adapters translate a generic move-money intent into
// provider calls and normalize responses into provider.Error values.
type PaymentRail interface {
	// Initiate dispatches the money movement described by the transaction to
	// the provider-side destination (a processor account id, a wallet
	// address) and returns the provider's reference for it. A Transient
	// error leaves the transaction pending for later reconciliation; a
	// Rejected error is permanent.
	Initiate(ctx context.Context, transaction *entity.Transaction, destination string) (providerRef string, err error)

	// Cancel is best-effort; rails that cannot cancel return a Rejected error
	Cancel(ctx context.Context, providerRef string) error
}

// PayoutDestination is the result of onboarding a user onto the processor
type PayoutDestination struct {
	AccountID     string
	OnboardingURL string
}

// PayoutOnboarder is the extra capability of the card-processor rail,
// consumed by the payout account manager
type PayoutOnboarder interface {
	CreatePayoutDestination(ctx context.Context, userID uint64, country string) (*PayoutDestination, error)
}

// StatusChecker lets the reconciliation sweep query the authoritative state
// of a dispatched transaction
type StatusChecker interface {
	// CheckStatus returns the provider's current view of the transaction.
	// StatePending means the provider is still working on it.
	CheckStatus(ctx context.Context, providerRef string) (entity.TransactionState, error)
}
