package entity

import (
	"time"

	errs "github.com/thematters/settlement-ledger/internal/domain/error"
	tport "github.com/thematters/settlement-ledger/internal/domain/port/core"
)

// PayoutAccountType distinguishes processor onboarding flavors
type PayoutAccountType string

// Payout account types
const (
	PayoutAccountExpress  PayoutAccountType = "express"
	PayoutAccountStandard PayoutAccountType = "standard"
)

// PayoutAccount is a user's registered external payout destination.
// At most one non-archived account exists per user per provider; replacing an
// account archives the prior one, never deletes it.
type PayoutAccount struct {
	ID                    uint64
	UserID                uint64
	AccountID             string // provider-assigned identifier
	Provider              TransactionProvider
	Country               string
	Currency              Currency
	Type                  PayoutAccountType
	CapabilitiesTransfers bool
	Archived              bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NewPayoutAccount creates a payout account pending capability confirmation.
// Transfers stay disabled until the provider's onboarding webhook confirms
// the account can receive funds.
func NewPayoutAccount(
	userID uint64,
	accountID string,
	provider TransactionProvider,
	country string,
	currency Currency,
	accountType PayoutAccountType,
	timeProvider tport.TimeProvider,
) (*PayoutAccount, error) {
	if userID == 0 {
		return nil, errs.ErrUserNotFound
	}
	if accountID == "" {
		return nil, errs.ErrPayoutAccountNotFound
	}
	if !IsValidProvider(string(provider)) {
		return nil, errs.ErrInvalidProvider
	}
	if !IsValidCurrency(string(currency)) {
		return nil, errs.ErrInvalidCurrency
	}

	now := timeProvider.Now()
	return &PayoutAccount{
		UserID:                userID,
		AccountID:             accountID,
		Provider:              provider,
		Country:               country,
		Currency:              currency,
		Type:                  accountType,
		CapabilitiesTransfers: false,
		Archived:              false,
		CreatedAt:             now,
		UpdatedAt:             now,
	}, nil
}

// IsActive reports whether the account can currently be paid out to
func (a *PayoutAccount) IsActive() bool {
	return !a.Archived && a.CapabilitiesTransfers
}
