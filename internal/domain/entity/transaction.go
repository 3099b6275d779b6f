package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	errs "github.com/thematters/settlement-ledger/internal/domain/error"
	tport "github.com/thematters/settlement-ledger/internal/domain/port/core"
)

// TransactionState represents the lifecycle state of a transaction
type TransactionState string

// Transaction states. Succeeded, failed and canceled are terminal:
// no transition ever leaves them.
const (
	StatePending   TransactionState = "pending"
	StateSucceeded TransactionState = "succeeded"
	StateFailed    TransactionState = "failed"
	StateCanceled  TransactionState = "canceled"
)

// TransactionPurpose classifies why value moved
type TransactionPurpose string

// Transaction purposes
const (
	PurposeDonation                TransactionPurpose = "donation"
	PurposeAddCredit               TransactionPurpose = "addCredit"
	PurposeRefund                  TransactionPurpose = "refund"
	PurposePayout                  TransactionPurpose = "payout"
	PurposePayoutReversal          TransactionPurpose = "payoutReversal"
	PurposeSubscriptionSplit       TransactionPurpose = "subscriptionSplit"
	PurposeCurationVaultWithdrawal TransactionPurpose = "curationVaultWithdrawal"
	PurposeSystemSubsidy           TransactionPurpose = "systemSubsidy"
)

// TransactionProvider identifies the rail that actually moves the money
type TransactionProvider string

// Payment rails
const (
	ProviderInternal   TransactionProvider = "internal"
	ProviderProcessor  TransactionProvider = "processor"
	ProviderLikeNet    TransactionProvider = "likenet"
	ProviderBlockchain TransactionProvider = "blockchain"
)

// Currency identifies the single currency a transaction is denominated in.
// Conversion, if any, happens before a transaction is created.
type Currency string

// Supported currencies
const (
	CurrencyHKD  Currency = "HKD"
	CurrencyLIKE Currency = "LIKE"
	CurrencyUSDT Currency = "USDT"
)

// TargetType identifies the kind of entity a donation-like transaction points at
type TargetType string

// Target types
const (
	TargetArticle     TargetType = "article"
	TargetCirclePrice TargetType = "circlePrice"
)

// Transaction is the atomic unit of value movement and the single source of
// truth for balances. Rows are append-mostly: after creation only the state
// (and updatedAt/remark) may change, and only along the state machine.
type Transaction struct {
	ID           uuid.UUID
	ProviderTxID *string // external reference; unique per provider when set
	SenderID     *uint64 // nil: platform-originated
	RecipientID  *uint64 // nil: value leaving the platform
	Purpose      TransactionPurpose
	Provider     TransactionProvider
	Currency     Currency
	Amount       decimal.Decimal
	Fee          decimal.Decimal
	TargetID     *uint64
	TargetType   *TargetType
	State        TransactionState
	Remark       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TransactionSpec describes a transaction to be created
type TransactionSpec struct {
	ProviderTxID *string
	SenderID     *uint64
	RecipientID  *uint64
	Purpose      TransactionPurpose
	Provider     TransactionProvider
	Currency     Currency
	Amount       decimal.Decimal
	Fee          decimal.Decimal
	TargetID     *uint64
	TargetType   *TargetType
	// State lets synchronous rails create immediately-terminal rows
	// (e.g. internal transfers, confirmed chain events). Empty means pending.
	State  TransactionState
	Remark string
}

// NewTransaction builds a transaction from a spec, enforcing amount, fee,
// enum and participant invariants. The row starts pending unless the spec
// declares an immediately-terminal state.
func NewTransaction(spec TransactionSpec, timeProvider tport.TimeProvider) (*Transaction, error) {
	if !spec.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive, got %s", errs.ErrInvalidAmount, spec.Amount)
	}
	if spec.Fee.IsNegative() || spec.Fee.GreaterThan(spec.Amount) {
		return nil, fmt.Errorf("%w: fee %s, amount %s", errs.ErrInvalidFee, spec.Fee, spec.Amount)
	}
	if !IsValidPurpose(string(spec.Purpose)) {
		return nil, fmt.Errorf("%w: %s", errs.ErrInvalidPurpose, spec.Purpose)
	}
	if !IsValidProvider(string(spec.Provider)) {
		return nil, fmt.Errorf("%w: %s", errs.ErrInvalidProvider, spec.Provider)
	}
	if !IsValidCurrency(string(spec.Currency)) {
		return nil, fmt.Errorf("%w: %s", errs.ErrInvalidCurrency, spec.Currency)
	}
	if err := validateParticipants(spec.Purpose, spec.SenderID, spec.RecipientID); err != nil {
		return nil, err
	}

	state := spec.State
	if state == "" {
		state = StatePending
	}
	if !IsValidState(string(state)) {
		return nil, fmt.Errorf("%w: %s", errs.ErrInvalidState, state)
	}

	now := timeProvider.Now()
	return &Transaction{
		ID:           uuid.New(),
		ProviderTxID: spec.ProviderTxID,
		SenderID:     spec.SenderID,
		RecipientID:  spec.RecipientID,
		Purpose:      spec.Purpose,
		Provider:     spec.Provider,
		Currency:     spec.Currency,
		Amount:       spec.Amount,
		Fee:          spec.Fee,
		TargetID:     spec.TargetID,
		TargetType:   spec.TargetType,
		State:        state,
		Remark:       spec.Remark,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// validateParticipants enforces the party rules per purpose. At most one of
// sender/recipient may be absent, and only for purposes that model
// platform-to-user or user-to-platform flows.
func validateParticipants(purpose TransactionPurpose, senderID, recipientID *uint64) error {
	if senderID == nil && recipientID == nil {
		return fmt.Errorf("%w: sender and recipient cannot both be absent", errs.ErrInvalidParticipants)
	}

	switch purpose {
	case PurposeDonation, PurposeSubscriptionSplit:
		if senderID == nil || recipientID == nil {
			return fmt.Errorf("%w: %s requires both sender and recipient", errs.ErrInvalidParticipants, purpose)
		}
	case PurposeRefund:
		// A refund mirrors its original with the parties swapped, so either
		// side may be the platform; the both-absent case is already rejected.
	case PurposeAddCredit, PurposePayoutReversal,
		PurposeCurationVaultWithdrawal, PurposeSystemSubsidy:
		// Platform-to-user: value arrives from outside the ledger.
		if recipientID == nil {
			return fmt.Errorf("%w: %s requires a recipient", errs.ErrInvalidParticipants, purpose)
		}
		if senderID != nil {
			return fmt.Errorf("%w: %s must not have a sender", errs.ErrInvalidParticipants, purpose)
		}
	case PurposePayout:
		// User-to-platform: value leaves for an external destination.
		if senderID == nil {
			return fmt.Errorf("%w: payout requires a sender", errs.ErrInvalidParticipants)
		}
		if recipientID != nil {
			return fmt.Errorf("%w: payout must not have a recipient", errs.ErrInvalidParticipants)
		}
	}
	return nil
}

// IsTerminal reports whether the transaction has reached a final state
func (t *Transaction) IsTerminal() bool {
	return IsTerminalState(t.State)
}

// CanTransitionTo reports whether the state machine allows moving to newState.
// Re-applying the current terminal state is not a transition; callers treat
// that case as an idempotent no-op via IsSameTerminal.
func (t *Transaction) CanTransitionTo(newState TransactionState) bool {
	if t.State != StatePending {
		return false
	}
	switch newState {
	case StateSucceeded, StateFailed, StateCanceled:
		return true
	default:
		return false
	}
}

// IsSameTerminal reports whether newState merely repeats the terminal state
// the transaction is already in
func (t *Transaction) IsSameTerminal(newState TransactionState) bool {
	return t.IsTerminal() && t.State == newState
}

// NetAmount returns the amount minus fee, the value the recipient actually receives
func (t *Transaction) NetAmount() decimal.Decimal {
	return t.Amount.Sub(t.Fee)
}

// IsTerminalState reports whether the given state is final
func IsTerminalState(state TransactionState) bool {
	return state == StateSucceeded || state == StateFailed || state == StateCanceled
}

// IsValidState validates if the state is allowed
func IsValidState(state string) bool {
	switch TransactionState(state) {
	case StatePending, StateSucceeded, StateFailed, StateCanceled:
		return true
	}
	return false
}

// IsValidPurpose validates if the purpose is allowed
func IsValidPurpose(purpose string) bool {
	switch TransactionPurpose(purpose) {
	case PurposeDonation, PurposeAddCredit, PurposeRefund, PurposePayout,
		PurposePayoutReversal, PurposeSubscriptionSplit,
		PurposeCurationVaultWithdrawal, PurposeSystemSubsidy:
		return true
	}
	return false
}

// IsValidProvider validates if the provider is one of the known rails
func IsValidProvider(provider string) bool {
	switch TransactionProvider(provider) {
	case ProviderInternal, ProviderProcessor, ProviderLikeNet, ProviderBlockchain:
		return true
	}
	return false
}

// IsValidCurrency validates if the currency is supported
func IsValidCurrency(currency string) bool {
	switch Currency(currency) {
	case CurrencyHKD, CurrencyLIKE, CurrencyUSDT:
		return true
	}
	return false
}
