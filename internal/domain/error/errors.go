package error

import (
	"errors"
	"fmt"
)

// Error codes for standardized API responses
const (
	// 4xxx - Client errors
	CodeInsufficientBalance    = 4001
	CodeInvalidAmount          = 4002
	CodeInvalidParticipants    = 4003
	CodeDuplicateProviderTx    = 4004
	CodeConstraintViolation    = 4005
	CodeInvalidPurpose         = 4006
	CodeInvalidProvider        = 4007
	CodeInvalidCurrency        = 4008
	CodePayoutAccountExists    = 4009
	CodePendingPayoutExists    = 4010
	CodeTerminalStateViolation = 4011
	CodeInvalidStateTransition = 4012
	CodeInvalidSignature       = 4013
	CodeMalformedPayload       = 4014
	CodeUserNotFound           = 4040
	CodeTransactionNotFound    = 4041
	CodePayoutAccountNotFound  = 4042
	CodeUserArchived           = 4043
	CodeUserLocked             = 4230

	// 5xxx - Server errors
	CodeInternalServer = 5000
)

// Base error types
var (
	// ErrInsufficientBalance is returned when a user's spendable balance cannot cover an operation
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidAmount is returned when the transaction amount is zero, negative or malformed
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidFee is returned when the fee is negative or exceeds the amount
	ErrInvalidFee = errors.New("fee must be non-negative and not exceed amount")

	// ErrInvalidParticipants is returned when sender/recipient do not satisfy the purpose's party rules
	ErrInvalidParticipants = errors.New("invalid transaction participants")

	// ErrInvalidPurpose is returned when the purpose is not one of the known values
	ErrInvalidPurpose = errors.New("invalid transaction purpose")

	// ErrInvalidProvider is returned when the provider is not one of the known rails
	ErrInvalidProvider = errors.New("invalid payment provider")

	// ErrInvalidCurrency is returned when the currency is not supported
	ErrInvalidCurrency = errors.New("invalid currency")

	// ErrInvalidState is returned when a transaction state value is unknown
	ErrInvalidState = errors.New("invalid transaction state")

	// ErrInvalidStateTransition is returned for a transition the state machine does not allow
	ErrInvalidStateTransition = errors.New("invalid transaction state transition")

	// ErrTerminalStateViolation is returned when a write attempts to move a transaction
	// out of a terminal state into a different terminal state
	ErrTerminalStateViolation = errors.New("transaction is already in a terminal state")

	// ErrDuplicateProviderTx is returned when a (provider, providerTxId) pair already exists
	ErrDuplicateProviderTx = errors.New("transaction with this provider reference already exists")

	// ErrTransactionNotFound is returned when the requested transaction doesn't exist
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrUserNotFound is returned when a referenced user doesn't exist
	ErrUserNotFound = errors.New("user not found")

	// ErrUserArchived is returned when a referenced user account is archived
	ErrUserArchived = errors.New("user is archived")

	// ErrUserLocked is returned when a per-user operation lock is held by another request
	ErrUserLocked = errors.New("user is locked by another operation")

	// ErrPayoutAccountExists is returned when a user already has an active, transfer-capable payout account
	ErrPayoutAccountExists = errors.New("active payout account already exists")

	// ErrPayoutAccountNotFound is returned when the requested payout account doesn't exist
	ErrPayoutAccountNotFound = errors.New("payout account not found")

	// ErrPendingPayoutExists is returned when a payout is requested while another is still in flight
	ErrPendingPayoutExists = errors.New("a pending payout already exists for this user")

	// ErrSavepointRegression is returned when a savepoint write would move the cursor backwards
	ErrSavepointRegression = errors.New("savepoint may not move backwards")

	// ErrInvalidSignature is returned when a webhook payload fails signature verification
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrMalformedPayload is returned when a request or webhook body cannot be read or parsed
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrDatabaseConnection is returned when there's a problem talking to the database
	ErrDatabaseConnection = errors.New("database connection error")

	// ErrConstraintViolation is returned when a database constraint is violated
	ErrConstraintViolation = errors.New("database constraint violation")

	// ErrInternalServer is returned for unexpected server-side errors
	ErrInternalServer = errors.New("internal server error")

	// ErrNotFound is returned when a generic resource is not found
	ErrNotFound = errors.New("resource not found")
)

// ErrorCode returns standardized error codes for known errors
func ErrorCode(err error) int {
	switch {
	case errors.Is(err, ErrInsufficientBalance):
		return CodeInsufficientBalance
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidFee):
		return CodeInvalidAmount
	case errors.Is(err, ErrInvalidParticipants):
		return CodeInvalidParticipants
	case errors.Is(err, ErrInvalidPurpose):
		return CodeInvalidPurpose
	case errors.Is(err, ErrInvalidProvider):
		return CodeInvalidProvider
	case errors.Is(err, ErrInvalidCurrency):
		return CodeInvalidCurrency
	case errors.Is(err, ErrDuplicateProviderTx):
		return CodeDuplicateProviderTx
	case errors.Is(err, ErrTerminalStateViolation):
		return CodeTerminalStateViolation
	case errors.Is(err, ErrInvalidStateTransition):
		return CodeInvalidStateTransition
	case errors.Is(err, ErrPayoutAccountExists):
		return CodePayoutAccountExists
	case errors.Is(err, ErrPayoutAccountNotFound):
		return CodePayoutAccountNotFound
	case errors.Is(err, ErrPendingPayoutExists):
		return CodePendingPayoutExists
	case errors.Is(err, ErrUserNotFound):
		return CodeUserNotFound
	case errors.Is(err, ErrUserArchived):
		return CodeUserArchived
	case errors.Is(err, ErrTransactionNotFound):
		return CodeTransactionNotFound
	case errors.Is(err, ErrUserLocked):
		return CodeUserLocked
	case errors.Is(err, ErrInvalidSignature):
		return CodeInvalidSignature
	case errors.Is(err, ErrMalformedPayload):
		return CodeMalformedPayload
	case errors.Is(err, ErrConstraintViolation):
		return CodeConstraintViolation
	default:
		return CodeInternalServer
	}
}

// TerminalStateViolationError carries the detail of a rejected cross-terminal write.
// These are anomalies: an external event claimed a different outcome for a
// transaction whose outcome is already settled.
type TerminalStateViolationError struct {
	TransactionID  string
	CurrentState   string
	AttemptedState string
}

// Error implements the error interface
func (e *TerminalStateViolationError) Error() string {
	return fmt.Sprintf("transaction %s is already %s; refusing transition to %s",
		e.TransactionID, e.CurrentState, e.AttemptedState)
}

// Is checks if the target error is an ErrTerminalStateViolation
func (e *TerminalStateViolationError) Is(target error) bool {
	return target == ErrTerminalStateViolation
}

// LogFields returns a map of fields for structured logging
func (e *TerminalStateViolationError) LogFields() map[string]any {
	return map[string]any{
		"error_type":      "terminal_state_violation",
		"transaction_id":  e.TransactionID,
		"current_state":   e.CurrentState,
		"attempted_state": e.AttemptedState,
		"error_code":      CodeTerminalStateViolation,
	}
}

// NewTerminalStateViolationError creates a new detailed terminal state violation error
func NewTerminalStateViolationError(transactionID, currentState, attemptedState string) error {
	return &TerminalStateViolationError{
		TransactionID:  transactionID,
		CurrentState:   currentState,
		AttemptedState: attemptedState,
	}
}

// InsufficientBalanceError provides detailed error information for insufficient balance
type InsufficientBalanceError struct {
	UserID    uint64
	Currency  string
	Required  string
	Available string
}

// Error implements the error interface
func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance for user %d: required %s, available %s",
		e.Currency, e.UserID, e.Required, e.Available)
}

// Is checks if the target error is an ErrInsufficientBalance
func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// LogFields returns a map of fields for structured logging
func (e *InsufficientBalanceError) LogFields() map[string]any {
	return map[string]any{
		"error_type": "insufficient_balance",
		"user_id":    e.UserID,
		"currency":   e.Currency,
		"required":   e.Required,
		"available":  e.Available,
		"error_code": CodeInsufficientBalance,
	}
}

// NewInsufficientBalanceError creates a new detailed insufficient balance error
func NewInsufficientBalanceError(userID uint64, currency, required, available string) error {
	return &InsufficientBalanceError{
		UserID:    userID,
		Currency:  currency,
		Required:  required,
		Available: available,
	}
}

// DuplicateProviderTxError provides detail about a duplicate ingestion attempt.
// Callers treat this as success-no-op: the real-world event already has a ledger row.
type DuplicateProviderTxError struct {
	Provider     string
	ProviderTxID string
}

// Error implements the error interface
func (e *DuplicateProviderTxError) Error() string {
	return fmt.Sprintf("duplicate provider transaction: provider=%s providerTxId=%s",
		e.Provider, e.ProviderTxID)
}

// Is checks if the target error is an ErrDuplicateProviderTx
func (e *DuplicateProviderTxError) Is(target error) bool {
	return target == ErrDuplicateProviderTx
}

// LogFields returns a map of fields for structured logging
func (e *DuplicateProviderTxError) LogFields() map[string]any {
	return map[string]any{
		"error_type":     "duplicate_provider_tx",
		"provider":       e.Provider,
		"provider_tx_id": e.ProviderTxID,
		"error_code":     CodeDuplicateProviderTx,
	}
}

// NewDuplicateProviderTxError creates a new detailed duplicate provider transaction error
func NewDuplicateProviderTxError(provider, providerTxID string) error {
	return &DuplicateProviderTxError{
		Provider:     provider,
		ProviderTxID: providerTxID,
	}
}

// TransactionError represents an error raised while creating or dispatching a transaction
type TransactionError struct {
	TransactionID string
	Purpose       string
	Provider      string
	Amount        string
	Reason        string
	Err           error
}

// Error implements the error interface for TransactionError
func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction error for %s (purpose: %s, provider: %s, amount: %s): %s - %v",
		e.TransactionID, e.Purpose, e.Provider, e.Amount, e.Reason, e.Err)
}

// Unwrap returns the underlying error
func (e *TransactionError) Unwrap() error {
	return e.Err
}

// LogFields returns a map of fields for structured logging
func (e *TransactionError) LogFields() map[string]any {
	return map[string]any{
		"error_type":     "transaction_error",
		"transaction_id": e.TransactionID,
		"purpose":        e.Purpose,
		"provider":       e.Provider,
		"amount":         e.Amount,
		"reason":         e.Reason,
		"error":          e.Err.Error(),
		"error_code":     ErrorCode(e.Err),
	}
}

// NewTransactionError creates a detailed transaction error
func NewTransactionError(transactionID, purpose, provider, amount, reason string, err error) error {
	return &TransactionError{
		TransactionID: transactionID,
		Purpose:       purpose,
		Provider:      provider,
		Amount:        amount,
		Reason:        reason,
		Err:           err,
	}
}

// IsDuplicateProviderTxError checks if the error is a duplicate provider transaction error
func IsDuplicateProviderTxError(err error) bool {
	return errors.Is(err, ErrDuplicateProviderTx)
}

// IsInsufficientBalanceError checks if the error is related to insufficient balance
func IsInsufficientBalanceError(err error) bool {
	return errors.Is(err, ErrInsufficientBalance)
}

// IsTerminalStateViolation checks if the error is a rejected cross-terminal write
func IsTerminalStateViolation(err error) bool {
	return errors.Is(err, ErrTerminalStateViolation)
}

// IsUserNotFoundError checks if the error is a user not found error
func IsUserNotFoundError(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// IsNotFoundError checks if the error is any "not found" type of error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrPayoutAccountNotFound)
}

// IsUserLockedError checks if the error is related to a locked user
func IsUserLockedError(err error) bool {
	return errors.Is(err, ErrUserLocked)
}

// IsValidationError reports whether the error is a synchronous validation failure
// that produced no side effect
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidFee) ||
		errors.Is(err, ErrInvalidParticipants) ||
		errors.Is(err, ErrInvalidPurpose) ||
		errors.Is(err, ErrInvalidProvider) ||
		errors.Is(err, ErrInvalidCurrency) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrPendingPayoutExists) ||
		errors.Is(err, ErrPayoutAccountExists) ||
		errors.Is(err, ErrUserArchived)
}
