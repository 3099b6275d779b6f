package error

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorCode(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{"InsufficientBalance", ErrInsufficientBalance, 4001},
		{"InvalidAmount", ErrInvalidAmount, 4002},
		{"InvalidFee", ErrInvalidFee, 4002},
		{"InvalidParticipants", ErrInvalidParticipants, 4003},
		{"DuplicateProviderTx", ErrDuplicateProviderTx, 4004},
		{"ConstraintViolation", ErrConstraintViolation, 4005},
		{"InvalidPurpose", ErrInvalidPurpose, 4006},
		{"InvalidProvider", ErrInvalidProvider, 4007},
		{"InvalidCurrency", ErrInvalidCurrency, 4008},
		{"PayoutAccountExists", ErrPayoutAccountExists, 4009},
		{"PendingPayoutExists", ErrPendingPayoutExists, 4010},
		{"TerminalStateViolation", ErrTerminalStateViolation, 4011},
		{"InvalidStateTransition", ErrInvalidStateTransition, 4012},
		{"InvalidSignature", ErrInvalidSignature, 4013},
		{"MalformedPayload", ErrMalformedPayload, 4014},
		{"UserNotFound", ErrUserNotFound, 4040},
		{"TransactionNotFound", ErrTransactionNotFound, 4041},
		{"PayoutAccountNotFound", ErrPayoutAccountNotFound, 4042},
		{"UserArchived", ErrUserArchived, 4043},
		{"UserLocked", ErrUserLocked, 4230},
		{"UnknownError", errors.New("unknown error"), 5000},
		{"WrappedError", fmt.Errorf("wrapped: %w", ErrInvalidCurrency), 4008},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			code := ErrorCode(tc.err)
			if code != tc.expected {
				t.Errorf("ErrorCode(%v) = %d, want %d", tc.err, code, tc.expected)
			}
		})
	}
}

func TestTerminalStateViolationError(t *testing.T) {
	err := NewTerminalStateViolationError("tx-1", "succeeded", "failed")

	expected := "transaction tx-1 is already succeeded; refusing transition to failed"
	if err.Error() != expected {
		t.Errorf("Error() = %s, want %s", err.Error(), expected)
	}

	if !errors.Is(err, ErrTerminalStateViolation) {
		t.Errorf("errors.Is(err, ErrTerminalStateViolation) = false, want true")
	}
	if !IsTerminalStateViolation(err) {
		t.Errorf("IsTerminalStateViolation(err) = false, want true")
	}

	var violation *TerminalStateViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("errors.As failed to extract TerminalStateViolationError")
	}
	fields := violation.LogFields()
	if fields["current_state"] != "succeeded" || fields["attempted_state"] != "failed" {
		t.Errorf("LogFields() = %v, missing state detail", fields)
	}
}

func TestInsufficientBalanceError(t *testing.T) {
	err := NewInsufficientBalanceError(123, "HKD", "500", "42.50")

	expected := "insufficient HKD balance for user 123: required 500, available 42.50"
	if err.Error() != expected {
		t.Errorf("Error() = %s, want %s", err.Error(), expected)
	}

	if !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("errors.Is(err, ErrInsufficientBalance) = false, want true")
	}
	if !IsInsufficientBalanceError(err) {
		t.Errorf("IsInsufficientBalanceError(err) = false, want true")
	}
}

func TestDuplicateProviderTxError(t *testing.T) {
	err := NewDuplicateProviderTxError("processor", "po_1")

	if !errors.Is(err, ErrDuplicateProviderTx) {
		t.Errorf("errors.Is(err, ErrDuplicateProviderTx) = false, want true")
	}
	if !IsDuplicateProviderTxError(err) {
		t.Errorf("IsDuplicateProviderTxError(err) = false, want true")
	}
	if IsDuplicateProviderTxError(ErrTransactionNotFound) {
		t.Errorf("IsDuplicateProviderTxError(ErrTransactionNotFound) = true, want false")
	}
}
