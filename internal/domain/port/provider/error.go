package provider

import (
	"errors"
	"fmt"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
)

// ErrorKind classifies a provider failure for the caller's retry decision
type ErrorKind string

// Error kinds
const (
	// KindTransient covers timeouts and rate limits; the operation may have
	// happened and the transaction stays pending until reconciled
	KindTransient ErrorKind = "transient"
	// KindRejected is a permanent provider-side refusal, e.g. an invalid
	// destination or a compliance block
	KindRejected ErrorKind = "rejected"
	// KindUnknown means the response could not be classified; log and hold
	// for manual review
	KindUnknown ErrorKind = "unknown"
)

// Error is the common shape every adapter normalizes provider failures into
type Error struct {
	Kind     ErrorKind
	Provider entity.TransactionProvider
	Code     string // provider-specific error code, if any
	Message  string
	Err      error
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("%s provider error (%s): %s", e.Provider, e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// LogFields returns a map of fields for structured logging
func (e *Error) LogFields() map[string]any {
	fields := map[string]any{
		"error_type": "provider_error",
		"provider":   string(e.Provider),
		"kind":       string(e.Kind),
		"message":    e.Message,
	}
	if e.Code != "" {
		fields["provider_code"] = e.Code
	}
	if e.Err != nil {
		fields["error"] = e.Err.Error()
	}
	return fields
}

// NewTransient builds a retryable provider error
func NewTransient(p entity.TransactionProvider, message string, err error) *Error {
	return &Error{Kind: KindTransient, Provider: p, Message: message, Err: err}
}

// NewRejected builds a permanent provider rejection
func NewRejected(p entity.TransactionProvider, code, message string) *Error {
	return &Error{Kind: KindRejected, Provider: p, Code: code, Message: message}
}

// NewUnknown builds an unclassifiable provider error
func NewUnknown(p entity.TransactionProvider, message string, err error) *Error {
	return &Error{Kind: KindUnknown, Provider: p, Message: message, Err: err}
}

// KindOf extracts the classification from any error chain. Errors that are
// not provider errors are treated as unknown.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

// IsTransient reports whether the error is retryable
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}

// IsRejected reports whether the error is a permanent rejection
func IsRejected(err error) bool {
	return KindOf(err) == KindRejected
}
