// Package domainerrors defines the coded error taxonomy shared by all
// services. Stores and infrastructure return sentinel errors; services wrap
// them here so transports can map codes to status codes without inspecting
// error strings.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeUnauthorized: the caller lacks the required role (secretary,
	// paid participant, or registry administrator).
	CodeUnauthorized Code = "unauthorized"
	// CodeSubperiodViolation: the operation was invoked outside its
	// admitted subperiod window. The caller must wait for the clock.
	CodeSubperiodViolation Code = "subperiod_violation"
	// CodeStateViolation: double payment, double claim, claiming without a
	// payment, defecting twice, loaning an already loaned group, and the
	// like.
	CodeStateViolation Code = "state_violation"
	// CodeInsufficientFunds: an asset transfer could not be covered.
	CodeInsufficientFunds Code = "insufficient_funds"
	// CodeInvariantViolation: the pool cannot pay an eligible claim at
	// remittance. Fatal; indicates a premium sizing defect upstream.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeNotFound: the referenced group, member, or record does not exist.
	CodeNotFound Code = "not_found"
	// CodeInvalidInput: malformed or out-of-range request data.
	CodeInvalidInput Code = "invalid_input"
	// CodeInternal: infrastructure failure unrelated to the domain rules.
	CodeInternal Code = "internal"
)

// Error carries a code alongside the message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a coded error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Cause: err}
}

// CodeOf extracts the code from err, or CodeInternal when err carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var de *Error
	return errors.As(err, &de) && de.Code == code
}
