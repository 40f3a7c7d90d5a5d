// Package domainerrors carries the stable error kinds returned across the
// service boundary. Every rejection a caller can observe has exactly one Code,
// so transports can tell "try again" apart from "this will never succeed".
//
// Stores return pkg/platform/sentinel errors; services translate them into
// coded errors here.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code is the stable, transport-independent kind of a domain error.
type Code string

const (
	// CodeValidation marks malformed or missing input (e.g. a short reason).
	CodeValidation Code = "validation_error"
	// CodeBadRequest marks a request that could not be decoded at all.
	CodeBadRequest Code = "bad_request"
	// CodeNotFound marks an unknown subject, request, alert or voter.
	CodeNotFound Code = "not_found"
	// CodeConflict marks duplicate pending requests, duplicate votes and self-votes.
	CodeConflict Code = "conflict"
	// CodeForbidden marks an actor that lacks the required role.
	CodeForbidden Code = "forbidden"
	// CodeUnauthorized marks a request without an authenticated actor.
	CodeUnauthorized Code = "unauthorized"
	// CodePolicyLimit marks a statutory ceiling being exceeded.
	CodePolicyLimit Code = "policy_limit"
	// CodeConfiguration marks a missing or malformed secret. Fatal at the boundary.
	CodeConfiguration Code = "configuration_error"
	// CodeTransient marks a retryable infrastructure failure.
	CodeTransient Code = "transient_storage"
	// CodeDomain marks codec input outside its domain.
	CodeDomain Code = "domain_error"
	// CodeInternal marks everything else.
	CodeInternal Code = "internal_error"
)

// Error is a coded domain error. Err, when set, is the underlying cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a coded error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the outermost code in err's chain, or CodeInternal when none is set.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether the outermost coded error in err's chain has the given code.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	var de *Error
	if !errors.As(err, &de) {
		return false
	}
	return de.Code == code
}

// Is is an alias of HasCode kept for call sites that read better with it.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// IsRetryable reports whether err is a transient infrastructure failure.
// Validation, authorization, conflict, policy and domain errors never are.
func IsRetryable(err error) bool {
	return HasCode(err, CodeTransient)
}

// Message returns the caller-facing message of a coded error.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}
