// Package derrors defines the coded domain errors shared by every module.
// Services return these instead of raw errors so transport layers can map
// outcomes to HTTP statuses without string matching.
package derrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of domain failure. Codes are stable identifiers:
// they appear in API error envelopes and audit records, so renaming one is a
// breaking change.
type Code string

const (
	// Transport-level codes.
	CodeBadRequest   Code = "bad_request"
	CodeInvalidInput Code = "invalid_input"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeRateLimited  Code = "rate_limited"
	CodeInternal     Code = "internal_error"

	// Challenge / signature protocol codes.
	CodeMalformedChallenge Code = "malformed_challenge"
	CodeMissingTimestamp   Code = "missing_timestamp"
	CodeExpired            Code = "expired"
	CodeInvalidSignature   Code = "invalid_signature"
	CodeReplayDetected     Code = "replay_detected"
	CodeUnknownAction      Code = "unknown_action"

	// Registry codes.
	CodeDuplicateName     Code = "duplicate_name"
	CodeNameLengthInvalid Code = "name_length_invalid"
	CodeNotListed         Code = "not_listed"
	CodePriceMismatch     Code = "price_mismatch"
	CodeNotOwner          Code = "not_owner"
	CodeDomainExpired     Code = "domain_expired"

	// Escrow codes.
	CodeInvalidTransition Code = "invalid_transition"
	CodeEscrowTerminal    Code = "escrow_terminal"
)

// Error is the concrete coded error type. Construct via New or Wrap.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a coded error with a human-readable message. The message is
// surfaced to API clients for non-internal codes, so keep it free of
// internals (connection strings, stack fragments).
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf is New with formatting.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause. The cause is kept
// for logs and errors.Is/As chains but never shown to clients.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for uncoded
// errors so unexpected failures never leak as client errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the client-safe message for err. Uncoded and internal
// errors yield a generic message.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Code != CodeInternal {
		return de.Message
	}
	return "internal error"
}

// ToHTTPStatus maps a domain code to the HTTP status the transport layer
// should respond with. Adversarial input always lands in the 4xx range; only
// genuine faults map to 500.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeInvalidInput, CodeMalformedChallenge,
		CodeMissingTimestamp, CodeUnknownAction, CodeNameLengthInvalid,
		CodeNotListed, CodePriceMismatch, CodeInvalidTransition:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeExpired, CodeInvalidSignature:
		return http.StatusUnauthorized
	case CodeForbidden, CodeNotOwner, CodeReplayDetected:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeDuplicateName, CodeEscrowTerminal, CodeDomainExpired:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
