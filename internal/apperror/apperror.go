// Package apperror defines the stable error taxonomy crossed between
// subsystems and translated to HTTP statuses at the handler boundary.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error with a stable, caller-visible category.
type Kind string

const (
	// KindReplayRejected indicates a duplicate in-flight authorization code.
	KindReplayRejected Kind = "replay_rejected"
	// KindCodeExchangeFailed indicates the provider rejected the code-for-token exchange.
	KindCodeExchangeFailed Kind = "code_exchange_failed"
	// KindProfileFetchFailed indicates the provider profile lookup failed.
	KindProfileFetchFailed Kind = "profile_fetch_failed"
	// KindNoEmailAvailable indicates no email could be resolved for a provider identity.
	KindNoEmailAvailable Kind = "no_email_available"
	// KindCredentialExpired indicates a stored external credential was rejected upstream (401).
	KindCredentialExpired Kind = "credential_expired"
	// KindRateLimited indicates an upstream rate limit was hit and not recovered by backoff.
	KindRateLimited Kind = "rate_limited"
	// KindUpstreamUnavailable indicates a timeout or network failure against an upstream.
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	// KindTokenExpired indicates a session token past its expiry.
	KindTokenExpired Kind = "token_expired"
	// KindTokenInvalid indicates a malformed or badly signed session token.
	KindTokenInvalid Kind = "token_invalid"
	// KindUnauthorized indicates a missing or unusable credential.
	KindUnauthorized Kind = "unauthorized"
	// KindForbidden indicates the caller may not act on the resource.
	KindForbidden Kind = "forbidden"
	// KindNotFound indicates an unknown record.
	KindNotFound Kind = "not_found"
	// KindConflict indicates a uniqueness violation.
	KindConflict Kind = "conflict"
	// KindValidation indicates rejected caller input.
	KindValidation Kind = "validation_failed"
	// KindInternal indicates an unclassified internal failure.
	KindInternal Kind = "internal"
)

// Error carries a kind, a human-readable message, and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind wrapping a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf reports the kind of err, or KindInternal when it carries none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// MessageOf returns the caller-safe message for err. Errors without a kind
// never leak their internal detail outward.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal error"
}
