package auth

import (
	"errors"
	"net/http"
	"time"
)

var (
	// ErrNotConfigured is returned when no password hash is configured.
	// It is a configuration problem, distinct from an auth failure, and
	// never consumes rate-limit budget.
	ErrNotConfigured = errors.New("password hash not configured")
	// ErrAccessDenied is returned when the source address is not on the
	// allowlist. Terminal for the request; no retry guidance.
	ErrAccessDenied = errors.New("access denied")
	// ErrRateLimited is returned when the address has exhausted its
	// attempt budget or is locked out. Retryable after RetryAfter.
	ErrRateLimited = errors.New("too many attempts")
	// ErrInvalidPassword is returned on a failed password comparison.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrUnauthorized is returned when no valid session backs the
	// request. The caller must redirect to login.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrCSRF is returned when the CSRF header does not match the live
	// session's token.
	ErrCSRF = errors.New("csrf token mismatch")
)

// Error is the variant type carried across the request boundary for
// every auth failure. Kind is one of the sentinel errors above; Status
// is the HTTP status the boundary layer answers with.
type Error struct {
	Kind   error
	Status int
	// RetryAfter is set for rate-limited failures.
	RetryAfter time.Duration
	// Remaining is the attempt budget left, set on invalid-password
	// failures.
	Remaining int
}

func (e *Error) Error() string { return e.Kind.Error() }

func (e *Error) Unwrap() error { return e.Kind }

func denied() *Error {
	return &Error{Kind: ErrAccessDenied, Status: http.StatusForbidden}
}

func unauthorized() *Error {
	return &Error{Kind: ErrUnauthorized, Status: http.StatusUnauthorized}
}
