// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"fmt"
	"time"
)

// Common sentinels across repo/service layers. HTTP handlers map these to
// status codes in one place; nothing below the HTTP boundary knows about codes.
var (
	// ErrBadRequest indicates malformed or missing input.
	ErrBadRequest = errors.New("bad request")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates a missing, invalid or expired credential.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates an authenticated caller without the required permission.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict indicates a duplicate resource (username taken, invite already used).
	ErrConflict = errors.New("conflict")

	// ErrVersionConflict indicates optimistic concurrency failure (content sha mismatch).
	ErrVersionConflict = errors.New("version conflict")

	// ErrRateLimited indicates temporary lockout due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrPayloadTooLarge indicates an upload exceeding the configured size limit.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrUnsupportedMedia indicates an upload with a content type outside the allowlist.
	ErrUnsupportedMedia = errors.New("unsupported media type")
)

// RateLimitedError carries the remaining lockout so handlers can emit Retry-After.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter.Round(time.Second))
}

// Unwrap makes errors.Is(err, ErrRateLimited) hold for callers that do not
// care about the retry hint.
func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }

// RateLimited wraps the remaining lockout duration into a rate-limit error.
func RateLimited(retryAfter time.Duration) error {
	return &RateLimitedError{RetryAfter: retryAfter}
}
