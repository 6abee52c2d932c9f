// Package limiter defines interfaces and implementations for failure rate limiting.
package limiter

import (
	"context"
	"crypto/sha256"
	"time"
)

// Limiter counts consecutive failures per (client address, action) inside a
// sliding window and places temporary lockouts once a threshold is reached.
// Infrastructure errors propagate: callers decide whether to fail open.
type Limiter interface {
	// Allow reports whether the action is currently allowed and optional retry-after.
	Allow(ctx context.Context, ip, action string) (bool, time.Duration, error)
	// Success resets counters after a successful attempt.
	Success(ctx context.Context, ip, action string) error
	// Failure records a failed attempt; may place a temporary block.
	Failure(ctx context.Context, ip, action string) (bool, time.Duration, error)
}

// HashIP returns a stable hash for an IP string to avoid storing raw addresses.
func HashIP(ip string) []byte {
	h := sha256.Sum256([]byte(ip))
	return h[:]
}
