package limiter

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process limiter with the same window/lockout semantics as
// PG. Suitable for single-instance deployments and tests; state does not
// survive restarts.
type Memory struct {
	mu       sync.Mutex
	window   time.Duration
	maxFails int
	blockFor time.Duration
	entries  map[memKey]*memEntry

	now func() time.Time // overridable in tests
}

type memKey struct {
	ipHash string
	action string
}

type memEntry struct {
	fails        int
	lastFailedAt time.Time
	blockedUntil time.Time
}

// NewMemory constructs an in-memory limiter.
func NewMemory(window time.Duration, maxFails int, blockFor time.Duration) *Memory {
	return &Memory{
		window:   window,
		maxFails: maxFails,
		blockFor: blockFor,
		entries:  map[memKey]*memEntry{},
		now:      time.Now,
	}
}

func (l *Memory) key(ip, action string) memKey {
	return memKey{ipHash: string(HashIP(ip)), action: action}
}

// Allow reports whether the action is currently allowed.
func (l *Memory) Allow(_ context.Context, ip, action string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[l.key(ip, action)]
	if !ok {
		return true, 0, nil
	}
	if now := l.now(); e.blockedUntil.After(now) {
		return false, e.blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

// Success clears failure count and lock unconditionally.
func (l *Memory) Success(_ context.Context, ip, action string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, l.key(ip, action))
	return nil
}

// Failure records a failed attempt, resetting the count first when the last
// failure is older than the window.
func (l *Memory) Failure(_ context.Context, ip, action string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := l.key(ip, action)
	e, ok := l.entries[k]
	if !ok {
		e = &memEntry{}
		l.entries[k] = e
	}
	now := l.now()
	if now.Sub(e.lastFailedAt) > l.window {
		e.fails = 0
	}
	e.fails++
	e.lastFailedAt = now
	if e.fails >= l.maxFails {
		e.blockedUntil = now.Add(l.blockFor)
		return true, l.blockFor, nil
	}
	return false, 0, nil
}
