package limiter

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PG is a PostgreSQL-backed limiter with sliding window and lockout, keyed by
// (ip_hash, action). Counter resets happen lazily on the next failure outside
// the window; the upsert is atomic per statement.
type PG struct {
	pool     pgxQuerier
	window   time.Duration
	maxFails int
	blockFor time.Duration
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a PostgreSQL-backed limiter.
func NewPG(pool *pgxpool.Pool, window time.Duration, maxFails int, blockFor time.Duration) *PG {
	return &PG{pool: pool, window: window, maxFails: maxFails, blockFor: blockFor}
}

// NewPGWithQuerier constructs a PostgreSQL-backed limiter over any querier.
func NewPGWithQuerier(q pgxQuerier, window time.Duration, maxFails int, blockFor time.Duration) *PG {
	return &PG{pool: q, window: window, maxFails: maxFails, blockFor: blockFor}
}

// Allow reports whether the action is currently allowed and a retry-after duration.
func (l *PG) Allow(ctx context.Context, ip, action string) (bool, time.Duration, error) {
	const q = `SELECT blocked_until FROM rate_limits WHERE ip_hash=$1 AND action=$2`
	var blockedUntil time.Time
	err := l.pool.QueryRow(ctx, q, HashIP(ip), action).Scan(&blockedUntil)
	switch err {
	case nil:
		if blockedUntil.After(time.Now()) {
			return false, time.Until(blockedUntil), nil
		}
		return true, 0, nil
	case pgx.ErrNoRows:
		return true, 0, nil
	default:
		return false, 0, err
	}
}

// Success resets counters for (ip, action).
func (l *PG) Success(ctx context.Context, ip, action string) error {
	const q = `
INSERT INTO rate_limits (ip_hash, action, fail_count, blocked_until, last_failed_at)
VALUES ($1,$2,0,'epoch','epoch')
ON CONFLICT (ip_hash, action)
DO UPDATE SET fail_count=0, blocked_until='epoch'`
	_, err := l.pool.Exec(ctx, q, HashIP(ip), action)
	return err
}

// Failure records a failed attempt. The count resets to zero first when the
// previous failure is older than the window; a block is placed when the
// post-increment count reaches the threshold.
func (l *PG) Failure(ctx context.Context, ip, action string) (bool, time.Duration, error) {
	now := time.Now()
	ipHash := HashIP(ip)

	const q = `
INSERT INTO rate_limits (ip_hash, action, fail_count, blocked_until, last_failed_at)
VALUES ($1,$2,1,'epoch',now())
ON CONFLICT (ip_hash, action) DO UPDATE
SET
  fail_count = CASE WHEN now() - rate_limits.last_failed_at > $3::interval THEN 1 ELSE rate_limits.fail_count + 1 END,
  last_failed_at = now()
RETURNING fail_count`
	var fails int
	if err := l.pool.QueryRow(ctx, q, ipHash, action, l.window).Scan(&fails); err != nil {
		return false, 0, err
	}
	if fails >= l.maxFails {
		blockUntil := now.Add(l.blockFor)
		const upd = `UPDATE rate_limits SET blocked_until=$3 WHERE ip_hash=$1 AND action=$2`
		if _, err := l.pool.Exec(ctx, upd, ipHash, action, blockUntil); err != nil {
			return false, 0, err
		}
		return true, l.blockFor, nil
	}
	return false, 0, nil
}
