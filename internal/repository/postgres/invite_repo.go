package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/mzyun/novelgate/internal/errs"
	"github.com/mzyun/novelgate/internal/model"
)

// InviteRepo implements InviteRepository using PostgreSQL.
type InviteRepo struct{ db *DB }

// NewInviteRepo constructs an invite repository.
func NewInviteRepo(db *DB) *InviteRepo { return &InviteRepo{db: db} }

// CreateBatch inserts invites inside a single transaction.
func (r *InviteRepo) CreateBatch(ctx context.Context, invites []*model.Invite) error {
	const q = `
INSERT INTO invites (code_hash, role, permissions, expires_at, assigned_id)
VALUES ($1, $2, $3, $4, $5)`
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, inv := range invites {
		if _, err := tx.Exec(ctx, q, inv.CodeHash, inv.Role, inv.Permissions, inv.ExpiresAt, inv.AssignedID); err != nil {
			if isUniqueViolation(err) {
				return errs.ErrConflict
			}
			return err
		}
	}
	return tx.Commit(ctx)
}

// GetByCodeHash selects an invite by code hash.
func (r *InviteRepo) GetByCodeHash(ctx context.Context, codeHash []byte) (*model.Invite, error) {
	const q = `
SELECT code_hash, role, permissions, expires_at, assigned_id, used_by, used_at, created_at
FROM invites WHERE code_hash=$1`
	row := r.db.Pool.QueryRow(ctx, q, codeHash)
	var inv model.Invite
	err := row.Scan(&inv.CodeHash, &inv.Role, &inv.Permissions, &inv.ExpiresAt,
		&inv.AssignedID, &inv.UsedBy, &inv.UsedAt, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.ErrNotFound
	}
	return &inv, nil
}

// Consume marks the invite used only while used_by is still unset. Zero rows
// affected with an existing invite means someone else won the race: ErrConflict.
func (r *InviteRepo) Consume(ctx context.Context, codeHash []byte, usedBy uuid.UUID, at time.Time) error {
	const q = `
UPDATE invites SET used_by=$2, used_at=$3
WHERE code_hash=$1 AND used_by IS NULL`
	tag, err := r.db.Pool.Exec(ctx, q, codeHash, usedBy, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByCodeHash(ctx, codeHash); errors.Is(err, errs.ErrNotFound) {
			return errs.ErrNotFound
		}
		return errs.ErrConflict
	}
	return nil
}
